package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartPeriodic runs job every interval until ctx is cancelled. A run that is still
// going when the next tick arrives delays that tick rather than overlapping it. The
// returned channel is closed once the loop has exited.
func StartPeriodic(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, job func(ctx context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer close(done)
		defer ticker.Stop()

		logger.Info("worker started", zap.String("worker", name), zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("worker stopped", zap.String("worker", name))
				return
			case <-ticker.C:
				if err := job(ctx); err != nil && ctx.Err() == nil {
					logger.Error("worker run failed", zap.String("worker", name), zap.Error(err))
				}
			}
		}
	}()
	return done
}
