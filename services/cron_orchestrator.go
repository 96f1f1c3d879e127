package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/channel"
	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/internal/upload"
	"creatorChallengeAPI/internal/videoplatform"
)

var ErrSweepInProgress = errors.New("sweep already in progress")

type SweepReport struct {
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
	Checked         int               `json:"checked"`
	Skipped         int               `json:"skipped"`
	Failed          int               `json:"failed"`
	UploadsRecorded int               `json:"uploads_recorded"`
	MissedRecorded  int               `json:"missed_recorded"`
	RemindersSent   int               `json:"reminders_sent"`
	Errors          map[string]string `json:"errors,omitempty"`
}

type OrchestratorConfig struct {
	Concurrency int
	StaleGrace  time.Duration
}

// CronOrchestrator runs the periodic sweep over every active challenge.
type CronOrchestrator struct {
	store      storage.Store
	platform   videoplatform.Platform
	attributor *UploadAttributor
	dispatcher *NotificationDispatcher
	cfg        OrchestratorConfig
	logger     *zap.Logger
	running    atomic.Bool
}

func NewCronOrchestrator(store storage.Store, platform videoplatform.Platform, attributor *UploadAttributor, dispatcher *NotificationDispatcher, cfg OrchestratorConfig, logger *zap.Logger) *CronOrchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.StaleGrace <= 0 {
		cfg.StaleGrace = 24 * time.Hour
	}
	return &CronOrchestrator{
		store:      store,
		platform:   platform,
		attributor: attributor,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

type challengeOutcome struct {
	skipped   bool
	uploads   int
	missed    int
	reminders int
}

// Sweep processes every active challenge once. A failing challenge is reported and
// never stops the others. Overlapping sweeps in the same process are refused.
func (o *CronOrchestrator) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		sweepsTotal.WithLabelValues("overlap").Inc()
		return nil, ErrSweepInProgress
	}
	defer o.running.Store(false)

	report := &SweepReport{StartedAt: time.Now(), Errors: map[string]string{}}
	timer := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(timer).Seconds())
	}()

	active, err := o.store.ListActiveChallenges(ctx)
	if err != nil {
		sweepsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(o.cfg.Concurrency)

	for _, ch := range active {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := o.processChallenge(ctx, ch, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors[ch.ID.String()] = err.Error()
				sweepChallengeFailures.Inc()
				o.logger.Warn("sweep failed for challenge",
					zap.String("challenge_id", ch.ID.String()),
					zap.Error(err),
				)
				return nil
			}
			if out.skipped {
				report.Skipped++
				return nil
			}
			report.Checked++
			report.UploadsRecorded += out.uploads
			report.MissedRecorded += out.missed
			report.RemindersSent += out.reminders
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	if len(report.Errors) == 0 {
		report.Errors = nil
	}

	outcome := "ok"
	if report.Failed > 0 {
		outcome = "partial"
	}
	if err := ctx.Err(); err != nil {
		outcome = "cancelled"
	}
	sweepsTotal.WithLabelValues(outcome).Inc()

	o.logger.Info("sweep finished",
		zap.Int("active", len(active)),
		zap.Int("checked", report.Checked),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("uploads", report.UploadsRecorded),
		zap.Int("missed", report.MissedRecorded),
		zap.Int("reminders", report.RemindersSent),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, ctx.Err()
}

func (o *CronOrchestrator) processChallenge(ctx context.Context, ch *challenge.Challenge, now time.Time) (challengeOutcome, error) {
	var out challengeOutcome
	if now.After(ch.EndDate().Add(o.cfg.StaleGrace)) {
		out.skipped = true
		return out, nil
	}

	conn, err := o.store.GetChannelConnection(ctx, ch.OwnerID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		conn = nil
	case err != nil:
		return out, err
	}

	if conn != nil {
		n, err := o.pollUploads(ctx, ch, conn, now)
		if err != nil {
			return out, err
		}
		out.uploads = n
	}

	// Attribution may have moved the ledger on.
	cur, err := o.store.GetChallenge(ctx, ch.ID)
	if err != nil {
		return out, err
	}
	if cur.Status != challenge.StatusActive {
		return out, nil
	}

	cur, out.missed, err = o.dispatcher.CheckMissed(ctx, cur, now)
	if err != nil {
		return out, err
	}
	sent, err := o.dispatcher.CheckReminder(ctx, cur, now)
	if err != nil {
		return out, err
	}
	if sent {
		out.reminders = 1
	}
	return out, nil
}

// pollUploads attributes the channel's recent videos oldest first.
func (o *CronOrchestrator) pollUploads(ctx context.Context, ch *challenge.Challenge, conn *channel.Connection, now time.Time) (int, error) {
	since, ok := ch.PollSince(now)
	if !ok {
		return 0, nil
	}
	videos, err := o.platform.ListRecentUploads(ctx, conn, since)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for i := range videos {
		res, err := o.attributor.Attribute(ctx, ch.ID, conn.ChannelID, &videos[i], upload.SourceSweep)
		if errors.Is(err, apperr.ErrWrongChannel) {
			continue
		}
		if err != nil {
			return recorded, err
		}
		if res.Status == StatusRecorded {
			recorded++
		}
	}
	return recorded, nil
}

// SweepOne runs the per-challenge steps for a single challenge outside a full sweep.
func (o *CronOrchestrator) SweepOne(ctx context.Context, id uuid.UUID, now time.Time) error {
	ch, err := o.store.GetChallenge(ctx, id)
	if err != nil {
		return err
	}
	if ch.Status != challenge.StatusActive {
		return apperr.Validation("challenge is %s", ch.Status)
	}
	_, err = o.processChallenge(ctx, ch, now)
	return err
}
