package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"creatorChallengeAPI/handlers"
	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/internal/workers"
	"creatorChallengeAPI/middleware"
	"creatorChallengeAPI/services"
)

var serveInMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(!serveInMemory); err != nil {
			return err
		}
		clerk.SetKey(cfg.Auth.ClerkSecretKey)

		a, err := newApp(ctx, cfg, logger, serveInMemory)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.pool != nil {
			if err := storage.Migrate(ctx, a.pool); err != nil {
				return err
			}
		}

		middleware.InitPrometheus(prometheus.DefaultRegisterer)
		services.RegisterMetrics(prometheus.DefaultRegisterer)

		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		go limiter.CleanupVisitors(ctx)

		routes := handlers.Routes{
			Challenges:    handlers.NewChallengeHandler(a.challenges, logger),
			Uploads:       handlers.NewUploadHandler(a.attributor, a.challenges, logger),
			Notifications: handlers.NewNotificationHandler(a.notifications, logger),
			Cron:          handlers.NewCronHandler(a.orchestrator, cfg.Engine.SweepTimeout.Duration, logger),
			Health:        handlers.NewHealthHandler(a.store),
			Users:         handlers.NewUserHandler(a.users, logger),
			Auth:          middleware.ClerkAuthMiddleware(logger),
			CronAuth:      middleware.CronSecretMiddleware(cfg.Auth.CronSecret),
			RateLimit:     limiter.Middleware,
			Metrics:       middleware.BasicAuthMiddleware(cfg.Server.MetricsUser, cfg.Server.MetricsPass)(promhttp.Handler()),
			Pprof:         middleware.PprofSecurityMiddleware(cfg.Server.PprofSecret)(pprofMux()),
		}

		if cfg.Auth.WebhookSecret != "" {
			routes.Webhooks = handlers.NewWebhookHandler(a.users, cfg.Auth.WebhookSecret, logger)
		}

		corsHandler := gorillaHandlers.CORS(
			gorillaHandlers.AllowedOrigins(cfg.Server.AllowedOrigins),
			gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Cron-Secret", "X-Pprof-Secret"}),
			gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
			gorillaHandlers.AllowCredentials(),
		)

		server := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      corsHandler(routes.Router()),
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
		}

		var sweeperDone <-chan struct{}
		if cfg.Engine.RunSweepInProcess {
			sweeperDone = workers.StartPeriodic(ctx, "sweep", cfg.Engine.SweepInterval.Duration, logger, func(ctx context.Context) error {
				_, err := a.orchestrator.Sweep(ctx, time.Now())
				if errors.Is(err, services.ErrSweepInProgress) {
					return nil
				}
				return err
			})
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server starting", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}

		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
		if sweeperDone != nil {
			<-sweeperDone
		}
		logger.Info("server exited")
		return nil
	},
}

func pprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func init() {
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "keep all state in process instead of Postgres")
	rootCmd.AddCommand(serveCmd)
}
