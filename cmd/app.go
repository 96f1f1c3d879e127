package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"creatorChallengeAPI/internal/config"
	"creatorChallengeAPI/internal/logging"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/internal/videoplatform"
	"creatorChallengeAPI/services"
)

// app is the wired engine shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
	store  storage.Store

	dispatcher    *services.NotificationDispatcher
	achievements  *services.AchievementEvaluator
	attributor    *services.UploadAttributor
	challenges    *services.ChallengeService
	notifications *services.NotificationService
	users         *services.UserService
	orchestrator  *services.CronOrchestrator
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return storage.OpenPool(ctx, storage.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime.Duration,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime.Duration,
	})
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, inMemory bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if inMemory {
		logger.Warn("using the in-memory store, nothing will be persisted")
		a.store = storage.NewMemoryStore()
	} else {
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.store = storage.NewPostgresStore(pool)
		logger.Info("connected to database")
	}

	youtube, err := videoplatform.NewYouTubeClient(videoplatform.YouTubeConfig{
		ClientID:          cfg.YouTube.ClientID,
		ClientSecret:      cfg.YouTube.ClientSecret,
		APIKey:            cfg.YouTube.APIKey,
		Timeout:           cfg.Engine.ExternalTimeout.Duration,
		CacheSize:         cfg.YouTube.CacheSize,
		CacheTTL:          cfg.YouTube.CacheTTL.Duration,
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		Burst:             cfg.YouTube.Burst,
	}, a.store, logger.Named("youtube"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	email, err := newEmailSender(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var push notification.PushProvider
	if cfg.Push.FirebaseCredentialsFile != "" {
		fcm, err := notification.NewFCMService(ctx, cfg.Push.FirebaseCredentialsFile, logger.Named("fcm"))
		if err != nil {
			logger.Warn("push notifications disabled", zap.Error(err))
		} else {
			push = fcm
			logger.Info("FCM push provider initialized")
		}
	}

	engine := cfg.Engine
	a.dispatcher = services.NewNotificationDispatcher(a.store, email, push, services.DispatcherConfig{
		ReminderDedup:    engine.ReminderDedup.Duration,
		MissedGrace:      engine.MissedGrace.Duration,
		DeliveryTimeout:  engine.ExternalTimeout.Duration,
		MaxConflictRetry: engine.MaxConflictRetry,
	}, logger.Named("dispatcher"))
	a.achievements = services.NewAchievementEvaluator(a.store, logger.Named("achievements"))
	a.attributor = services.NewUploadAttributor(a.store, youtube, a.achievements, a.dispatcher, engine.MaxConflictRetry, logger.Named("attributor"))
	a.challenges = services.NewChallengeService(a.store, a.dispatcher, a.achievements, engine.MaxConflictRetry, logger.Named("challenges"))
	a.notifications = services.NewNotificationService(a.store)
	a.users = services.NewUserService(a.store, logger)
	a.orchestrator = services.NewCronOrchestrator(a.store, youtube, a.attributor, a.dispatcher, services.OrchestratorConfig{
		Concurrency: engine.SweepConcurrency,
		StaleGrace:  engine.StaleGrace.Duration,
	}, logger.Named("sweep"))
	return a, nil
}

func newEmailSender(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notification.EmailSender, error) {
	switch cfg.Email.Provider {
	case "ses":
		sender, err := notification.NewSESSender(ctx, notification.SESConfig{
			Region:          cfg.Email.Region,
			From:            cfg.Email.From,
			AccessKeyID:     cfg.Email.AccessKeyID,
			SecretAccessKey: cfg.Email.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("email via SES", zap.String("region", cfg.Email.Region))
		return sender, nil
	case "log", "":
		return &notification.LogSender{Logger: logger.Named("email")}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}

func (a *app) Close() {
	if a.pool != nil {
		a.logger.Info("closing database connection pool")
		a.pool.Close()
	}
	_ = a.logger.Sync()
}
