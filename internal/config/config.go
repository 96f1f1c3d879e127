package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Duration lets TOML files use strings like "25h" or "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	YouTube   YouTubeConfig   `toml:"youtube"`
	Email     EmailConfig     `toml:"email"`
	Push      PushConfig      `toml:"push"`
	Engine    EngineConfig    `toml:"engine"`
	Log       LogConfig       `toml:"log"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Port            string   `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	MetricsUser     string   `toml:"metrics_user"`
	MetricsPass     string   `toml:"metrics_pass"`
	PprofSecret     string   `toml:"pprof_secret"`
}

type DatabaseConfig struct {
	URL             string   `toml:"url"`
	MaxConns        int32    `toml:"max_conns"`
	MinConns        int32    `toml:"min_conns"`
	MaxConnLifetime Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime Duration `toml:"max_conn_idle_time"`
}

type AuthConfig struct {
	ClerkSecretKey string `toml:"clerk_secret_key"`
	CronSecret     string `toml:"cron_secret"`
	// WebhookSecret is the Clerk webhook signing secret (whsec_...). Empty disables the webhook.
	WebhookSecret  string `toml:"webhook_secret"`
}

type YouTubeConfig struct {
	ClientID          string   `toml:"client_id"`
	ClientSecret      string   `toml:"client_secret"`
	APIKey            string   `toml:"api_key"`
	CacheSize         int      `toml:"cache_size"`
	CacheTTL          Duration `toml:"cache_ttl"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
}

type EmailConfig struct {
	// Provider is "ses" or "log".
	Provider        string `toml:"provider"`
	From            string `toml:"from"`
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

type PushConfig struct {
	FirebaseCredentialsFile string `toml:"firebase_credentials_file"`
}

type EngineConfig struct {
	ExternalTimeout   Duration `toml:"external_timeout"`
	SweepInterval     Duration `toml:"sweep_interval"`
	SweepTimeout      Duration `toml:"sweep_timeout"`
	SweepConcurrency  int      `toml:"sweep_concurrency"`
	MissedGrace       Duration `toml:"missed_grace"`
	StaleGrace        Duration `toml:"stale_grace"`
	ReminderDedup     Duration `toml:"reminder_dedup"`
	MaxConflictRetry  int      `toml:"max_conflict_retry"`
	RunSweepInProcess bool     `toml:"run_sweep_in_process"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every zero value with its default.
func (c *Config) SetDefaults() {
	setString(&c.Server.Port, "3333")
	setDuration(&c.Server.ReadTimeout, 5*time.Second)
	setDuration(&c.Server.WriteTimeout, 30*time.Second)
	setDuration(&c.Server.IdleTimeout, 120*time.Second)
	setDuration(&c.Server.ShutdownTimeout, 30*time.Second)
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 25
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 5
	}
	setDuration(&c.Database.MaxConnLifetime, time.Hour)
	setDuration(&c.Database.MaxConnIdleTime, 30*time.Minute)

	if c.YouTube.CacheSize == 0 {
		c.YouTube.CacheSize = 512
	}
	setDuration(&c.YouTube.CacheTTL, 10*time.Minute)
	if c.YouTube.RequestsPerSecond == 0 {
		c.YouTube.RequestsPerSecond = 5
	}
	if c.YouTube.Burst == 0 {
		c.YouTube.Burst = 10
	}

	setString(&c.Email.Provider, "log")
	setString(&c.Email.Region, "us-east-1")

	setDuration(&c.Engine.ExternalTimeout, 10*time.Second)
	setDuration(&c.Engine.SweepInterval, time.Hour)
	setDuration(&c.Engine.SweepTimeout, 30*time.Minute)
	if c.Engine.SweepConcurrency == 0 {
		c.Engine.SweepConcurrency = 8
	}
	setDuration(&c.Engine.MissedGrace, time.Hour)
	setDuration(&c.Engine.StaleGrace, 24*time.Hour)
	setDuration(&c.Engine.ReminderDedup, 25*time.Hour)
	if c.Engine.MaxConflictRetry == 0 {
		c.Engine.MaxConflictRetry = 5
	}

	setString(&c.Log.Level, "info")

	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 30
	}
}

// Load reads .env (if present), then the TOML file at path (if present), then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString("PORT", &c.Server.Port)
	envString("METRICS_USER", &c.Server.MetricsUser)
	envString("METRICS_PASS", &c.Server.MetricsPass)
	envString("PPROF_SECRET", &c.Server.PprofSecret)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}

	envString("DATABASE_URL", &c.Database.URL)
	envString("CLERK_SECRET_KEY", &c.Auth.ClerkSecretKey)
	envString("CRON_SECRET", &c.Auth.CronSecret)
	envString("CLERK_WEBHOOK_SECRET", &c.Auth.WebhookSecret)

	envString("YOUTUBE_CLIENT_ID", &c.YouTube.ClientID)
	envString("YOUTUBE_CLIENT_SECRET", &c.YouTube.ClientSecret)
	envString("YOUTUBE_API_KEY", &c.YouTube.APIKey)

	envString("EMAIL_PROVIDER", &c.Email.Provider)
	envString("EMAIL_FROM", &c.Email.From)
	envString("AWS_REGION", &c.Email.Region)
	envString("AWS_ACCESS_KEY_ID", &c.Email.AccessKeyID)
	envString("AWS_SECRET_ACCESS_KEY", &c.Email.SecretAccessKey)

	envString("FIREBASE_CREDENTIALS_FILE", &c.Push.FirebaseCredentialsFile)
	envString("LOG_LEVEL", &c.Log.Level)

	if err := envDuration("SWEEP_INTERVAL", &c.Engine.SweepInterval); err != nil {
		return err
	}
	if err := envDuration("SWEEP_TIMEOUT", &c.Engine.SweepTimeout); err != nil {
		return err
	}
	if err := envDuration("EXTERNAL_TIMEOUT", &c.Engine.ExternalTimeout); err != nil {
		return err
	}
	if err := envBool("LOG_DEVELOPMENT", &c.Log.Development); err != nil {
		return err
	}
	return envBool("RUN_SWEEP_IN_PROCESS", &c.Engine.RunSweepInProcess)
}

// Validate checks what the server needs before it can start.
func (c *Config) Validate(requireDatabase bool) error {
	var errs []error
	if requireDatabase && c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.Auth.ClerkSecretKey == "" {
		errs = append(errs, errors.New("CLERK_SECRET_KEY is not set"))
	}
	if c.Email.Provider == "ses" && c.Email.From == "" {
		errs = append(errs, errors.New("email.from is required for the ses provider"))
	}
	if c.Engine.SweepConcurrency < 1 {
		errs = append(errs, errors.New("engine.sweep_concurrency must be positive"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setDuration(dst *Duration, def time.Duration) {
	if dst.Duration == 0 {
		dst.Duration = def
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return dst.UnmarshalText([]byte(v))
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
