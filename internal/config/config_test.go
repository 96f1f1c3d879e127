package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "3333", cfg.Server.Port)
	assert.Equal(t, 25*time.Hour, cfg.Engine.ReminderDedup.Duration)
	assert.Equal(t, time.Hour, cfg.Engine.MissedGrace.Duration)
	assert.Equal(t, 10*time.Second, cfg.Engine.ExternalTimeout.Duration)
	assert.Equal(t, 30*time.Minute, cfg.Engine.SweepTimeout.Duration)
	assert.Equal(t, "log", cfg.Email.Provider)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_TOMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = "8080"

[engine]
sweep_interval = "15m"
sweep_concurrency = 3
stale_grace = "48h"

[email]
provider = "ses"
from = "noreply@example.com"
`), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Engine.SweepInterval.Duration)
	assert.Equal(t, 3, cfg.Engine.SweepConcurrency)
	assert.Equal(t, 48*time.Hour, cfg.Engine.StaleGrace.Duration)
	assert.Equal(t, "ses", cfg.Email.Provider)
	assert.Equal(t, "postgres://localhost/test", cfg.Database.URL)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, time.Hour, cfg.Engine.MissedGrace.Duration)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Engine.SweepConcurrency)
}

func TestLoad_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[engine]
sweep_interval = "soon"
`), 0o600))
	_, err := Load(path)
	assert.Error(t, err)

	t.Setenv("LOG_DEVELOPMENT", "maybe")
	_, err = Load("")
	assert.ErrorContains(t, err, "LOG_DEVELOPMENT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate(true)
	require.Error(t, err)
	assert.ErrorContains(t, err, "DATABASE_URL")
	assert.ErrorContains(t, err, "CLERK_SECRET_KEY")

	cfg.Database.URL = "postgres://x"
	cfg.Auth.ClerkSecretKey = "sk_test"
	assert.NoError(t, cfg.Validate(true))

	cfg.Database.URL = ""
	assert.NoError(t, cfg.Validate(false))
}
