package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"creatorChallengeAPI/internal/config"
	"creatorChallengeAPI/internal/notification"
)

func TestNewEmailSender(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	sender, err := newEmailSender(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &notification.LogSender{}, sender)

	cfg.Email.Provider = "carrier-pigeon"
	_, err = newEmailSender(ctx, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewAppInMemory(t *testing.T) {
	cfg := config.Default()

	a, err := newApp(context.Background(), cfg, zap.NewNop(), true)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.pool)
	assert.NotNil(t, a.orchestrator)
	assert.NoError(t, a.store.Ping(context.Background()))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["sweep"])
	assert.True(t, names["migrate"])
}
