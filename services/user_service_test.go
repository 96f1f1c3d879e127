package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/user"
)

func TestUserService_SyncUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewUserService(h.store, zap.NewNop())

	_, err := svc.SyncUser(ctx, &user.SyncRequest{ClerkID: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	u, err := svc.SyncUser(ctx, &user.SyncRequest{ClerkID: "user_fresh", Email: "fresh@example.com", FirstName: "Fresh", LastName: "Start"})
	require.NoError(t, err)
	assert.Equal(t, "Fresh Start", u.DisplayName)

	// A synced user can own challenges straight away.
	ch, err := h.challenges.Create(ctx, "user_fresh", &challenge.CreateChallengeRequest{
		Title:        "Weekly vlog",
		CadenceDays:  7,
		DurationDays: 28,
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, ch.OwnerID)

	// Re-syncing the existing owner keeps their id and refreshes the email.
	owner, err := svc.SyncUser(ctx, &user.SyncRequest{ClerkID: ownerClerkID, Email: "new@example.com", Username: "creator"})
	require.NoError(t, err)
	assert.Equal(t, h.owner.ID, owner.ID)

	got, err := svc.GetByClerkID(ctx, ownerClerkID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "creator", got.DisplayName)
}
