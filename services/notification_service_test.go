package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/notification"
)

func TestNotificationService_Inbox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ch := h.createChallenge(t, 7, 1)

	for _, key := range []string{"streak:3", "streak:7"} {
		_, err := h.dispatcher.Emit(ctx, ch, notification.TypeStreak, key, map[string]any{"title": ch.Title, "streak": 3}, h.clock.Now())
		require.NoError(t, err)
	}

	count, err := h.inbox.GetUnreadCount(ctx, ownerClerkID)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "welcome plus two streaks")

	page, err := h.inbox.GetNotifications(ctx, ownerClerkID, 1, 2, false)
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 3, page.UnreadCount)
	assert.Equal(t, notification.TypeStreak, page.Notifications[0].Type)

	require.NoError(t, h.inbox.MarkAsRead(ctx, page.Notifications[0].ID, ownerClerkID))
	err = h.inbox.MarkAsRead(ctx, page.Notifications[0].ID, ownerClerkID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	unread, err := h.inbox.GetNotifications(ctx, ownerClerkID, 1, 20, true)
	require.NoError(t, err)
	assert.Len(t, unread.Notifications, 2)

	require.NoError(t, h.inbox.MarkAllAsRead(ctx, ownerClerkID))
	count, err = h.inbox.GetUnreadCount(ctx, ownerClerkID)
	require.NoError(t, err)
	assert.Zero(t, count)

	empty, err := h.inbox.GetNotifications(ctx, ownerClerkID, 1, 20, true)
	require.NoError(t, err)
	assert.NotNil(t, empty.Notifications)
	assert.Empty(t, empty.Notifications)
}

func TestNotificationService_MarkOthersNotification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createChallenge(t, 7, 1)
	h.addOwner(t, "user_other", "")

	page, err := h.inbox.GetNotifications(ctx, ownerClerkID, 1, 20, false)
	require.NoError(t, err)
	require.NotEmpty(t, page.Notifications)

	err = h.inbox.MarkAsRead(ctx, page.Notifications[0].ID, "user_other")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = h.inbox.MarkAsRead(ctx, uuid.New(), ownerClerkID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNotificationService_RegisterDevice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.inbox.RegisterDevice(ctx, ownerClerkID, &notification.RegisterDeviceRequest{Token: "abc", Platform: "symbian"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = h.inbox.RegisterDevice(ctx, ownerClerkID, &notification.RegisterDeviceRequest{Platform: "ios"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req := &notification.RegisterDeviceRequest{Token: "abc", Platform: "android"}
	require.NoError(t, h.inbox.RegisterDevice(ctx, ownerClerkID, req))
	require.NoError(t, h.inbox.RegisterDevice(ctx, ownerClerkID, req))

	tokens, err := h.store.ListDeviceTokens(ctx, h.owner.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}
