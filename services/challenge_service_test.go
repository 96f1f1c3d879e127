package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/notification"
)

func TestChallengeService_Create(t *testing.T) {
	h := newHarness(t)
	ch := h.createChallenge(t, 30, 7)

	assert.Equal(t, challenge.StatusActive, ch.Status)
	assert.Equal(t, 1, ch.VideosPerCadence)
	assert.True(t, ch.EmailNotifications)
	assert.Len(t, ch.Schedule, 5)
	require.NotNil(t, ch.NextDeadline)
	assert.Equal(t, ch.Schedule[0].Deadline(), *ch.NextDeadline)

	stored := h.reload(t, ch.ID)
	if diff := cmp.Diff(ch.Schedule, stored.Schedule); diff != "" {
		t.Errorf("stored schedule mismatch (-created +stored):\n%s", diff)
	}

	welcome := h.logEntries(t, ch.ID, notification.TypeWelcome)
	assert.Len(t, welcome, 1)
	assert.Equal(t, 1, h.email.count())
}

func TestChallengeService_CreateFromMonths(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	ch, err := h.challenges.Create(context.Background(), ownerClerkID, &challenge.CreateChallengeRequest{
		Title:          "Quarter",
		CadenceDays:    7,
		DurationMonths: 3,
		StartDate:      &start,
	})
	require.NoError(t, err)
	assert.Equal(t, 90, ch.DurationDays)
	assert.Len(t, ch.Schedule, 13)
}

func TestChallengeService_CreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  challenge.CreateChallengeRequest
	}{
		{"empty title", challenge.CreateChallengeRequest{Title: "  ", CadenceDays: 1, DurationDays: 7}},
		{"zero cadence", challenge.CreateChallengeRequest{Title: "x", CadenceDays: 0, DurationDays: 7}},
		{"negative videos", challenge.CreateChallengeRequest{Title: "x", CadenceDays: 1, DurationDays: 7, VideosPerCadence: -1}},
		{"no duration", challenge.CreateChallengeRequest{Title: "x", CadenceDays: 1}},
		{"both durations", challenge.CreateChallengeRequest{Title: "x", CadenceDays: 1, DurationDays: 7, DurationMonths: 1}},
		{"huge duration", challenge.CreateChallengeRequest{Title: "x", CadenceDays: 1, DurationDays: 2000000000}},
		{"huge months", challenge.CreateChallengeRequest{Title: "x", CadenceDays: 1, DurationMonths: 100000}},
		{"huge cadence", challenge.CreateChallengeRequest{Title: "x", CadenceDays: 2000000000, DurationDays: 7}},
	}
	for _, tc := range cases {
		_, err := h.challenges.Create(ctx, ownerClerkID, &tc.req)
		assert.ErrorIs(t, err, apperr.ErrValidation, tc.name)
	}

	_, err := h.challenges.Create(ctx, "user_unknown", &challenge.CreateChallengeRequest{Title: "x", CadenceDays: 1, DurationDays: 7})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChallengeService_UpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ch := h.createChallenge(t, 7, 1)

	title := "Renamed"
	paused := challenge.StatusPaused
	off := false
	got, err := h.challenges.Update(ctx, ownerClerkID, ch.ID, &challenge.UpdateChallengeRequest{
		Title:              &title,
		Status:             &paused,
		EmailNotifications: &off,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, challenge.StatusPaused, got.Status)
	assert.False(t, got.EmailNotifications)

	completed := challenge.StatusCompleted
	_, err = h.challenges.Update(ctx, ownerClerkID, ch.ID, &challenge.UpdateChallengeRequest{Status: &completed})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, h.challenges.Delete(ctx, ownerClerkID, ch.ID))
	_, err = h.challenges.Get(ctx, ownerClerkID, ch.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := h.challenges.List(ctx, ownerClerkID)
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestChallengeService_OtherOwnersSeeNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ch := h.createChallenge(t, 7, 1)
	h.addOwner(t, "user_intruder", "")

	_, err := h.challenges.Get(ctx, "user_intruder", ch.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = h.challenges.ListUploads(ctx, "user_intruder", ch.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	err = h.challenges.Delete(ctx, "user_intruder", ch.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChallengeService_ListAchievements(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ch := h.createChallenge(t, 7, 1)

	v := testVideo("firstupload", testStart.Add(10*time.Hour))
	_, err := h.attributor.Attribute(ctx, ch.ID, ownerChannel, &v, "manual")
	require.NoError(t, err)

	items, err := h.challenges.ListAchievements(ctx, ownerClerkID, ch.ID)
	require.NoError(t, err)
	require.Len(t, items, len(achievementTypes()))
	for _, it := range items {
		if it.Type == "first_upload" {
			assert.True(t, it.Unlocked)
			assert.NotNil(t, it.UnlockedAt)
		} else {
			assert.False(t, it.Unlocked, it.Type)
		}
	}

	uploads, err := h.challenges.ListUploads(ctx, ownerClerkID, ch.ID)
	require.NoError(t, err)
	assert.Len(t, uploads, 1)

	log, err := h.challenges.ListNotificationLog(ctx, ownerClerkID, ch.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, log)
}

func achievementTypes() []string {
	return []string{
		"first_upload", "streak_7", "streak_14", "streak_30",
		"uploads_10", "uploads_25", "uploads_50", "halfway", "perfect_completion",
	}
}
