package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/upload"
	"creatorChallengeAPI/internal/user"
)

// setupTestDB connects to TEST_DATABASE_URL, migrates it and seeds one user.
func setupTestDB(t *testing.T) (*PostgresStore, uuid.UUID) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := OpenPool(ctx, PoolConfig{URL: dbURL, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))

	store := NewPostgresStore(pool)
	tag := uuid.NewString()
	u := &user.User{ClerkID: "clerk_" + tag, Email: "test+" + tag + "@example.com"}
	require.NoError(t, store.UpsertUser(ctx, u))
	t.Cleanup(func() { cleanupUser(pool, u.ID) })

	// Upserting again keeps the row.
	again := &user.User{ClerkID: u.ClerkID, Email: u.Email, DisplayName: "pg"}
	require.NoError(t, store.UpsertUser(ctx, again))
	require.Equal(t, u.ID, again.ID)

	return store, u.ID
}

func cleanupUser(pool *pgxpool.Pool, userID uuid.UUID) {
	ctx := context.Background()
	for _, q := range []string{
		`DELETE FROM challenge_notification_log WHERE challenge_id IN (SELECT id FROM challenges WHERE owner_id = $1)`,
		`DELETE FROM challenge_achievements WHERE user_id = $1`,
		`DELETE FROM challenge_uploads WHERE challenge_id IN (SELECT id FROM challenges WHERE owner_id = $1)`,
		`DELETE FROM notifications WHERE user_id = $1`,
		`DELETE FROM challenges WHERE owner_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	} {
		pool.Exec(ctx, q, userID)
	}
}

func createPGChallenge(t *testing.T, s *PostgresStore, owner uuid.UUID) *challenge.Challenge {
	t.Helper()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	slots, err := challenge.GenerateSchedule(start, 7, 1)
	require.NoError(t, err)
	ch := &challenge.Challenge{
		OwnerID: owner, Title: "pg", CadenceDays: 1, VideosPerCadence: 1, DurationDays: 7,
		StartDate: start, Status: challenge.StatusActive, Schedule: slots,
	}
	require.NoError(t, s.CreateChallenge(context.Background(), ch))
	return ch
}

func TestPostgresStore_RecordUploadConstraint(t *testing.T) {
	s, owner := setupTestDB(t)
	ctx := context.Background()
	ch := createPGChallenge(t, s, owner)

	ch.Schedule[0].Uploaded = true
	rec := &upload.Record{
		ChallengeID: ch.ID, VideoID: "abcdefghijk", PublishedAt: ch.StartDate, SlotDate: ch.StartDate,
		OnTime: true, PointsEarned: 16, Source: upload.SourceManual, Duration: 90 * time.Second,
	}
	require.NoError(t, s.RecordUpload(ctx, ch, rec))
	assert.Equal(t, 2, ch.Version)

	dup := *rec
	dup.ID = uuid.Nil
	assert.ErrorIs(t, s.RecordUpload(ctx, ch, &dup), ErrDuplicate)

	stale := ch.Clone()
	stale.Version = 1
	other := &upload.Record{ChallengeID: ch.ID, VideoID: "zyxwvutsrqp", PublishedAt: ch.StartDate, SlotDate: ch.StartDate, Source: upload.SourceSweep}
	assert.ErrorIs(t, s.RecordUpload(ctx, stale, other), ErrVersionConflict)

	uploads, err := s.ListUploads(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, 90*time.Second, uploads[0].Duration)

	got, err := s.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, got.Schedule[0].Uploaded)
}

func TestPostgresStore_ReminderExclusion(t *testing.T) {
	s, owner := setupTestDB(t)
	ctx := context.Background()
	ch := createPGChallenge(t, s, owner)

	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	entry := func(sent time.Time) *notification.LogEntry {
		until := sent.Add(25 * time.Hour)
		return &notification.LogEntry{ChallengeID: ch.ID, Type: notification.TypeReminder, SentAt: sent, DedupUntil: &until}
	}
	require.NoError(t, s.InsertNotificationLog(ctx, entry(at)))
	assert.ErrorIs(t, s.InsertNotificationLog(ctx, entry(at.Add(2*time.Hour))), ErrDuplicate)
	require.NoError(t, s.InsertNotificationLog(ctx, entry(at.Add(25*time.Hour))))
}

func TestPostgresStore_UnlockAchievementOnce(t *testing.T) {
	s, owner := setupTestDB(t)
	ctx := context.Background()
	ch := createPGChallenge(t, s, owner)

	rec := func() *achievement.Record {
		return &achievement.Record{UserID: owner, ChallengeID: ch.ID, Type: achievement.TypeFirstUpload, Title: "First", Points: 50}
	}
	require.NoError(t, s.UnlockAchievement(ctx, rec()))
	assert.ErrorIs(t, s.UnlockAchievement(ctx, rec()), ErrDuplicate)

	got, err := s.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.PointsEarned)
}
