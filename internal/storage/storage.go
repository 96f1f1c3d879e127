// Package storage is the source of truth for challenges and everything derived from
// them. Both implementations enforce the same uniqueness rules: one upload per
// (challenge, video), one achievement per (user, challenge, type), one notification per
// (challenge, type, dedup key) and no overlapping dedup windows per (challenge, type).
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/challenge"
	"creatorChallengeAPI/internal/channel"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/upload"
	"creatorChallengeAPI/internal/user"
)

var (
	// ErrDuplicate is returned when a write hits one of the uniqueness constraints.
	ErrDuplicate = errors.New("duplicate")
	// ErrVersionConflict is returned when a challenge changed since it was read.
	ErrVersionConflict = errors.New("challenge version conflict")
)

type ChallengeStore interface {
	CreateChallenge(ctx context.Context, ch *challenge.Challenge) error
	GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	ListChallengesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*challenge.Challenge, error)
	ListActiveChallenges(ctx context.Context) ([]*challenge.Challenge, error)
	// UpdateChallenge writes ch if its Version still matches and bumps Version.
	UpdateChallenge(ctx context.Context, ch *challenge.Challenge) error
}

type UploadStore interface {
	UploadExists(ctx context.Context, challengeID uuid.UUID, videoID string) (bool, error)
	// RecordUpload inserts rec and writes ch (versioned) in one transaction.
	RecordUpload(ctx context.Context, ch *challenge.Challenge, rec *upload.Record) error
	ListUploads(ctx context.Context, challengeID uuid.UUID) ([]*upload.Record, error)
}

type AchievementStore interface {
	ListAchievements(ctx context.Context, challengeID uuid.UUID) ([]*achievement.Record, error)
	// UnlockAchievement inserts rec and adds its points to the challenge total.
	UnlockAchievement(ctx context.Context, rec *achievement.Record) error
}

type NotificationLogStore interface {
	InsertNotificationLog(ctx context.Context, e *notification.LogEntry) error
	// RecordMissed inserts the missed entry and writes ch (versioned) in one
	// transaction, so the ledger penalty is applied at most once per slot.
	RecordMissed(ctx context.Context, ch *challenge.Challenge, e *notification.LogEntry) error
	LastNotification(ctx context.Context, challengeID uuid.UUID, t notification.NotificationType) (*notification.LogEntry, error)
	ListNotificationLog(ctx context.Context, challengeID uuid.UUID) ([]*notification.LogEntry, error)
}

type InboxStore interface {
	AppendInbox(ctx context.Context, item *notification.InboxItem) error
	ListInbox(ctx context.Context, f notification.InboxFilter) ([]*notification.InboxItem, int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// DirectoryStore reads what the owning application maintains about users.
type DirectoryStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	UpsertUser(ctx context.Context, u *user.User) error
	GetChannelConnection(ctx context.Context, userID uuid.UUID) (*channel.Connection, error)
	SaveChannelToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
	ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error)
	RegisterDevice(ctx context.Context, userID uuid.UUID, tok notification.DeviceToken) error
}

type Store interface {
	ChallengeStore
	UploadStore
	AchievementStore
	NotificationLogStore
	InboxStore
	DirectoryStore
	Ping(ctx context.Context) error
}
