package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeWelcome             NotificationType = "welcome"
	TypeReminder            NotificationType = "reminder"
	TypeMissed              NotificationType = "missed"
	TypeStreak              NotificationType = "streak"
	TypeCompletion          NotificationType = "completion"
	TypeAchievementUnlocked NotificationType = "achievement_unlocked"
	TypeUploadSuccess       NotificationType = "upload_success"
)

// LogEntry records that a notification was emitted. Storage rejects a second entry
// with the same (ChallengeID, Type, DedupKey) and any entry of the same
// (ChallengeID, Type) whose [SentAt, DedupUntil) range overlaps an existing one.
type LogEntry struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	ChallengeID uuid.UUID        `json:"challenge_id" db:"challenge_id"`
	Type        NotificationType `json:"type" db:"type"`
	DedupKey    *string          `json:"dedup_key,omitempty" db:"dedup_key"`
	SentAt      time.Time        `json:"sent_at" db:"sent_at"`
	DedupUntil  *time.Time       `json:"dedup_until,omitempty" db:"dedup_until"`
	Payload     map[string]any   `json:"payload" db:"payload"`
}

// InboxItem is an in-app notification shown to the user.
type InboxItem struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      uuid.UUID        `json:"user_id" db:"user_id"`
	ChallengeID *uuid.UUID       `json:"challenge_id,omitempty" db:"challenge_id"`
	Type        NotificationType `json:"type" db:"type"`
	Title       string           `json:"title" db:"title"`
	Body        string           `json:"body" db:"body"`
	Data        map[string]any   `json:"data" db:"data"`
	ReadAt      *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string    `json:"token"`
	Platform string    `json:"platform"`
	AddedAt  time.Time `json:"added_at"`
	LastUsed time.Time `json:"last_used"`
}

type InboxFilter struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Page       int
	PageSize   int
}
