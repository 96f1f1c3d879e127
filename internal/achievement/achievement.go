package achievement

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeFirstUpload       Type = "first_upload"
	TypeStreak7           Type = "streak_7"
	TypeStreak14          Type = "streak_14"
	TypeStreak30          Type = "streak_30"
	TypeUploads10         Type = "uploads_10"
	TypeUploads25         Type = "uploads_25"
	TypeUploads50         Type = "uploads_50"
	TypeHalfway           Type = "halfway"
	TypePerfectCompletion Type = "perfect_completion"
)

type CriteriaType string

const (
	CriteriaStreak       CriteriaType = "streak"
	CriteriaTotalUploads CriteriaType = "total_uploads"
	CriteriaCompletion   CriteriaType = "completion"
	CriteriaPerfect      CriteriaType = "perfect"
)

// Record is an unlocked achievement. Unique per (UserID, ChallengeID, Type).
type Record struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	ChallengeID uuid.UUID `json:"challenge_id" db:"challenge_id"`
	Type        Type      `json:"type" db:"type"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Points      int       `json:"points" db:"points"`
	UnlockedAt  time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type AchievementWithStatus struct {
	Type        Type       `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}
