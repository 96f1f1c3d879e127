package upload

import (
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceManual Source = "manual"
	SourceSweep  Source = "sweep"
)

// Record is an external video attributed to one schedule slot. Unique per
// (ChallengeID, VideoID).
type Record struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	ChallengeID  uuid.UUID     `json:"challenge_id" db:"challenge_id"`
	VideoID      string        `json:"video_id" db:"video_id"`
	Title        string        `json:"title" db:"title"`
	URL          string        `json:"url" db:"url"`
	PublishedAt  time.Time     `json:"published_at" db:"published_at"`
	SlotIndex    int           `json:"slot_index" db:"slot_index"`
	SlotDate     time.Time     `json:"slot_date" db:"slot_date"`
	OnTime       bool          `json:"on_time" db:"on_time"`
	PointsEarned int           `json:"points_earned" db:"points_earned"`
	ViewCount    int64         `json:"view_count" db:"view_count"`
	LikeCount    int64         `json:"like_count" db:"like_count"`
	CommentCount int64         `json:"comment_count" db:"comment_count"`
	Duration     time.Duration `json:"duration" db:"duration_seconds"`
	Source       Source        `json:"source" db:"source"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}
