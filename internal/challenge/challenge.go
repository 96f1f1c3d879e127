package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusDeleted   Status = "deleted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusPaused, StatusDeleted:
		return true
	}
	return false
}

type Challenge struct {
	ID                   uuid.UUID      `json:"id" db:"id"`
	OwnerID              uuid.UUID      `json:"owner_id" db:"owner_id"`
	Title                string         `json:"title" db:"title"`
	CadenceDays          int            `json:"cadence_days" db:"cadence_days"`
	VideosPerCadence     int            `json:"videos_per_cadence" db:"videos_per_cadence"`
	DurationDays         int            `json:"duration_days" db:"duration_days"`
	StartDate            time.Time      `json:"start_date" db:"start_date"`
	Status               Status         `json:"status" db:"status"`
	StreakCount          int            `json:"streak_count" db:"streak_count"`
	LongestStreak        int            `json:"longest_streak" db:"longest_streak"`
	MissedDays           int            `json:"missed_days" db:"missed_days"`
	CompletionPercentage int            `json:"completion_percentage" db:"completion_percentage"`
	PointsEarned         int            `json:"points_earned" db:"points_earned"`
	NextDeadline         *time.Time     `json:"next_deadline" db:"next_deadline"`
	EmailNotifications   bool           `json:"email_notifications" db:"email_notifications"`
	Schedule             []ScheduleSlot `json:"schedule" db:"schedule"`
	Version              int            `json:"-" db:"version"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" db:"updated_at"`
}

// ScheduleSlot is one upload opportunity. Only Uploaded, OnTime, VideoID and Points
// change after generation.
type ScheduleSlot struct {
	Index      int       `json:"index"`
	TargetDate time.Time `json:"target_date"`
	Uploaded   bool      `json:"uploaded"`
	OnTime     bool      `json:"on_time"`
	VideoID    *string   `json:"video_id,omitempty"`
	Points     int       `json:"points"`
}

// Deadline is the last instant of the slot's target day.
func (s ScheduleSlot) Deadline() time.Time {
	return DayStart(s.TargetDate).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (c *Challenge) EndDate() time.Time {
	return DayStart(c.StartDate).AddDate(0, 0, c.DurationDays)
}

func (c *Challenge) UploadedCount() int {
	n := 0
	for _, s := range c.Schedule {
		if s.Uploaded {
			n++
		}
	}
	return n
}

// Window returns the attribution window of slot idx: a video published in
// [opens, closes] may fill the slot, and is on time when published no later than
// deadline.
func (c *Challenge) Window(idx int) (opens, deadline, closes time.Time) {
	slot := c.Schedule[idx]
	deadline = slot.Deadline()

	if idx == 0 {
		opens = DayStart(c.StartDate)
	} else {
		opens = DayStart(c.Schedule[idx-1].TargetDate)
	}

	if idx+1 < len(c.Schedule) {
		closes = c.Schedule[idx+1].Deadline()
	} else {
		closes = deadline.AddDate(0, 0, c.CadenceDays)
	}
	return opens, deadline, closes
}

// OpenSlotFor picks the slot a video published at publishedAt fills. The earliest
// un-uploaded slot the video is on time for wins; only when there is none does it
// fall back to the earliest un-uploaded slot whose window still takes it late.
func (c *Challenge) OpenSlotFor(publishedAt time.Time) (int, bool) {
	late := -1
	for i, s := range c.Schedule {
		if s.Uploaded {
			continue
		}
		opens, deadline, closes := c.Window(i)
		if publishedAt.Before(opens) || publishedAt.After(closes) {
			continue
		}
		if !publishedAt.After(deadline) {
			return i, true
		}
		if late < 0 {
			late = i
		}
	}
	return late, late >= 0
}

// PollSince is the earliest instant an upload could still be attributed at now.
// The boolean is false when no slot window is open any more.
func (c *Challenge) PollSince(now time.Time) (time.Time, bool) {
	for i, s := range c.Schedule {
		if s.Uploaded {
			continue
		}
		opens, _, closes := c.Window(i)
		if now.After(closes) {
			continue
		}
		return opens, true
	}
	return time.Time{}, false
}

// Clone returns a deep copy so ledger transitions never touch the caller's value.
func (c *Challenge) Clone() *Challenge {
	cp := *c
	if c.NextDeadline != nil {
		nd := *c.NextDeadline
		cp.NextDeadline = &nd
	}
	cp.Schedule = make([]ScheduleSlot, len(c.Schedule))
	for i, s := range c.Schedule {
		if s.VideoID != nil {
			v := *s.VideoID
			s.VideoID = &v
		}
		cp.Schedule[i] = s
	}
	return &cp
}
