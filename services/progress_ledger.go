package services

import (
	"math"
	"time"

	"creatorChallengeAPI/internal/achievement"
	"creatorChallengeAPI/internal/challenge"
)

const (
	basePoints             = 10
	onTimeBonus            = 5
	maxStreakBonus         = 10
	perfectCompletionBonus = 1000
	completionBonus        = 500
)

// LedgerChange describes what one transition did to a challenge.
type LedgerChange struct {
	SlotPoints      int
	PrevStreak      int
	CompletionBonus int
	// Completed is true only for the transition that completed the challenge.
	Completed bool
}

// SlotPoints is the award for one attributed upload given the streak it produces.
func SlotPoints(onTime bool, streakAfter int) int {
	points := basePoints
	if onTime {
		points += onTimeBonus
	}
	return points + min(streakAfter, maxStreakBonus)
}

// ApplyUpload fills slot idx and recomputes every derived field. ch is not modified;
// the returned challenge still carries ch's Version so the write can be checked.
func ApplyUpload(ch *challenge.Challenge, idx int, videoID string, onTime bool, now time.Time) (*challenge.Challenge, LedgerChange) {
	next := ch.Clone()
	change := LedgerChange{PrevStreak: ch.StreakCount}

	if onTime {
		next.StreakCount++
	} else {
		next.StreakCount = 0
	}
	next.LongestStreak = max(next.LongestStreak, next.StreakCount)

	change.SlotPoints = SlotPoints(onTime, next.StreakCount)
	slot := &next.Schedule[idx]
	slot.Uploaded = true
	slot.OnTime = onTime
	slot.VideoID = &videoID
	slot.Points = change.SlotPoints
	next.PointsEarned += change.SlotPoints

	next.CompletionPercentage = max(ch.CompletionPercentage, completion(next))
	allFilled := next.UploadedCount() == len(next.Schedule)
	if !allFilled {
		next.CompletionPercentage = min(next.CompletionPercentage, 99)
	}
	next.NextDeadline = NextDeadline(next, now)

	if allFilled && next.Status != challenge.StatusCompleted {
		change.CompletionBonus = completionBonus
		if isPerfect(next) {
			change.CompletionBonus = perfectCompletionBonus
		}
		next.PointsEarned += change.CompletionBonus
		next.Status = challenge.StatusCompleted
		change.Completed = true
	}
	return next, change
}

// ApplyMiss records that slot idx was not filled on time. The streak is only reset
// when no later slot already holds an upload, so a miss detected late never undoes
// a streak built after it.
func ApplyMiss(ch *challenge.Challenge, idx int, now time.Time) *challenge.Challenge {
	next := ch.Clone()
	next.MissedDays++

	laterUpload := false
	for _, s := range next.Schedule[idx+1:] {
		if s.Uploaded {
			laterUpload = true
			break
		}
	}
	if !laterUpload {
		next.StreakCount = 0
	}
	next.NextDeadline = NextDeadline(next, now)
	return next
}

// NextDeadline is the deadline of the earliest slot that is still open at now, or
// nil when none remain.
func NextDeadline(ch *challenge.Challenge, now time.Time) *time.Time {
	for _, s := range ch.Schedule {
		if s.Uploaded {
			continue
		}
		if d := s.Deadline(); d.After(now) {
			return &d
		}
	}
	return nil
}

func Snapshot(ch *challenge.Challenge) achievement.Snapshot {
	return achievement.Snapshot{
		TotalUploads:         ch.UploadedCount(),
		CurrentStreak:        ch.StreakCount,
		LongestStreak:        ch.LongestStreak,
		MissedDays:           missedOrLate(ch),
		CompletionPercentage: ch.CompletionPercentage,
		Completed:            ch.Status == challenge.StatusCompleted,
	}
}

// missedOrLate also counts late fills the sweep has not recorded as misses yet.
func missedOrLate(ch *challenge.Challenge) int {
	late := 0
	for _, s := range ch.Schedule {
		if s.Uploaded && !s.OnTime {
			late++
		}
	}
	return max(ch.MissedDays, late)
}

// completion only reaches 100 once every slot is filled; rounding alone never
// completes a long schedule.
func completion(ch *challenge.Challenge) int {
	total := len(ch.Schedule)
	if total == 0 {
		return 0
	}
	uploaded := ch.UploadedCount()
	if uploaded >= total {
		return 100
	}
	pct := int(math.Round(100 * float64(uploaded) / float64(total)))
	return min(max(pct, 0), 99)
}

// isPerfect means no recorded misses and every slot filled on time.
func isPerfect(ch *challenge.Challenge) bool {
	if ch.MissedDays != 0 {
		return false
	}
	for _, s := range ch.Schedule {
		if !s.OnTime {
			return false
		}
	}
	return true
}
