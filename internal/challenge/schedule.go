package challenge

import (
	"time"

	"creatorChallengeAPI/internal/apperr"
)

// Upper bounds on a challenge's length and cadence, roughly ten years.
const (
	MaxDurationDays   = 3660
	MaxDurationMonths = 120
)

// GenerateSchedule lays out one slot every cadenceDays starting at the start day,
// while k*cadence < duration. The result has ceil(duration/cadence) slots.
func GenerateSchedule(start time.Time, durationDays, cadenceDays int) ([]ScheduleSlot, error) {
	if cadenceDays <= 0 {
		return nil, apperr.Validation("cadence must be positive, got %d", cadenceDays)
	}
	if durationDays <= 0 {
		return nil, apperr.Validation("duration must be positive, got %d", durationDays)
	}
	if durationDays > MaxDurationDays {
		return nil, apperr.Validation("duration cannot exceed %d days, got %d", MaxDurationDays, durationDays)
	}
	if cadenceDays > MaxDurationDays {
		return nil, apperr.Validation("cadence cannot exceed %d days, got %d", MaxDurationDays, cadenceDays)
	}

	first := DayStart(start)
	slots := make([]ScheduleSlot, 0, (durationDays+cadenceDays-1)/cadenceDays)
	for k := 0; k*cadenceDays < durationDays; k++ {
		slots = append(slots, ScheduleSlot{
			Index:      k,
			TargetDate: first.AddDate(0, 0, k*cadenceDays),
		})
	}
	return slots, nil
}

// DurationFromMonths converts a month-based duration into days using calendar
// arithmetic from start, so a three month challenge from Jan 31 ends on May 1.
func DurationFromMonths(start time.Time, months int) (int, error) {
	if months <= 0 {
		return 0, apperr.Validation("duration months must be positive, got %d", months)
	}
	if months > MaxDurationMonths {
		return 0, apperr.Validation("duration cannot exceed %d months, got %d", MaxDurationMonths, months)
	}
	from := DayStart(start)
	to := from.AddDate(0, months, 0)
	return int(to.Sub(from).Hours()/24 + 0.5), nil
}
