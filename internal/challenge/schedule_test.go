package challenge

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creatorChallengeAPI/internal/apperr"
)

var jan1 = time.Date(2026, time.January, 1, 15, 30, 0, 0, time.UTC)

func TestGenerateSchedule_SlotCount(t *testing.T) {
	cases := []struct {
		duration, cadence, want int
	}{
		{7, 1, 7},
		{30, 7, 5},
		{28, 7, 4},
		{90, 3, 30},
		{1, 30, 1},
		{365, 2, 183},
	}

	for _, tc := range cases {
		slots, err := GenerateSchedule(jan1, tc.duration, tc.cadence)
		require.NoError(t, err)
		assert.Len(t, slots, tc.want, "duration=%d cadence=%d", tc.duration, tc.cadence)

		for i := 1; i < len(slots); i++ {
			assert.True(t, slots[i].TargetDate.After(slots[i-1].TargetDate), "slot %d not after slot %d", i, i-1)
			assert.Equal(t, i, slots[i].Index)
		}
	}
}

func TestGenerateSchedule_Layout(t *testing.T) {
	slots, err := GenerateSchedule(jan1, 10, 4)
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC) }
	want := []ScheduleSlot{
		{Index: 0, TargetDate: day(1)},
		{Index: 1, TargetDate: day(5)},
		{Index: 2, TargetDate: day(9)},
	}
	if diff := cmp.Diff(want, slots); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSchedule_RejectsNonPositive(t *testing.T) {
	for _, tc := range []struct{ duration, cadence int }{
		{0, 1}, {7, 0}, {-3, 1}, {7, -1},
		{MaxDurationDays + 1, 1}, {2000000000, 1}, {7, 2000000000},
	} {
		_, err := GenerateSchedule(jan1, tc.duration, tc.cadence)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestDurationFromMonths(t *testing.T) {
	days, err := DurationFromMonths(jan1, 3)
	require.NoError(t, err)
	assert.Equal(t, 31+28+31, days)

	_, err = DurationFromMonths(jan1, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = DurationFromMonths(jan1, MaxDurationMonths+1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	days, err = DurationFromMonths(jan1, MaxDurationMonths)
	require.NoError(t, err)
	assert.LessOrEqual(t, days, MaxDurationDays)
}

func TestWindowAndOpenSlot(t *testing.T) {
	slots, err := GenerateSchedule(jan1, 7, 1)
	require.NoError(t, err)
	c := &Challenge{StartDate: jan1, CadenceDays: 1, DurationDays: 7, Schedule: slots}

	opens, deadline, closes := c.Window(2)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), opens)
	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), deadline)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), closes)

	idx, ok := c.OpenSlotFor(time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// once slot 0 is filled, a second video the same day counts toward slot 1 early
	c.Schedule[0].Uploaded = true
	idx, ok = c.OpenSlotFor(time.Date(2026, 1, 1, 21, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = c.OpenSlotFor(time.Date(2025, 12, 31, 9, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestOpenSlotForPrefersOnTimeSlot(t *testing.T) {
	slots, err := GenerateSchedule(jan1, 7, 1)
	require.NoError(t, err)
	c := &Challenge{StartDate: jan1, CadenceDays: 1, DurationDays: 7, Schedule: slots}

	// Slot 0 was never filled. A video on Jan 2 is on time for slot 1 and must not
	// be spent as a late fill of slot 0.
	idx, ok := c.OpenSlotFor(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	// With slot 1 already taken the same video can only fill slot 0 late.
	c.Schedule[1].Uploaded = true
	c.Schedule[2].Uploaded = true
	idx, ok = c.OpenSlotFor(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestPollSince(t *testing.T) {
	slots, _ := GenerateSchedule(jan1, 7, 1)
	c := &Challenge{StartDate: jan1, CadenceDays: 1, DurationDays: 7, Schedule: slots}

	since, ok := c.PollSince(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), since)

	// slot 0 window closed at end of Jan 2, so polling starts at slot 1's window
	since, ok = c.PollSince(time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), since)

	_, ok = c.PollSince(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	vid := "abc"
	nd := jan1
	c := &Challenge{NextDeadline: &nd, Schedule: []ScheduleSlot{{Index: 0, VideoID: &vid}}}

	cp := c.Clone()
	*cp.Schedule[0].VideoID = "changed"
	cp.Schedule[0].Uploaded = true
	*cp.NextDeadline = jan1.Add(time.Hour)

	assert.Equal(t, "abc", *c.Schedule[0].VideoID)
	assert.False(t, c.Schedule[0].Uploaded)
	assert.Equal(t, jan1, *c.NextDeadline)
}
