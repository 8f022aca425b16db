package timeutil

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestDayRange_RoundTripsAcrossDST(t *testing.T) {
	tests := []struct {
		name string
		zone string
		day  string
	}{
		{"new york spring forward", "America/New_York", "2024-03-10"},
		{"new york fall back", "America/New_York", "2024-11-03"},
		{"london spring forward", "Europe/London", "2024-03-31"},
		{"london fall back", "Europe/London", "2024-10-27"},
		{"sydney fall back", "Australia/Sydney", "2024-04-07"},
		{"kolkata no dst", "Asia/Kolkata", "2024-06-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := mustZone(t, tt.zone)
			day, err := ParseDate(tt.day)
			require.NoError(t, err)

			noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
			start, end := DayRange(noon, loc)

			localStart := start.In(loc)
			localEnd := end.In(loc)

			assert.Equal(t, tt.day, localStart.Format(DateLayout))
			assert.Equal(t, "00:00:00.000", localStart.Format("15:04:05.000"))
			assert.Equal(t, tt.day, localEnd.Format(DateLayout))
			assert.Equal(t, "23:59:59.999", localEnd.Format("15:04:05.000"))
			assert.Equal(t, time.UTC, start.Location())
		})
	}
}

// In these zones the clocks jump from 00:00 straight to 01:00, so the day
// starts at 01:00 and must not reach back into the previous date.
func TestDayRange_MidnightGap(t *testing.T) {
	tests := []struct {
		zone string
		day  string
	}{
		{"America/Santiago", "2024-09-08"},
		{"America/Havana", "2024-03-10"},
		{"America/Asuncion", "2024-10-06"},
		{"Asia/Beirut", "2024-03-31"},
	}

	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			loc := mustZone(t, tt.zone)
			day, err := ParseDate(tt.day)
			require.NoError(t, err)

			noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
			start, end := DayRange(noon, loc)

			assert.Equal(t, tt.day+" 01:00:00.000", start.In(loc).Format(DateLayout+" 15:04:05.000"))
			assert.Equal(t, tt.day+" 23:59:59.999", end.In(loc).Format(DateLayout+" 15:04:05.000"))
			assert.Equal(t, 23*time.Hour-time.Millisecond, end.Sub(start))

			// the last second of the previous day stays out of the range
			prevStart, prevEnd := DayRange(start.Add(-time.Second), loc)
			assert.True(t, prevEnd.Before(start))
			assert.Equal(t, day.AddDate(0, 0, -1).Format(DateLayout), LocalDate(prevStart, loc))
		})
	}
}

func TestWallClock_GapResolvesForward(t *testing.T) {
	loc := mustZone(t, "America/New_York")

	// 02:30 does not exist on 2024-03-10; it moves forward by the hour skipped.
	got := WallClock(2024, time.March, 10, 2, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC), got)
	assert.Equal(t, "03:30 EDT", got.In(loc).Format("15:04 MST"))

	// 01:30 on 2024-11-03 happens twice; either reading shows 01:30.
	got = WallClock(2024, time.November, 3, 1, 30, 0, 0, loc)
	assert.Equal(t, "01:30", got.In(loc).Format("15:04"))
}

func TestDayRange_TransitionDayLength(t *testing.T) {
	loc := mustZone(t, "America/New_York")

	spring := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)
	start, end := DayRange(spring, loc)
	assert.Equal(t, 23*time.Hour-time.Millisecond, end.Sub(start))

	fall := time.Date(2024, 11, 3, 12, 0, 0, 0, loc)
	start, end = DayRange(fall, loc)
	assert.Equal(t, 25*time.Hour-time.Millisecond, end.Sub(start))
}

func TestLoadLocation_FallsBack(t *testing.T) {
	assert.Equal(t, "Asia/Kolkata", LoadLocation("Not/AZone", "Asia/Kolkata").String())
	assert.Equal(t, "Europe/Berlin", LoadLocation("Europe/Berlin", "Asia/Kolkata").String())
	assert.Equal(t, "Asia/Kolkata", LoadLocation("", "Asia/Kolkata").String())
	assert.Equal(t, time.UTC, LoadLocation("bogus", "also-bogus"))
}

func TestWeekRange(t *testing.T) {
	tests := []struct {
		name   string
		at     time.Time
		monday string
		sunday string
	}{
		{"monday", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), "2024-06-10", "2024-06-16"},
		{"wednesday", time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC), "2024-06-10", "2024-06-16"},
		{"sunday", time.Date(2024, 6, 16, 23, 0, 0, 0, time.UTC), "2024-06-10", "2024-06-16"},
		{"month boundary", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), "2024-02-26", "2024-03-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monday, sunday := WeekRange(tt.at, time.UTC)
			assert.Equal(t, tt.monday, monday)
			assert.Equal(t, tt.sunday, sunday)
		})
	}
}

func TestWeekRange_UsesLocalCalendar(t *testing.T) {
	// Sunday 22:00 UTC is already Monday morning in Tokyo.
	at := time.Date(2024, 6, 16, 22, 0, 0, 0, time.UTC)

	monday, _ := WeekRange(at, time.UTC)
	assert.Equal(t, "2024-06-10", monday)

	monday, sunday := WeekRange(at, mustZone(t, "Asia/Tokyo"))
	assert.Equal(t, "2024-06-17", monday)
	assert.Equal(t, "2024-06-23", sunday)
}

func TestDaysSinceMonday(t *testing.T) {
	assert.Equal(t, 6, DaysSinceMonday(time.Sunday))
	assert.Equal(t, 0, DaysSinceMonday(time.Monday))
	assert.Equal(t, 5, DaysSinceMonday(time.Saturday))
}

func TestMinutesHelpers(t *testing.T) {
	loc := mustZone(t, "Asia/Kolkata")
	at := time.Date(2024, 6, 15, 4, 30, 0, 0, time.UTC) // 10:00 IST

	assert.Equal(t, 600, MinutesOfDay(at, loc))
	assert.Equal(t, 90, MinutesBetween(at.Add(-90*time.Minute), at))
	assert.Equal(t, 0, MinutesBetween(at.Add(time.Minute), at))
}
