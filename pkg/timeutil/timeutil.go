// Package timeutil provides timezone-aware day and week boundaries.
// Users live in arbitrary IANA zones, so every boundary is computed in the
// user's own location and converted to UTC instants for storage queries.
package timeutil

import (
	"strings"
	"time"
)

// Date layouts used across the service.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

// FallbackZone is used when neither the requested nor the default zone loads.
var FallbackZone = time.UTC

// LoadLocation resolves an IANA zone name. An empty or unknown name falls back
// to defaultZone and then to UTC; the result is never nil.
func LoadLocation(name, defaultZone string) *time.Location {
	for _, candidate := range []string{name, defaultZone} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if loc, err := time.LoadLocation(candidate); err == nil {
			return loc
		}
	}
	return FallbackZone
}

// WallClock returns the UTC instant at which the wall clock in loc shows the
// given local date and time.
//
// The offset is taken at a first guess, applied, then re-checked at the
// resulting instant. If a DST transition lies between the two, the candidate
// whose wall clock reads the requested time wins. A time that falls in a
// spring-forward gap never shows on the wall clock; it resolves to the later
// candidate, shifted forward by the gap. Local midnight in a gap therefore
// maps to the first instant of the day.
func WallClock(year int, month time.Month, day, hour, min, sec, nsec int, loc *time.Location) time.Time {
	guess := time.Date(year, month, day, hour, min, sec, nsec, time.UTC)

	_, offset := guess.In(loc).Zone()
	first := guess.Add(-time.Duration(offset) * time.Second)

	_, corrected := first.In(loc).Zone()
	if corrected == offset {
		return first.UTC()
	}
	second := guess.Add(-time.Duration(corrected) * time.Second)

	switch {
	case showsWallTime(second, loc, guess):
		return second.UTC()
	case showsWallTime(first, loc, guess):
		return first.UTC()
	case first.After(second):
		return first.UTC()
	default:
		return second.UTC()
	}
}

// showsWallTime reports whether t read on a clock in loc matches want's
// fields, where want carries the wall time in UTC.
func showsWallTime(t time.Time, loc *time.Location, want time.Time) bool {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC).Equal(want)
}

// DayRange returns the inclusive UTC range covering the local calendar day of
// t in loc: local 00:00:00.000 through 23:59:59.999.
func DayRange(t time.Time, loc *time.Location) (start, end time.Time) {
	local := t.In(loc)
	y, m, d := local.Date()
	start = WallClock(y, m, d, 0, 0, 0, 0, loc)
	end = WallClock(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
	return start, end
}

// LocalDate formats t as YYYY-MM-DD in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string as a calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// MinutesOfDay returns the number of minutes since local midnight.
func MinutesOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// DaysSinceMonday returns how many days back the most recent Monday is,
// computed as (weekday + 6) % 7 with Sunday = 0.
func DaysSinceMonday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// WeekRange returns the Monday and Sunday calendar dates (inclusive) of the
// week containing t in loc.
func WeekRange(t time.Time, loc *time.Location) (monday, sunday string) {
	local := t.In(loc)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -DaysSinceMonday(local.Weekday()))
	end := start.AddDate(0, 0, 6)
	return start.Format(DateLayout), end.Format(DateLayout)
}

// MinutesBetween returns whole minutes elapsed from then to now, never negative.
func MinutesBetween(then, now time.Time) int {
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
