package pace

import (
	"math"
	"time"
)

// Speed aggregation defaults.
const (
	DefaultLookback  = 6 * time.Hour
	MaxRecentSamples = 30
	HourlyRateWindow = time.Hour
)

// CountCompletedToday counts distinct user-owned task ids completed within
// [start, end], both ends inclusive.
func CountCompletedToday(completions []Completion, start, end time.Time) int {
	return len(CompletedTaskIDs(completions, start, end))
}

// CompletedTaskIDs returns the distinct user-owned task ids completed in
// [start, end], in first-seen order.
func CompletedTaskIDs(completions []Completion, start, end time.Time) []string {
	seen := make(map[string]struct{}, len(completions))
	ids := make([]string, 0, len(completions))
	for _, c := range completions {
		if !c.IsUserOwned() {
			continue
		}
		if c.CompletedAt.Before(start) || c.CompletedAt.After(end) {
			continue
		}
		if _, ok := seen[c.TaskID]; ok {
			continue
		}
		seen[c.TaskID] = struct{}{}
		ids = append(ids, c.TaskID)
	}
	return ids
}

// HourlyRate is the number of user-owned completions in the hour before now.
// It is the instantaneous speed recorded in a SpeedSample.
func HourlyRate(completions []Completion, now time.Time) float64 {
	n := 0
	since := now.Add(-HourlyRateWindow)
	for _, c := range completions {
		if c.IsUserOwned() && !c.CompletedAt.Before(since) && !c.CompletedAt.After(now) {
			n++
		}
	}
	return float64(n)
}

// RecentSpeed averages the finite sample speeds. When there are none it
// falls back to the day's stored average (0 when unset).
// The second return reports whether samples were used.
func RecentSpeed(samples []SpeedSample, dayAvg *float64) (float64, bool) {
	sum, n := 0.0, 0
	for _, s := range samples {
		if math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) {
			continue
		}
		sum += s.Speed
		n++
	}
	if n > 0 {
		return sum / float64(n), true
	}
	if dayAvg == nil {
		return 0, false
	}
	return *dayAvg, false
}
