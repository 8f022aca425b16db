package pace

import (
	"math"
)

// Rollup recomputes a week's summary from its daily rows.
// The result depends only on the rows, so re-running it is idempotent.
//
// Carryover is the distance the user still owes the shadow:
// max(0, shadow_total - user_total).
func Rollup(userID, weekStart, weekEnd string, rows []DailyProgress) WeeklySummary {
	s := WeeklySummary{
		UserID:    userID,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
	}
	for _, r := range rows {
		s.UserTotal += r.UserDistance
		s.ShadowTotal += r.ShadowDistance
		switch {
		case r.Lead < 0:
			s.Wins++
		case r.Lead > 0:
			s.Losses++
		}
	}
	s.Carryover = math.Max(0, s.ShadowTotal-s.UserTotal)
	return s
}
