package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// IntervalSchedule runs a job at a fixed interval after the previous check.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule. Non-positive intervals become one minute.
func Every(interval time.Duration) *IntervalSchedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IntervalSchedule{Interval: interval}
}

// Next returns t plus the interval.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// ParseSchedule accepts "@every <duration>" or a 5-field cron expression.
func ParseSchedule(expr string) (Schedule, error) {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(expr), "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid interval %q", expr)
		}
		return Every(d), nil
	}
	return ParseCronExpression(expr)
}
