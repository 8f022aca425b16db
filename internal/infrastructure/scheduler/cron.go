package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
//
//   - "*/10 * * * *" every 10 minutes
//   - "0 2 * * *"    every day at 02:00
//   - "30 3 * * 1"   every Monday at 03:30
type CronExpression struct {
	raw      string
	minutes  []int // 0-59
	hours    []int // 0-23
	days     []int // 1-31
	months   []int // 1-12
	weekdays []int // 0-6 (0 = Sunday)
}

// ParseCronExpression parses a cron expression string.
// Supports *, */n, n, n-m, n-m/s and n,m,o.
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	ce := &CronExpression{raw: expr}
	specs := []struct {
		name     string
		dst      *[]int
		min, max int
	}{
		{"minute", &ce.minutes, 0, 59},
		{"hour", &ce.hours, 0, 23},
		{"day", &ce.days, 1, 31},
		{"month", &ce.months, 1, 12},
		{"weekday", &ce.weekdays, 0, 6},
	}
	for i, spec := range specs {
		values, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		*spec.dst = values
	}
	return ce, nil
}

// MustParseCronExpression parses a cron expression or panics.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(err)
	}
	return ce
}

func parseField(field string, min, max int) ([]int, error) {
	var result []int
	for _, part := range strings.Split(field, ",") {
		values, err := parsePart(part, min, max)
		if err != nil {
			return nil, err
		}
		result = append(result, values...)
	}
	slices.Sort(result)
	return slices.Compact(result), nil
}

func parsePart(part string, min, max int) ([]int, error) {
	rangePart, stepPart, hasStep := strings.Cut(part, "/")

	step := 1
	if hasStep {
		n, err := strconv.Atoi(stepPart)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid step value: %q", stepPart)
		}
		step = n
	}

	start, end := min, max
	switch {
	case rangePart == "*":
	case strings.Contains(rangePart, "-"):
		lo, hi, _ := strings.Cut(rangePart, "-")
		var err error
		if start, err = atoiIn(lo, min, max); err != nil {
			return nil, err
		}
		if end, err = atoiIn(hi, min, max); err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("invalid range: %q", rangePart)
		}
	default:
		v, err := atoiIn(rangePart, min, max)
		if err != nil {
			return nil, err
		}
		start = v
		if !hasStep {
			end = v
		}
	}

	values := make([]int, 0, (end-start)/step+1)
	for i := start; i <= end; i += step {
		values = append(values, i)
	}
	return values, nil
}

func atoiIn(s string, min, max int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value: %q", s)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("value out of range [%d-%d]: %d", min, max, v)
	}
	return v, nil
}

// String returns the original cron expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching minute strictly after the given time, or
// the zero time when nothing matches within a year.
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)

	const maxIterations = 366 * 24 * 60
	for range maxIterations {
		if ce.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

func (ce *CronExpression) matches(t time.Time) bool {
	return slices.Contains(ce.minutes, t.Minute()) &&
		slices.Contains(ce.hours, t.Hour()) &&
		slices.Contains(ce.days, t.Day()) &&
		slices.Contains(ce.months, int(t.Month())) &&
		slices.Contains(ce.weekdays, int(t.Weekday()))
}
