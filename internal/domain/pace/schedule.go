package pace

import (
	"cmp"
	"slices"
	"time"

	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHADOW SCHEDULE
// The shadow works through the user's active tasks at fixed local times.
// Each planned instance is the window the Alignment Classifier judges.
// ══════════════════════════════════════════════════════════════════════════════

// TimeAnchor is the part of the day a task belongs to.
type TimeAnchor string

const (
	AnchorMorning TimeAnchor = "morning"
	AnchorMidday  TimeAnchor = "midday"
	AnchorEvening TimeAnchor = "evening"
	AnchorNight   TimeAnchor = "night"
	AnchorAnytime TimeAnchor = "anytime"
)

// AnchorOrder is the order the buckets are planned in.
var AnchorOrder = []TimeAnchor{AnchorMorning, AnchorMidday, AnchorEvening, AnchorNight, AnchorAnytime}

// anchorStart is the local minute-of-day of each bucket's first slot.
var anchorStart = map[TimeAnchor]int{
	AnchorMorning: 9 * 60,
	AnchorMidday:  13 * 60,
	AnchorEvening: 18 * 60,
	AnchorNight:   21 * 60,
	AnchorAnytime: 15 * 60,
}

const (
	// SlotSpacing separates consecutive tasks of one bucket.
	SlotSpacing = 15 * time.Minute
	// SlotDuration is the length of a planned window.
	SlotDuration = 10 * time.Minute
)

// NormalizeAnchor maps empty and unknown anchors to anytime.
func NormalizeAnchor(a TimeAnchor) TimeAnchor {
	if _, ok := anchorStart[a]; ok {
		return a
	}
	return AnchorAnytime
}

func anchorRank(a TimeAnchor) int {
	return slices.Index(AnchorOrder, NormalizeAnchor(a))
}

// ShadowTask is the shadow's mirror of one active user task.
type ShadowTask struct {
	ID        string
	TaskID    string
	Title     string
	Anchor    TimeAnchor
	OrderHint *int
	CreatedAt time.Time
}

// PlannedInstance is one window of the day's shadow schedule.
type PlannedInstance struct {
	ShadowTaskID string
	Date         string
	StartAt      time.Time
	EndAt        time.Time
}

// SortShadowTasks orders tasks by anchor bucket, then order hint (unset
// last), then creation time. The sort is stable.
func SortShadowTasks(tasks []ShadowTask) {
	slices.SortStableFunc(tasks, func(a, b ShadowTask) int {
		if c := cmp.Compare(anchorRank(a.Anchor), anchorRank(b.Anchor)); c != 0 {
			return c
		}
		switch {
		case a.OrderHint == nil && b.OrderHint != nil:
			return 1
		case a.OrderHint != nil && b.OrderHint == nil:
			return -1
		case a.OrderHint != nil && b.OrderHint != nil:
			if c := cmp.Compare(*a.OrderHint, *b.OrderHint); c != 0 {
				return c
			}
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// PlanDay lays out the shadow's schedule for the local calendar date
// (YYYY-MM-DD) in loc. The i-th task of a bucket starts i*SlotSpacing after
// the bucket's base time; minutes past midnight roll into the next day.
func PlanDay(tasks []ShadowTask, date string, loc *time.Location) ([]PlannedInstance, error) {
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, err
	}
	y, m, d := day.Date()

	sorted := slices.Clone(tasks)
	SortShadowTasks(sorted)

	out := make([]PlannedInstance, 0, len(sorted))
	slot := make(map[TimeAnchor]int, len(AnchorOrder))
	for _, t := range sorted {
		anchor := NormalizeAnchor(t.Anchor)
		minute := anchorStart[anchor] + slot[anchor]*int(SlotSpacing/time.Minute)
		slot[anchor]++

		start := timeutil.WallClock(y, m, d, 0, minute, 0, 0, loc)
		out = append(out, PlannedInstance{
			ShadowTaskID: t.ID,
			Date:         date,
			StartAt:      start,
			EndAt:        start.Add(SlotDuration),
		})
	}
	return out, nil
}
