package race

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// Snapshot is today's race for one user, measured in the user's zone.
type Snapshot struct {
	UserID   string
	Location *time.Location
	Day      string
	Config   pace.ShadowConfig
	State    pace.RaceState

	// HourlyRate is the user's completions in the last hour.
	HourlyRate float64
}

// Timezone is the zone name of the snapshot.
func (s *Snapshot) Timezone() string {
	return s.Location.String()
}

// Tracker measures today's race.
type Tracker struct {
	resolver *Resolver
	activity pace.ActivityRepository
}

// NewTracker creates a new Tracker.
func NewTracker(resolver *Resolver, activity pace.ActivityRepository) *Tracker {
	return &Tracker{resolver: resolver, activity: activity}
}

// Resolver exposes the settings resolver the tracker reads through.
func (t *Tracker) Resolver() *Resolver {
	return t.resolver
}

// Snapshot counts today's distinct user-owned completions against the
// resolved target.
func (t *Tracker) Snapshot(ctx context.Context, userID string, now time.Time) (*Snapshot, error) {
	cfg, err := t.resolver.Config(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc, err := t.resolver.Location(ctx, userID)
	if err != nil {
		return nil, err
	}

	start, end := timeutil.DayRange(now, loc)

	// The hourly window can reach back across local midnight.
	from := start
	if hourAgo := now.Add(-pace.HourlyRateWindow); hourAgo.Before(from) {
		from = hourAgo
	}

	completions, err := t.activity.CompletionsBetween(ctx, userID, from, end)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}

	return &Snapshot{
		UserID:     userID,
		Location:   loc,
		Day:        timeutil.LocalDate(now, loc),
		Config:     cfg,
		State:      pace.NewRaceState(cfg, pace.CompletedTaskIDs(completions, start, end)),
		HourlyRate: pace.HourlyRate(completions, now),
	}, nil
}
