// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DELTA QUERY
// Today's completed count against the target, without writing anything but
// the dry-run log.
// ══════════════════════════════════════════════════════════════════════════════

// GetDeltaQuery asks for today's delta.
type GetDeltaQuery struct {
	UserID string
}

// DeltaDTO is today's race measured in the user's zone.
type DeltaDTO struct {
	TZ               string   `json:"tz"`
	Today            string   `json:"today"`
	CompletedToday   int      `json:"completedToday"`
	TargetToday      int      `json:"targetToday"`
	Delta            int      `json:"delta"`
	CompletedTaskIDs []string `json:"completedTaskIds"`
}

// GetDeltaHandler handles GetDeltaQuery.
type GetDeltaHandler struct {
	tracker *race.Tracker
	dryRun  *race.DryRun
	now     func() time.Time
}

// NewGetDeltaHandler creates a new GetDeltaHandler.
func NewGetDeltaHandler(tracker *race.Tracker, dryRun *race.DryRun) *GetDeltaHandler {
	return &GetDeltaHandler{tracker: tracker, dryRun: dryRun, now: time.Now}
}

// WithClock overrides the time source.
func (h *GetDeltaHandler) WithClock(now func() time.Time) *GetDeltaHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *GetDeltaHandler) Handle(ctx context.Context, q GetDeltaQuery) (*DeltaDTO, error) {
	if q.UserID == "" {
		return nil, shared.ErrMissingUser
	}

	snap, err := h.tracker.Snapshot(ctx, q.UserID, h.now())
	if err != nil {
		return nil, err
	}

	dto := &DeltaDTO{
		TZ:               snap.Timezone(),
		Today:            snap.Day,
		CompletedToday:   snap.State.CompletedToday,
		TargetToday:      snap.State.TargetToday,
		Delta:            snap.State.Delta,
		CompletedTaskIDs: snap.State.CompletedTaskIDs,
	}

	h.dryRun.Record(ctx, q.UserID, pace.DryRunRaceUpdate, dto)
	return dto, nil
}
