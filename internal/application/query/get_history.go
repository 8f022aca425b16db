package query

import (
	"context"
	"fmt"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// History limits.
const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 180
	HistoryEventLimit  = 200
)

// GetHistoryQuery asks for the last N daily rows and recent alignments.
type GetHistoryQuery struct {
	UserID string
	Days   int
}

// Validate normalizes Days into [1, 180], defaulting to 30.
func (q *GetHistoryQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrMissingUser
	}
	switch {
	case q.Days <= 0:
		q.Days = DefaultHistoryDays
	case q.Days > MaxHistoryDays:
		q.Days = MaxHistoryDays
	}
	return nil
}

// HistoryDayDTO is a daily row with the tone band of its lead.
type HistoryDayDTO struct {
	pace.DailyProgress
	Band string `json:"band"`
}

// HistoryDTO is the progress history.
type HistoryDTO struct {
	Days   int                   `json:"days"`
	Daily  []HistoryDayDTO       `json:"daily"`
	Events []pace.AlignmentEntry `json:"events"`
}

// GetHistoryHandler handles GetHistoryQuery.
type GetHistoryHandler struct {
	progress pace.ProgressRepository
	activity pace.ActivityRepository
}

// NewGetHistoryHandler creates a new GetHistoryHandler.
func NewGetHistoryHandler(progress pace.ProgressRepository, activity pace.ActivityRepository) *GetHistoryHandler {
	return &GetHistoryHandler{progress: progress, activity: activity}
}

// Handle executes the query. Daily rows come back oldest first.
func (h *GetHistoryHandler) Handle(ctx context.Context, q GetHistoryQuery) (*HistoryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.progress.RecentDaily(ctx, q.UserID, q.Days)
	if err != nil {
		return nil, fmt.Errorf("history: daily: %w", err)
	}
	events, err := h.activity.RecentAlignments(ctx, q.UserID, HistoryEventLimit)
	if err != nil {
		return nil, fmt.Errorf("history: events: %w", err)
	}

	daily := make([]HistoryDayDTO, len(rows))
	for i, r := range rows {
		daily[i] = HistoryDayDTO{DailyProgress: r, Band: pace.Band(r.Lead).String()}
	}
	if events == nil {
		events = []pace.AlignmentEntry{}
	}
	return &HistoryDTO{Days: q.Days, Daily: daily, Events: events}, nil
}
