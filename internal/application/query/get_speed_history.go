package query

import (
	"context"
	"fmt"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// Speed history limits.
const (
	DefaultSpeedHistoryDays = 14
	MaxSpeedHistoryDays     = 90
)

// GetSpeedHistoryQuery asks for the speed series of the last N daily rows.
type GetSpeedHistoryQuery struct {
	UserID string
	Days   int
}

// Validate normalizes Days into [1, 90], defaulting to 14.
func (q *GetSpeedHistoryQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrMissingUser
	}
	switch {
	case q.Days <= 0:
		q.Days = DefaultSpeedHistoryDays
	case q.Days > MaxSpeedHistoryDays:
		q.Days = MaxSpeedHistoryDays
	}
	return nil
}

// SpeedHistoryDTO is the user's speed series, oldest day first.
type SpeedHistoryDTO struct {
	Days   int                  `json:"days"`
	Series []pace.DailyProgress `json:"series"`
}

// GetSpeedHistoryHandler handles GetSpeedHistoryQuery.
type GetSpeedHistoryHandler struct {
	progress pace.ProgressRepository
}

// NewGetSpeedHistoryHandler creates a new GetSpeedHistoryHandler.
func NewGetSpeedHistoryHandler(progress pace.ProgressRepository) *GetSpeedHistoryHandler {
	return &GetSpeedHistoryHandler{progress: progress}
}

// Handle executes the query.
func (h *GetSpeedHistoryHandler) Handle(ctx context.Context, q GetSpeedHistoryQuery) (*SpeedHistoryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.progress.RecentDaily(ctx, q.UserID, q.Days)
	if err != nil {
		return nil, fmt.Errorf("speed history: %w", err)
	}
	if rows == nil {
		rows = []pace.DailyProgress{}
	}
	return &SpeedHistoryDTO{Days: q.Days, Series: rows}, nil
}
