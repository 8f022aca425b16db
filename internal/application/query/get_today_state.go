package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// DefaultDifficultyTier is reported when no row carries one.
const DefaultDifficultyTier = "normal"

// GetTodayStateQuery asks for the dashboard state.
type GetTodayStateQuery struct {
	UserID string
}

// TodayStateDTO is the newest daily row laid over today's defaults.
type TodayStateDTO struct {
	Date              string   `json:"date"`
	UserDistance      float64  `json:"user_distance"`
	ShadowDistance    float64  `json:"shadow_distance"`
	Lead              float64  `json:"lead"`
	Band              string   `json:"band"`
	UserSpeedAvg      *float64 `json:"user_speed_avg"`
	ShadowSpeedTarget *float64 `json:"shadow_speed_target"`
	DifficultyTier    string   `json:"difficulty_tier"`
	TZ                string   `json:"tz"`

	Commit *pace.Commit      `json:"commit"`
	Config pace.ShadowConfig `json:"config"`
}

// GetTodayStateHandler handles GetTodayStateQuery.
type GetTodayStateHandler struct {
	resolver *race.Resolver
	progress pace.ProgressRepository
	dryRun   *race.DryRun
	now      func() time.Time
}

// NewGetTodayStateHandler creates a new GetTodayStateHandler.
func NewGetTodayStateHandler(resolver *race.Resolver, progress pace.ProgressRepository, dryRun *race.DryRun) *GetTodayStateHandler {
	return &GetTodayStateHandler{resolver: resolver, progress: progress, dryRun: dryRun, now: time.Now}
}

// WithClock overrides the time source.
func (h *GetTodayStateHandler) WithClock(now func() time.Time) *GetTodayStateHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *GetTodayStateHandler) Handle(ctx context.Context, q GetTodayStateQuery) (*TodayStateDTO, error) {
	if q.UserID == "" {
		return nil, shared.ErrMissingUser
	}

	cfg, err := h.resolver.Config(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	loc, err := h.resolver.Location(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	today := timeutil.LocalDate(h.now(), loc)

	target := cfg.BaseSpeed
	if cfg.ShadowSpeedTarget != nil {
		target = *cfg.ShadowSpeedTarget
	}
	state := &TodayStateDTO{
		Date:              today,
		ShadowSpeedTarget: &target,
		DifficultyTier:    DefaultDifficultyTier,
		TZ:                loc.String(),
		Config:            cfg,
	}

	row, err := h.progress.LatestDaily(ctx, q.UserID)
	switch {
	case errors.Is(err, shared.ErrNoDailyRow):
	case err != nil:
		return nil, fmt.Errorf("today state: %w", err)
	case row != nil:
		state.overlay(*row)
	}
	state.Band = pace.Band(state.Lead).String()

	commit, err := h.progress.GetCommit(ctx, q.UserID, today)
	if err != nil {
		return nil, fmt.Errorf("today state: commit: %w", err)
	}
	state.Commit = commit

	h.dryRun.Record(ctx, q.UserID, pace.DryRunStateSnapshot, map[string]any{
		"cfg":   cfg,
		"tz":    state.TZ,
		"state": state,
	})
	return state, nil
}

func (s *TodayStateDTO) overlay(row pace.DailyProgress) {
	s.Date = row.Date
	s.UserDistance = row.UserDistance
	s.ShadowDistance = row.ShadowDistance
	s.Lead = row.Lead
	s.UserSpeedAvg = row.UserSpeedAvg
	if row.ShadowSpeedTarget != nil {
		s.ShadowSpeedTarget = row.ShadowSpeedTarget
	}
	if row.DifficultyTier != "" {
		s.DifficultyTier = row.DifficultyTier
	}
}
