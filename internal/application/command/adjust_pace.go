package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADJUST PACE COMMAND
// Intraday adapter: blends the recent speed into the newest row's target.
// ══════════════════════════════════════════════════════════════════════════════

// AdjustPaceCommand contains the data to adapt one user's pace.
type AdjustPaceCommand struct {
	UserID string
}

// AdjustPaceResult contains the new target.
type AdjustPaceResult struct {
	Date            string  `json:"date"`
	Target          float64 `json:"shadow_speed_target"`
	RecentUserSpeed float64 `json:"recent_user_speed"`

	// FromSamples reports whether speed samples were available.
	FromSamples bool `json:"-"`
}

// AdjustParams are the tunables of the intraday adapter.
type AdjustParams struct {
	Alpha      float64
	Clamp      pace.Clamp
	Lookback   time.Duration
	MaxSamples int
}

// DefaultAdjustParams returns alpha 0.5, clamp [0.5, 5], lookback 6h and
// at most 30 samples.
func DefaultAdjustParams() AdjustParams {
	return AdjustParams{
		Alpha:      pace.IntradayAlpha,
		Clamp:      pace.DefaultClamp(),
		Lookback:   pace.DefaultLookback,
		MaxSamples: pace.MaxRecentSamples,
	}
}

// AdjustPaceHandler handles the AdjustPaceCommand.
type AdjustPaceHandler struct {
	progress pace.ProgressRepository
	samples  pace.SpeedSampleStore
	dryRun   *race.DryRun
	params   AdjustParams
	now      func() time.Time
	log      *logger.Logger
}

// NewAdjustPaceHandler creates a new AdjustPaceHandler.
func NewAdjustPaceHandler(
	progress pace.ProgressRepository,
	samples pace.SpeedSampleStore,
	dryRun *race.DryRun,
	params AdjustParams,
	log *logger.Logger,
) *AdjustPaceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AdjustPaceHandler{
		progress: progress,
		samples:  samples,
		dryRun:   dryRun,
		params:   params,
		now:      time.Now,
		log:      log.With(logger.Component("adjust_pace")),
	}
}

// WithClock overrides the time source.
func (h *AdjustPaceHandler) WithClock(now func() time.Time) *AdjustPaceHandler {
	h.now = now
	return h
}

// Handle executes the adjust pace command.
// With no daily row it returns shared.ErrNoDailyRow and writes nothing.
func (h *AdjustPaceHandler) Handle(ctx context.Context, cmd AdjustPaceCommand) (*AdjustPaceResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	now := h.now()

	row, err := h.progress.LatestDaily(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, shared.ErrNoDailyRow
	}

	samples, err := h.samples.Since(ctx, cmd.UserID, now.Add(-h.params.Lookback), h.params.MaxSamples)
	if err != nil {
		return nil, fmt.Errorf("adjust_pace: load samples: %w", err)
	}

	recent, fromSamples := pace.RecentSpeed(samples, row.UserSpeedAvg)
	target := pace.Blend(recent, row.TargetOrZero(), h.params.Alpha, h.params.Clamp)

	if err := h.progress.SetTarget(ctx, cmd.UserID, row.Date, target); err != nil {
		return nil, fmt.Errorf("adjust_pace: set target: %w", err)
	}

	result := &AdjustPaceResult{
		Date:            row.Date,
		Target:          target,
		RecentUserSpeed: recent,
		FromSamples:     fromSamples,
	}

	h.dryRun.Record(ctx, cmd.UserID, pace.DryRunPaceAdapt, map[string]any{
		"adapter":           "intraday",
		"date":              row.Date,
		"previous_target":   row.ShadowSpeedTarget,
		"new_target":        target,
		"recent_user_speed": recent,
		"samples":           len(samples),
	})

	h.log.Info("pace adjusted",
		logger.UserID(cmd.UserID),
		logger.Day(row.Date),
		logger.Target(target),
		logger.Float64("recent_speed", recent),
	)

	return result, nil
}
