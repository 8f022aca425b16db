// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SMOOTH PACE COMMAND
// Nightly EMA over the recent daily speeds. The smoothed value becomes the
// newest row's target and a taunt is written into the inbox.
// ══════════════════════════════════════════════════════════════════════════════

// ReasonWriteError marks a notification that could not be written.
const ReasonWriteError = "write_error"

// SmoothPaceCommand contains the data to smooth one user's pace.
type SmoothPaceCommand struct {
	UserID string
}

// SmoothPaceResult contains the result of nightly smoothing.
type SmoothPaceResult struct {
	UserID     string  `json:"-"`
	Target     float64 `json:"smoothed_target"`
	LatestDate string  `json:"latest_date"`
	LatestLead float64 `json:"-"`

	// Notification is the outcome of the taunt write.
	Notification notification.Outcome `json:"-"`
}

// SmoothParams are the tunables of nightly smoothing.
type SmoothParams struct {
	Window int
	Alpha  float64
	Clamp  pace.Clamp
	Limits pace.Limits
}

// DefaultSmoothParams returns window 7, alpha 0.25, clamp [0.5, 5] and the
// nightly notification limits.
func DefaultSmoothParams() SmoothParams {
	return SmoothParams{
		Window: pace.DefaultWindow,
		Alpha:  pace.NightlyAlpha,
		Clamp:  pace.DefaultClamp(),
		Limits: pace.NightlyLimits(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SmoothPaceHandler handles the SmoothPaceCommand.
type SmoothPaceHandler struct {
	progress pace.ProgressRepository
	resolver *race.Resolver
	notifier *race.Notifier
	composer notification.MessageComposer
	flags    *config.FeatureFlags
	params   SmoothParams
	now      func() time.Time
	log      *logger.Logger
}

// NewSmoothPaceHandler creates a new SmoothPaceHandler.
// composer is tried whenever it is available; templates cover the rest.
func NewSmoothPaceHandler(
	progress pace.ProgressRepository,
	resolver *race.Resolver,
	notifier *race.Notifier,
	composer notification.MessageComposer,
	flags *config.FeatureFlags,
	params SmoothParams,
	log *logger.Logger,
) *SmoothPaceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SmoothPaceHandler{
		progress: progress,
		resolver: resolver,
		notifier: notifier,
		composer: notification.NewSelector(composer),
		flags:    flags,
		params:   params,
		now:      time.Now,
		log:      log.With(logger.Component("smooth_pace")),
	}
}

// WithClock overrides the time source.
func (h *SmoothPaceHandler) WithClock(now func() time.Time) *SmoothPaceHandler {
	h.now = now
	return h
}

// Handle executes the smooth pace command.
// With no daily rows it returns shared.ErrNoProgressRows and writes nothing.
func (h *SmoothPaceHandler) Handle(ctx context.Context, cmd SmoothPaceCommand) (*SmoothPaceResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	now := h.now()

	rows, err := h.progress.RecentDaily(ctx, cmd.UserID, h.params.Window)
	if err != nil {
		return nil, fmt.Errorf("smooth_pace: load rows: %w", err)
	}

	res, err := pace.Smooth(rows, h.params.Alpha, h.params.Clamp)
	if err != nil {
		return nil, err
	}

	if err := h.progress.SetTarget(ctx, cmd.UserID, res.LatestDate, res.Target); err != nil {
		return nil, fmt.Errorf("smooth_pace: set target: %w", err)
	}

	result := &SmoothPaceResult{
		UserID:     cmd.UserID,
		Target:     res.Target,
		LatestDate: res.LatestDate,
		LatestLead: res.LatestLead,
	}

	h.log.Info("pace smoothed",
		logger.UserID(cmd.UserID),
		logger.Day(res.LatestDate),
		logger.Target(res.Target),
		logger.Lead(res.LatestLead),
	)

	if h.flags.IsEnabled(config.FeatureNotifyNightlyTaunt, config.ForUser(cmd.UserID)) {
		result.Notification = h.taunt(ctx, cmd.UserID, res, now)
	}

	return result, nil
}

// taunt writes the nightly taunt. Its failures never fail the smoothing.
func (h *SmoothPaceHandler) taunt(ctx context.Context, userID string, res pace.SmoothResult, now time.Time) notification.Outcome {
	req := notification.Request{Kind: notification.KindTaunt, Lead: res.LatestLead, Target: res.Target}

	msg, err := h.composer.Compose(ctx, req)
	if err != nil {
		msg = notification.TauntMessage(res.LatestLead, res.Target)
	}

	loc, err := h.resolver.Location(ctx, userID)
	if err != nil {
		loc = h.resolver.DefaultLocation()
	}

	outcome, err := h.notifier.Send(ctx, userID, notification.KindTaunt, msg, h.params.Limits, loc, now)
	if err != nil {
		h.log.Warn("nightly taunt write failed", logger.UserID(userID), logger.Err(err))
		return notification.Skip(ReasonWriteError)
	}
	return outcome
}

// IsNoData reports whether err means there was nothing to smooth or adjust.
func IsNoData(err error) bool {
	return errors.Is(err, shared.ErrNoProgressRows) || errors.Is(err, shared.ErrNoDailyRow)
}
