package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAYBE TAUNT COMMAND
// Fires a taunt when the user is far behind, idle, or inside a random slot.
// ══════════════════════════════════════════════════════════════════════════════

// ReasonDisabled means the taunt engine is switched off for the user.
const ReasonDisabled = "disabled"

// MaybeTauntCommand contains the data for one taunt check.
type MaybeTauntCommand struct {
	UserID        string
	ForceCritical bool
}

// TauntPayload describes the taunt that fired.
type TauntPayload struct {
	Kind      pace.TauntKind    `json:"kind"`
	Intensity pace.Intensity    `json:"intensity"`
	Message   string            `json:"message"`
	Metrics   pace.TauntMetrics `json:"metrics"`
	Error     string            `json:"error,omitempty"`
}

// MaybeTauntResult is the outcome of a taunt check.
type MaybeTauntResult struct {
	Created bool          `json:"created"`
	Reason  string        `json:"reason,omitempty"`
	Payload *TauntPayload `json:"payload,omitempty"`
}

// MaybeTauntHandler handles the MaybeTauntCommand.
type MaybeTauntHandler struct {
	resolver *race.Resolver
	progress pace.ProgressRepository
	activity pace.ActivityRepository
	taunts   notification.TauntRepository
	notifier *race.Notifier
	flags    *config.FeatureFlags
	dailyCap int
	now      func() time.Time
	log      *logger.Logger
}

// NewMaybeTauntHandler creates a new MaybeTauntHandler.
// A dailyCap below one falls back to pace.TauntDailyCap.
func NewMaybeTauntHandler(
	resolver *race.Resolver,
	progress pace.ProgressRepository,
	activity pace.ActivityRepository,
	taunts notification.TauntRepository,
	notifier *race.Notifier,
	flags *config.FeatureFlags,
	dailyCap int,
	log *logger.Logger,
) *MaybeTauntHandler {
	if log == nil {
		log = logger.Nop()
	}
	if dailyCap < 1 {
		dailyCap = pace.TauntDailyCap
	}
	return &MaybeTauntHandler{
		resolver: resolver,
		progress: progress,
		activity: activity,
		taunts:   taunts,
		notifier: notifier,
		flags:    flags,
		dailyCap: dailyCap,
		now:      time.Now,
		log:      log.With(logger.Component("taunt_engine")),
	}
}

// WithClock overrides the time source.
func (h *MaybeTauntHandler) WithClock(now func() time.Time) *MaybeTauntHandler {
	h.now = now
	return h
}

// Handle executes one taunt check. Cap, no trigger and a failed insert are
// outcomes, not errors.
func (h *MaybeTauntHandler) Handle(ctx context.Context, cmd MaybeTauntCommand) (*MaybeTauntResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	if !h.flags.IsEnabled(config.FeatureNotifyTauntEngine, config.ForUser(cmd.UserID)) {
		return &MaybeTauntResult{Reason: ReasonDisabled}, nil
	}
	now := h.now()

	loc, err := h.resolver.Location(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	from, to := timeutil.DayRange(now, loc)

	sent, err := h.taunts.CountBetween(ctx, cmd.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("taunt: count: %w", err)
	}
	if sent >= h.dailyCap {
		return &MaybeTauntResult{Reason: pace.TauntCapReached}, nil
	}

	metrics, err := h.metrics(ctx, cmd.UserID, timeutil.LocalDate(now, loc), now)
	if err != nil {
		return nil, err
	}

	inSlot := pace.InRandomSlot(timeutil.MinutesOfDay(now, loc))
	kind, fire := pace.ChooseTauntKind(metrics, inSlot, cmd.ForceCritical)
	if !fire {
		return &MaybeTauntResult{Reason: pace.TauntNoTrigger}, nil
	}

	taunt := pace.PickTaunt(kind, metrics)
	payload := &TauntPayload{
		Kind:      taunt.Kind,
		Intensity: taunt.Intensity,
		Message:   taunt.Message,
		Metrics:   metrics,
	}

	rec := &notification.TauntRecord{
		UserID:    cmd.UserID,
		Intensity: string(taunt.Intensity),
		Message:   taunt.Message,
		Meta: map[string]any{
			"kind":         taunt.Kind,
			"lead_now":     metrics.LeadNow,
			"idle_minutes": metrics.IdleMinutes,
		},
		CreatedAt: now,
	}
	if err := h.taunts.Insert(ctx, rec); err != nil {
		h.log.Warn("taunt insert failed", logger.UserID(cmd.UserID), logger.Err(err))
		payload.Error = err.Error()
		return &MaybeTauntResult{Reason: pace.TauntInsertFailed, Payload: payload}, nil
	}

	// The mirror is bounded by the taunt cap above, not by the inbox
	// limiter, so it can land inside the inbox spacing window.
	if h.flags.IsEnabled(config.FeatureNotifyTauntInbox, config.ForUser(cmd.UserID)) {
		if _, err := h.notifier.Post(ctx, cmd.UserID, notification.KindTaunt, notification.TauntInboxMessage(taunt.Message), now); err != nil {
			h.log.Warn("taunt inbox mirror failed", logger.UserID(cmd.UserID), logger.Err(err))
		}
	}

	h.log.Info("taunt created",
		logger.UserID(cmd.UserID),
		logger.String("kind", string(taunt.Kind)),
		logger.String("intensity", string(taunt.Intensity)),
		logger.Lead(metrics.LeadNow),
	)

	return &MaybeTauntResult{Created: true, Payload: payload}, nil
}

// metrics reads today's lead and the idle time. A missing row means lead 0.
func (h *MaybeTauntHandler) metrics(ctx context.Context, userID, today string, now time.Time) (pace.TauntMetrics, error) {
	var m pace.TauntMetrics

	row, err := h.progress.GetDaily(ctx, userID, today)
	if err != nil {
		return m, fmt.Errorf("taunt: load today: %w", err)
	}
	if row != nil {
		m.LeadNow = row.Lead
	}

	last, err := h.activity.LastCompletionAt(ctx, userID)
	if err != nil {
		return m, fmt.Errorf("taunt: last completion: %w", err)
	}
	m.IdleMinutes = pace.IdleMinutes(last, now)
	return m, nil
}
