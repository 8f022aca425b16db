package command

import (
	"context"
	"time"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUN TODAY COMMAND
// Measure, commit and nudge in one pass. The scheduled batch runs this for
// every enabled user.
// ══════════════════════════════════════════════════════════════════════════════

// RunTodayCommand contains the data to run today's race for a user.
type RunTodayCommand struct {
	UserID string
	Batch  bool
}

// RunTodayResult is the outcome of one run.
type RunTodayResult struct {
	OK             bool                  `json:"ok"`
	DecisionKind   pace.DecisionKind     `json:"decision_kind,omitempty"`
	Delta          int                   `json:"delta"`
	TargetToday    int                   `json:"target_today"`
	CompletedToday int                   `json:"completed_today"`
	Nudged         bool                  `json:"nudged"`
	Reason         string                `json:"reason,omitempty"`
	MessageID      notification.RecordID `json:"message_id,omitempty"`
	Title          string                `json:"title,omitempty"`
	Body           string                `json:"body,omitempty"`
}

// RunTodayHandler handles the RunTodayCommand.
type RunTodayHandler struct {
	tracker *race.Tracker
	commits *CommitProgressHandler
	nudges  *NudgeHandler
	dryRun  *race.DryRun
	flags   *config.FeatureFlags
	now     func() time.Time
	log     *logger.Logger
}

// NewRunTodayHandler creates a new RunTodayHandler.
func NewRunTodayHandler(
	tracker *race.Tracker,
	commits *CommitProgressHandler,
	nudges *NudgeHandler,
	dryRun *race.DryRun,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *RunTodayHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RunTodayHandler{
		tracker: tracker,
		commits: commits,
		nudges:  nudges,
		dryRun:  dryRun,
		flags:   flags,
		now:     time.Now,
		log:     log.With(logger.Component("run_today")),
	}
}

// WithClock overrides the time source of the handler and the handlers it
// drives.
func (h *RunTodayHandler) WithClock(now func() time.Time) *RunTodayHandler {
	h.now = now
	h.commits.WithClock(now)
	h.nudges.WithClock(now)
	return h
}

// Handle executes the run today command.
// A disabled race is reported, not returned as an error.
func (h *RunTodayHandler) Handle(ctx context.Context, cmd RunTodayCommand) (*RunTodayResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	now := h.now()

	snap, err := h.tracker.Snapshot(ctx, cmd.UserID, now)
	if err != nil {
		return nil, err
	}
	if !snap.Config.EnabledRace {
		return &RunTodayResult{Reason: ReasonRaceDisabled}, nil
	}

	committed, err := h.commits.commit(ctx, CommitProgressCommand{UserID: cmd.UserID, Batch: cmd.Batch}, snap)
	if err != nil {
		return nil, err
	}
	c := committed.Commit

	h.dryRun.Record(ctx, cmd.UserID, pace.DryRunRaceUpdate, map[string]any{
		"tz":             snap.Timezone(),
		"today":          snap.Day,
		"completedToday": c.CompletedToday,
		"targetToday":    c.TargetToday,
		"delta":          c.Delta,
		"decision_kind":  c.DecisionKind,
	})

	result := &RunTodayResult{
		OK:             true,
		DecisionKind:   c.DecisionKind,
		Delta:          c.Delta,
		TargetToday:    c.TargetToday,
		CompletedToday: c.CompletedToday,
	}

	if c.DecisionKind == pace.DecisionNoop {
		return result, nil
	}
	if !h.flags.IsEnabled(config.FeatureNotifyCommitNudge, config.ForUser(cmd.UserID)) {
		return result, nil
	}

	nudge, err := h.nudges.send(ctx, c, snap.Config.Limits(), snap.Location, now)
	if err != nil {
		h.log.Warn("run today nudge failed", logger.UserID(cmd.UserID), logger.Err(err))
		result.Reason = ReasonWriteError
		return result, nil
	}
	if !nudge.Sent {
		result.Reason = nudge.Reason
		return result, nil
	}

	result.Nudged = true
	result.MessageID = nudge.Record.ID
	result.Title = nudge.Record.Title
	result.Body = nudge.Record.Body
	return result, nil
}
