package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// Nudge outcome reasons that are not rate limiter rejections.
const (
	ReasonNoCommit     = "no_commit"
	ReasonNoop         = "noop"
	ReasonRaceDisabled = "race_disabled"
)

// NudgeCommand contains the data to nudge a user about today's commit.
type NudgeCommand struct {
	UserID string
}

// NudgeResult is the outcome of a nudge attempt.
type NudgeResult struct {
	Sent   bool
	Reason string
	Record *notification.Record
}

// NudgeHandler handles the NudgeCommand.
type NudgeHandler struct {
	resolver *race.Resolver
	progress pace.ProgressRepository
	notifier *race.Notifier
	now      func() time.Time
	log      *logger.Logger
}

// NewNudgeHandler creates a new NudgeHandler.
func NewNudgeHandler(
	resolver *race.Resolver,
	progress pace.ProgressRepository,
	notifier *race.Notifier,
	log *logger.Logger,
) *NudgeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &NudgeHandler{
		resolver: resolver,
		progress: progress,
		notifier: notifier,
		now:      time.Now,
		log:      log.With(logger.Component("nudge")),
	}
}

// WithClock overrides the time source.
func (h *NudgeHandler) WithClock(now func() time.Time) *NudgeHandler {
	h.now = now
	return h
}

// Handle executes the nudge command.
func (h *NudgeHandler) Handle(ctx context.Context, cmd NudgeCommand) (*NudgeResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	now := h.now()

	cfg, err := h.resolver.Config(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	loc, err := h.resolver.Location(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	commit, err := h.progress.GetCommit(ctx, cmd.UserID, timeutil.LocalDate(now, loc))
	if err != nil {
		return nil, fmt.Errorf("nudge: load commit: %w", err)
	}
	if commit == nil {
		return &NudgeResult{Reason: ReasonNoCommit}, nil
	}

	return h.send(ctx, *commit, cfg.Limits(), loc, now)
}

// send composes the nudge for a commit and writes it through the limiter.
func (h *NudgeHandler) send(
	ctx context.Context,
	commit pace.Commit,
	limits pace.Limits,
	loc *time.Location,
	now time.Time,
) (*NudgeResult, error) {
	if commit.DecisionKind == pace.DecisionNoop {
		return &NudgeResult{Reason: ReasonNoop}, nil
	}

	text := pace.ComposeNudge(commit.DecisionKind, commit.Delta, commit.TargetToday, commit.CompletedToday)
	outcome, err := h.notifier.Send(ctx, commit.UserID, notification.KindNudge, notification.NudgeMessage(text), limits, loc, now)
	if err != nil {
		return nil, fmt.Errorf("nudge: %w", err)
	}
	if !outcome.Sent {
		return &NudgeResult{Reason: outcome.Reason}, nil
	}

	h.log.Info("nudge sent",
		logger.UserID(commit.UserID),
		logger.String("decision", string(commit.DecisionKind)),
	)
	return &NudgeResult{Sent: true, Record: outcome.Record}, nil
}
