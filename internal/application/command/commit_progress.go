package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMIT PROGRESS COMMAND
// Records today's decision and the matching daily row.
// ══════════════════════════════════════════════════════════════════════════════

// CommitProgressCommand contains the data to commit today's progress.
type CommitProgressCommand struct {
	UserID string

	// Extra is merged into the commit payload. Reserved keys win.
	Extra map[string]any

	// Batch marks commits made by the scheduled run.
	Batch bool
}

// CommitProgressResult contains the stored commit.
type CommitProgressResult struct {
	Commit   pace.Commit
	Snapshot *race.Snapshot
}

// CommitProgressHandler handles the CommitProgressCommand.
type CommitProgressHandler struct {
	tracker  *race.Tracker
	progress pace.ProgressRepository
	samples  pace.SpeedSampleStore
	dryRun   *race.DryRun
	flags    *config.FeatureFlags
	now      func() time.Time
	log      *logger.Logger
}

// NewCommitProgressHandler creates a new CommitProgressHandler.
func NewCommitProgressHandler(
	tracker *race.Tracker,
	progress pace.ProgressRepository,
	samples pace.SpeedSampleStore,
	dryRun *race.DryRun,
	flags *config.FeatureFlags,
	log *logger.Logger,
) *CommitProgressHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CommitProgressHandler{
		tracker:  tracker,
		progress: progress,
		samples:  samples,
		dryRun:   dryRun,
		flags:    flags,
		now:      time.Now,
		log:      log.With(logger.Component("commit_progress")),
	}
}

// WithClock overrides the time source.
func (h *CommitProgressHandler) WithClock(now func() time.Time) *CommitProgressHandler {
	h.now = now
	return h
}

// Handle executes the commit progress command.
func (h *CommitProgressHandler) Handle(ctx context.Context, cmd CommitProgressCommand) (*CommitProgressResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrMissingUser
	}

	snap, err := h.tracker.Snapshot(ctx, cmd.UserID, h.now())
	if err != nil {
		return nil, fmt.Errorf("commit_progress: %w", err)
	}
	return h.commit(ctx, cmd, snap)
}

// commit persists a decision for an already measured snapshot.
func (h *CommitProgressHandler) commit(ctx context.Context, cmd CommitProgressCommand, snap *race.Snapshot) (*CommitProgressResult, error) {
	now := h.now()
	state := snap.State

	payload := make(map[string]any, len(cmd.Extra)+4)
	for k, v := range cmd.Extra {
		payload[k] = v
	}
	payload["tz"] = snap.Timezone()
	payload["completedTaskIds"] = state.CompletedTaskIDs
	if cmd.Batch {
		payload["batch"] = true
		payload["cron"] = true
	}

	commit := pace.Commit{
		UserID:         cmd.UserID,
		Day:            snap.Day,
		Delta:          state.Delta,
		TargetToday:    state.TargetToday,
		CompletedToday: state.CompletedToday,
		DecisionKind:   pace.Decide(state.Delta),
		Payload:        payload,
		CreatedAt:      now,
	}

	if err := h.progress.UpsertCommit(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit_progress: upsert commit: %w", err)
	}

	row := state.DailyRow(cmd.UserID, snap.Day)
	row.UpdatedAt = now
	if err := h.progress.UpsertDaily(ctx, row); err != nil {
		return nil, fmt.Errorf("commit_progress: upsert daily: %w", err)
	}

	if h.flags.IsEnabled(config.FeaturePaceSpeedSamples, config.ForUser(cmd.UserID)) {
		sample := pace.SpeedSample{UserID: cmd.UserID, Speed: snap.HourlyRate, At: now}
		if err := h.samples.Append(ctx, sample); err != nil {
			h.log.Warn("speed sample not recorded", logger.UserID(cmd.UserID), logger.Err(err))
		}
	}

	h.dryRun.Record(ctx, cmd.UserID, pace.DryRunPaceAdapt, commit)

	h.log.Info("progress committed",
		logger.UserID(cmd.UserID),
		logger.Day(snap.Day),
		logger.String("decision", string(commit.DecisionKind)),
		logger.Int("delta", commit.Delta),
	)

	return &CommitProgressResult{Commit: commit, Snapshot: snap}, nil
}
