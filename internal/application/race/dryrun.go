package race

import (
	"context"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// DryRun records observability snapshots when the dry-run flag allows it.
// Write failures are logged and dropped. A nil *DryRun does nothing.
type DryRun struct {
	sink  pace.DryRunLogger
	flags *config.FeatureFlags
	log   *logger.Logger
}

// NewDryRun creates a new DryRun recorder.
func NewDryRun(sink pace.DryRunLogger, flags *config.FeatureFlags, log *logger.Logger) *DryRun {
	if log == nil {
		log = logger.Nop()
	}
	return &DryRun{sink: sink, flags: flags, log: log.With(logger.Component("dry_run"))}
}

// Record writes one snapshot.
func (d *DryRun) Record(ctx context.Context, userID string, kind pace.DryRunKind, payload any) {
	if d == nil || d.sink == nil {
		return
	}
	if !d.flags.IsEnabled(config.FeaturePaceDryRunLogs, config.ForUser(userID)) {
		return
	}
	if err := d.sink.LogDryRun(ctx, userID, kind, payload); err != nil {
		d.log.Warn("dry-run log failed",
			logger.UserID(userID),
			logger.String("kind", string(kind)),
			logger.Err(err),
		)
	}
}
