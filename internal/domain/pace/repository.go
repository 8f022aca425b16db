package pace

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository stores DailyProgress and Commit rows.
type ProgressRepository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Daily rows
	// ─────────────────────────────────────────────────────────────────────────

	// RecentDaily returns up to limit rows, oldest first.
	RecentDaily(ctx context.Context, userID string, limit int) ([]DailyProgress, error)

	// LatestDaily returns the newest row or shared.ErrNoDailyRow.
	LatestDaily(ctx context.Context, userID string) (*DailyProgress, error)

	// GetDaily returns the row for date, or nil when there is none.
	GetDaily(ctx context.Context, userID, date string) (*DailyProgress, error)

	// DailyBetween returns rows with from <= date <= to, oldest first.
	DailyBetween(ctx context.Context, userID, from, to string) ([]DailyProgress, error)

	// UpsertDaily inserts or replaces the row keyed by (user, date).
	UpsertDaily(ctx context.Context, row DailyProgress) error

	// SetTarget updates only shadow_speed_target of one row.
	SetTarget(ctx context.Context, userID, date string, target float64) error

	// ─────────────────────────────────────────────────────────────────────────
	// Commits
	// ─────────────────────────────────────────────────────────────────────────

	// UpsertCommit inserts or replaces the commit keyed by (user, day).
	UpsertCommit(ctx context.Context, c Commit) error

	// GetCommit returns the commit for day, or nil when there is none.
	GetCommit(ctx context.Context, userID, day string) (*Commit, error)
}

// SpeedSampleStore keeps the short-interval speed window.
type SpeedSampleStore interface {
	Append(ctx context.Context, s SpeedSample) error

	// Since returns up to limit samples newer than since, newest first.
	Since(ctx context.Context, userID string, since time.Time, limit int) ([]SpeedSample, error)
}

// ConfigRepository reads ShadowConfig rows. A nil result means no row.
type ConfigRepository interface {
	// ForUser returns the user's row, falling back to the global row.
	ForUser(ctx context.Context, userID string) (*ShadowConfig, error)

	// SeedDefault inserts the global default row.
	SeedDefault(ctx context.Context, cfg ShadowConfig) error

	// EnabledUsers lists users whose own row has enabled_race set.
	EnabledUsers(ctx context.Context) ([]string, error)
}

// ActivityRepository reads tasks, completions and the alignment schedule.
type ActivityRepository interface {
	// CompletionsBetween returns completions with owner types, both ends inclusive.
	CompletionsBetween(ctx context.Context, userID string, from, to time.Time) ([]Completion, error)

	// LastCompletionAt returns nil when the user never completed anything.
	LastCompletionAt(ctx context.Context, userID string) (*time.Time, error)

	// ActiveTaskTitles returns titles of active user-owned tasks, oldest first.
	ActiveTaskTitles(ctx context.Context, userID string, limit int) ([]string, error)

	// GetInstance returns the instance or shared.ErrEventNotFound.
	GetInstance(ctx context.Context, id string) (*TaskInstance, error)

	// CompleteInstance marks the instance completed at the given instant.
	CompleteInstance(ctx context.Context, id string, at time.Time) error

	// AppendAlignment writes one alignment log entry.
	AppendAlignment(ctx context.Context, e AlignmentEntry) error

	// RecentAlignments returns the newest entries first.
	RecentAlignments(ctx context.Context, userID string, limit int) ([]AlignmentEntry, error)
}

// ScheduleRepository reads the shadow's tasks and writes its daily plan.
type ScheduleRepository interface {
	// ActiveShadowTasks returns the active mirrors of the user's active tasks.
	ActiveShadowTasks(ctx context.Context, userID string) ([]ShadowTask, error)

	// InsertMissingInstances inserts the planned windows not yet stored for
	// their (shadow task, date) and returns how many were new.
	InsertMissingInstances(ctx context.Context, userID string, planned []PlannedInstance) (int, error)
}

// SummaryRepository stores weekly summaries.
type SummaryRepository interface {
	// Upsert replaces the row keyed by (user, week_start).
	Upsert(ctx context.Context, s WeeklySummary) error

	Get(ctx context.Context, userID, weekStart string) (*WeeklySummary, error)

	// UsersWithDaily lists users having daily rows in [from, to].
	UsersWithDaily(ctx context.Context, from, to string) ([]string, error)
}

// ProfileRepository reads the user's shadow profile and preferences.
type ProfileRepository interface {
	// Timezone returns the preferred IANA zone, or "" when unset.
	Timezone(ctx context.Context, userID string) (string, error)

	// Profile returns shared.ErrProfileNotFound when absent.
	Profile(ctx context.Context, userID string) (*Profile, error)

	// UsersWithProfile lists every user having a shadow profile.
	UsersWithProfile(ctx context.Context) ([]string, error)
}

// DryRunLogger records observability snapshots.
type DryRunLogger interface {
	LogDryRun(ctx context.Context, userID string, kind DryRunKind, payload any) error
}
