package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one versioned schema change.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations, tracked in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator over GetMigrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// Migrate applies every pending migration, each in its own transaction.
// It returns the versions it applied.
func (m *Migrator) Migrate(ctx context.Context) ([]int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []int
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName),
				mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		done = append(done, mig.Version)
	}
	return done, nil
}

// Rollback reverts the newest applied migration. It returns 0 when
// nothing was applied.
func (m *Migrator) Rollback(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	var last int
	for v := range applied {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return 0, nil
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			mig = &m.migrations[i]
		}
	}
	if mig == nil || mig.DownSQL == "" {
		return 0, fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	err = m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: rollback %d: %v", ErrMigrationFailed, last, err)
	}
	return last, nil
}

// Status lists every known migration with its applied time.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	for i := range out {
		if at, ok := applied[out[i].Version]; ok {
			out[i].IsApplied = true
			out[i].AppliedAt = at
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_pace", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_activity", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_messages", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_shadow_schedule", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PACE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- A NULL user_id is the global default row.
CREATE TABLE IF NOT EXISTS shadow_config (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID UNIQUE,
    base_speed DOUBLE PRECISION NOT NULL DEFAULT 3,
    min_speed DOUBLE PRECISION NOT NULL DEFAULT 1,
    max_speed DOUBLE PRECISION NOT NULL DEFAULT 10,
    adapt_up_factor DOUBLE PRECISION NOT NULL DEFAULT 1.2,
    adapt_down_factor DOUBLE PRECISION NOT NULL DEFAULT 0.85,
    smoothing_alpha DOUBLE PRECISION NOT NULL DEFAULT 0.25,
    recovery_grace_days INTEGER NOT NULL DEFAULT 1,
    carryover_cap DOUBLE PRECISION NOT NULL DEFAULT 10,
    shadow_speed_target DOUBLE PRECISION,
    enabled_race BOOLEAN NOT NULL DEFAULT TRUE,
    ghost_mode_ai BOOLEAN NOT NULL DEFAULT FALSE,
    max_notifications_per_day INTEGER NOT NULL DEFAULT 10,
    min_seconds_between_notifications INTEGER NOT NULL DEFAULT 900,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_shadow_config_global ON shadow_config ((user_id IS NULL)) WHERE user_id IS NULL;

CREATE TABLE IF NOT EXISTS shadow_progress_daily (
    user_id UUID NOT NULL,
    date DATE NOT NULL,
    user_speed_avg DOUBLE PRECISION,
    shadow_speed_target DOUBLE PRECISION,
    user_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
    shadow_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
    lead DOUBLE PRECISION NOT NULL DEFAULT 0,
    difficulty_tier TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, date)
);

CREATE TABLE IF NOT EXISTS shadow_progress_commits (
    user_id UUID NOT NULL,
    day DATE NOT NULL,
    delta INTEGER NOT NULL,
    target_today INTEGER NOT NULL,
    completed_today INTEGER NOT NULL,
    decision_kind TEXT NOT NULL,
    payload JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, day),
    CONSTRAINT valid_decision CHECK (decision_kind IN ('boost', 'slowdown', 'nudge', 'noop'))
);

CREATE TABLE IF NOT EXISTS shadow_speed_samples (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL,
    user_speed_now DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_speed_samples_user_time ON shadow_speed_samples(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS weekly_summaries (
    user_id UUID NOT NULL,
    week_start DATE NOT NULL,
    week_end DATE NOT NULL,
    user_total DOUBLE PRECISION NOT NULL DEFAULT 0,
    shadow_total DOUBLE PRECISION NOT NULL DEFAULT 0,
    wins INTEGER NOT NULL DEFAULT 0,
    losses INTEGER NOT NULL DEFAULT 0,
    carryover DOUBLE PRECISION NOT NULL DEFAULT 0,
    meta JSONB NOT NULL DEFAULT '{}'::jsonb,
    PRIMARY KEY (user_id, week_start)
);

CREATE TABLE IF NOT EXISTS shadow_dry_run_logs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    kind TEXT NOT NULL,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS shadow_dry_run_logs;
DROP TABLE IF EXISTS weekly_summaries;
DROP TABLE IF EXISTS shadow_speed_samples;
DROP TABLE IF EXISTS shadow_progress_commits;
DROP TABLE IF EXISTS shadow_progress_daily;
DROP TABLE IF EXISTS shadow_config;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ACTIVITY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    title TEXT NOT NULL,
    owner_type TEXT NOT NULL DEFAULT 'user',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT valid_owner CHECK (owner_type IN ('user', 'shadow'))
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_active ON tasks(user_id, created_at) WHERE active;

CREATE TABLE IF NOT EXISTS task_completions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_task_completions_user_time ON task_completions(user_id, completed_at DESC);

CREATE TABLE IF NOT EXISTS shadow_task_instances (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    shadow_task_id UUID,
    shadow_id UUID,
    user_id UUID NOT NULL,
    planned_start_at TIMESTAMPTZ NOT NULL,
    planned_end_at TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'planned',
    progress INTEGER NOT NULL DEFAULT 0,
    completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS alignment_log (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    shadow_id UUID,
    shadow_instance_id UUID NOT NULL,
    alignment_status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_alignment_log_user_time ON alignment_log(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS shadow_profile (
    user_id UUID PRIMARY KEY,
    persona_type TEXT NOT NULL DEFAULT 'neutral',
    timezone TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_preferences (
    user_id UUID PRIMARY KEY,
    timezone TEXT
);
`

const migration002Down = `
DROP TABLE IF EXISTS user_preferences;
DROP TABLE IF EXISTS shadow_profile;
DROP TABLE IF EXISTS alignment_log;
DROP TABLE IF EXISTS shadow_task_instances;
DROP TABLE IF EXISTS task_completions;
DROP TABLE IF EXISTS tasks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS user_messages (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    kind TEXT,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    url TEXT NOT NULL DEFAULT '/shadow',
    read_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_user_messages_user_time ON user_messages(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS ai_taunts (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    intensity TEXT NOT NULL,
    message TEXT NOT NULL,
    meta JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ai_taunts_user_time ON ai_taunts(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS shadow_messages (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    type TEXT NOT NULL,
    text TEXT NOT NULL,
    expiry TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_shadow_messages_user_expiry ON shadow_messages(user_id, expiry DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS shadow_messages;
DROP TABLE IF EXISTS ai_taunts;
DROP TABLE IF EXISTS user_messages;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: SHADOW SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
ALTER TABLE tasks ADD COLUMN IF NOT EXISTS time_anchor TEXT;
ALTER TABLE tasks ADD COLUMN IF NOT EXISTS order_hint INTEGER;

CREATE TABLE IF NOT EXISTS shadow_tasks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL,
    task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, task_id)
);

ALTER TABLE shadow_task_instances ADD COLUMN IF NOT EXISTS planned_date_local DATE;

CREATE UNIQUE INDEX IF NOT EXISTS idx_shadow_task_instances_task_day
    ON shadow_task_instances(shadow_task_id, planned_date_local);
`

const migration004Down = `
DROP INDEX IF EXISTS idx_shadow_task_instances_task_day;
ALTER TABLE shadow_task_instances DROP COLUMN IF EXISTS planned_date_local;
DROP TABLE IF EXISTS shadow_tasks;
ALTER TABLE tasks DROP COLUMN IF EXISTS order_hint;
ALTER TABLE tasks DROP COLUMN IF EXISTS time_anchor;
`
