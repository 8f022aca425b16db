package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements pace.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	conn Querier
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn Querier) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const dailyColumns = `
	user_id::text, date::text, user_speed_avg, shadow_speed_target,
	user_distance, shadow_distance, lead, COALESCE(difficulty_tier, ''), updated_at`

func scanDaily(row pgx.CollectableRow) (pace.DailyProgress, error) {
	var d pace.DailyProgress
	err := row.Scan(
		&d.UserID,
		&d.Date,
		&d.UserSpeedAvg,
		&d.ShadowSpeedTarget,
		&d.UserDistance,
		&d.ShadowDistance,
		&d.Lead,
		&d.DifficultyTier,
		&d.UpdatedAt,
	)
	return d, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily rows
// ─────────────────────────────────────────────────────────────────────────────

// RecentDaily returns the newest limit rows, oldest first.
func (r *ProgressRepository) RecentDaily(ctx context.Context, userID string, limit int) ([]pace.DailyProgress, error) {
	query := `SELECT` + dailyColumns + `
		FROM shadow_progress_daily
		WHERE user_id = $1
		ORDER BY date DESC
		LIMIT $2`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent daily rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanDaily)
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily row: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// LatestDaily returns the newest row or shared.ErrNoDailyRow.
func (r *ProgressRepository) LatestDaily(ctx context.Context, userID string) (*pace.DailyProgress, error) {
	query := `SELECT` + dailyColumns + `
		FROM shadow_progress_daily
		WHERE user_id = $1
		ORDER BY date DESC
		LIMIT 1`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest daily row: %w", err)
	}
	d, err := pgx.CollectOneRow(rows, scanDaily)
	if IsNoRows(err) {
		return nil, shared.ErrNoDailyRow
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily row: %w", err)
	}
	return &d, nil
}

// GetDaily returns the row for date, or nil.
func (r *ProgressRepository) GetDaily(ctx context.Context, userID, date string) (*pace.DailyProgress, error) {
	query := `SELECT` + dailyColumns + `
		FROM shadow_progress_daily
		WHERE user_id = $1 AND date = $2::date`

	rows, err := r.conn.Query(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily row: %w", err)
	}
	d, err := pgx.CollectOneRow(rows, scanDaily)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily row: %w", err)
	}
	return &d, nil
}

// DailyBetween returns rows in [from, to], oldest first.
func (r *ProgressRepository) DailyBetween(ctx context.Context, userID, from, to string) ([]pace.DailyProgress, error) {
	query := `SELECT` + dailyColumns + `
		FROM shadow_progress_daily
		WHERE user_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date`

	rows, err := r.conn.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanDaily)
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily row: %w", err)
	}
	return out, nil
}

// UpsertDaily inserts or replaces the (user, date) row.
func (r *ProgressRepository) UpsertDaily(ctx context.Context, d pace.DailyProgress) error {
	query := `
		INSERT INTO shadow_progress_daily (
			user_id, date, user_speed_avg, shadow_speed_target,
			user_distance, shadow_distance, lead, difficulty_tier, updated_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		ON CONFLICT (user_id, date) DO UPDATE SET
			user_speed_avg = EXCLUDED.user_speed_avg,
			shadow_speed_target = EXCLUDED.shadow_speed_target,
			user_distance = EXCLUDED.user_distance,
			shadow_distance = EXCLUDED.shadow_distance,
			lead = EXCLUDED.lead,
			difficulty_tier = COALESCE(EXCLUDED.difficulty_tier, shadow_progress_daily.difficulty_tier),
			updated_at = EXCLUDED.updated_at`

	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, query,
		d.UserID,
		d.Date,
		d.UserSpeedAvg,
		d.ShadowSpeedTarget,
		d.UserDistance,
		d.ShadowDistance,
		d.Lead,
		d.DifficultyTier,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily row: %w", err)
	}
	return nil
}

// SetTarget updates only shadow_speed_target of one row.
func (r *ProgressRepository) SetTarget(ctx context.Context, userID, date string, target float64) error {
	query := `
		UPDATE shadow_progress_daily
		SET shadow_speed_target = $3, updated_at = NOW()
		WHERE user_id = $1 AND date = $2::date`

	if _, err := r.conn.Exec(ctx, query, userID, date, target); err != nil {
		return fmt.Errorf("failed to set target: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Commits
// ─────────────────────────────────────────────────────────────────────────────

// UpsertCommit inserts or replaces the (user, day) commit.
func (r *ProgressRepository) UpsertCommit(ctx context.Context, c pace.Commit) error {
	query := `
		INSERT INTO shadow_progress_commits (
			user_id, day, delta, target_today, completed_today, decision_kind, payload, created_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, day) DO UPDATE SET
			delta = EXCLUDED.delta,
			target_today = EXCLUDED.target_today,
			completed_today = EXCLUDED.completed_today,
			decision_kind = EXCLUDED.decision_kind,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at`

	payload := c.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, query,
		c.UserID,
		c.Day,
		c.Delta,
		c.TargetToday,
		c.CompletedToday,
		string(c.DecisionKind),
		payload,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert commit: %w", err)
	}
	return nil
}

// GetCommit returns the commit for day, or nil.
func (r *ProgressRepository) GetCommit(ctx context.Context, userID, day string) (*pace.Commit, error) {
	query := `
		SELECT user_id::text, day::text, delta, target_today, completed_today,
		       decision_kind, payload, created_at
		FROM shadow_progress_commits
		WHERE user_id = $1 AND day = $2::date`

	var c pace.Commit
	var kind string
	err := r.conn.QueryRow(ctx, query, userID, day).Scan(
		&c.UserID,
		&c.Day,
		&c.Delta,
		&c.TargetToday,
		&c.CompletedToday,
		&kind,
		&c.Payload,
		&c.CreatedAt,
	)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	c.DecisionKind = pace.DecisionKind(kind)
	return &c, nil
}
