package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ActivityRepository implements pace.ActivityRepository for PostgreSQL.
type ActivityRepository struct {
	conn Querier
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn Querier) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tasks and completions
// ─────────────────────────────────────────────────────────────────────────────

// CompletionsBetween returns completions in [from, to], oldest first.
// A completion whose task row is gone counts as user-owned.
func (r *ActivityRepository) CompletionsBetween(ctx context.Context, userID string, from, to time.Time) ([]pace.Completion, error) {
	query := `
		SELECT tc.task_id::text, COALESCE(t.owner_type, ''), tc.completed_at
		FROM task_completions tc
		LEFT JOIN tasks t ON t.id = tc.task_id
		WHERE tc.user_id = $1 AND tc.completed_at BETWEEN $2 AND $3
		ORDER BY tc.completed_at`

	rows, err := r.conn.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pace.Completion, error) {
		var c pace.Completion
		err := row.Scan(&c.TaskID, &c.OwnerType, &c.CompletedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan completion: %w", err)
	}
	return out, nil
}

// LastCompletionAt returns nil when the user never completed anything.
func (r *ActivityRepository) LastCompletionAt(ctx context.Context, userID string) (*time.Time, error) {
	var last *time.Time
	err := r.conn.QueryRow(ctx,
		`SELECT max(completed_at) FROM task_completions WHERE user_id = $1`, userID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to read last completion: %w", err)
	}
	return last, nil
}

// ActiveTaskTitles returns titles of active user-owned tasks, oldest first.
func (r *ActivityRepository) ActiveTaskTitles(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT title
		FROM tasks
		WHERE user_id = $1 AND active AND owner_type = 'user'
		ORDER BY created_at
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tasks: %w", err)
	}
	return collectStrings(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Shadow schedule and alignment log
// ─────────────────────────────────────────────────────────────────────────────

// GetInstance returns the instance or shared.ErrEventNotFound.
func (r *ActivityRepository) GetInstance(ctx context.Context, id string) (*pace.TaskInstance, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, shared.ErrEventNotFound
	}

	query := `
		SELECT id::text, COALESCE(shadow_task_id::text, ''), COALESCE(shadow_id::text, ''),
		       user_id::text, planned_start_at, planned_end_at, status, progress, completed_at
		FROM shadow_task_instances
		WHERE id = $1`

	var in pace.TaskInstance
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&in.ID,
		&in.ShadowTaskID,
		&in.ShadowID,
		&in.OwnerUserID,
		&in.PlannedStartAt,
		&in.PlannedEndAt,
		&in.Status,
		&in.Progress,
		&in.CompletedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return &in, nil
}

// CompleteInstance marks the instance completed at the given instant.
func (r *ActivityRepository) CompleteInstance(ctx context.Context, id string, at time.Time) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE shadow_task_instances
		SET status = 'completed', progress = 100, completed_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to complete instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEventNotFound
	}
	return nil
}

// AppendAlignment writes one alignment log entry.
func (r *ActivityRepository) AppendAlignment(ctx context.Context, e pace.AlignmentEntry) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO alignment_log (id, user_id, shadow_id, shadow_instance_id, alignment_status, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6)`,
		id, e.UserID, e.ShadowID, e.ShadowInstanceID, string(e.Status), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append alignment: %w", err)
	}
	return nil
}

// RecentAlignments returns the newest entries first.
func (r *ActivityRepository) RecentAlignments(ctx context.Context, userID string, limit int) ([]pace.AlignmentEntry, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id::text, user_id::text, COALESCE(shadow_id::text, ''), shadow_instance_id::text,
		       alignment_status, created_at
		FROM alignment_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alignment log: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pace.AlignmentEntry, error) {
		var e pace.AlignmentEntry
		var status string
		err := row.Scan(&e.ID, &e.UserID, &e.ShadowID, &e.ShadowInstanceID, &status, &e.CreatedAt)
		e.Status = pace.AlignmentStatus(status)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan alignment entry: %w", err)
	}
	return out, nil
}
