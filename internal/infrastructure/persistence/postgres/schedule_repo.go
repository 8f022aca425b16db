package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
)

// ScheduleRepository implements pace.ScheduleRepository for PostgreSQL.
type ScheduleRepository struct {
	conn Querier
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(conn Querier) *ScheduleRepository {
	return &ScheduleRepository{conn: conn}
}

const activeShadowTasksQuery = `
	SELECT st.id::text, t.id::text, t.title, COALESCE(t.time_anchor, ''), t.order_hint, t.created_at
	FROM shadow_tasks st
	JOIN tasks t ON t.id = st.task_id
	WHERE st.user_id = $1 AND st.status = 'active' AND t.active`

// ActiveShadowTasks returns the active mirrors of the user's active tasks,
// unordered. Planning sorts them.
func (r *ScheduleRepository) ActiveShadowTasks(ctx context.Context, userID string) ([]pace.ShadowTask, error) {
	rows, err := r.conn.Query(ctx, activeShadowTasksQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shadow tasks: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pace.ShadowTask, error) {
		var t pace.ShadowTask
		var anchor string
		err := row.Scan(&t.ID, &t.TaskID, &t.Title, &anchor, &t.OrderHint, &t.CreatedAt)
		t.Anchor = pace.TimeAnchor(anchor)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan shadow task: %w", err)
	}
	return out, nil
}

// The conflict target is the unique index created by migration 004.
const insertInstancesQuery = `
	INSERT INTO shadow_task_instances
	    (shadow_task_id, user_id, planned_start_at, planned_end_at, planned_date_local, status, progress)
	SELECT x.shadow_task_id::uuid, $1, x.start_at, x.end_at, x.day::date, $6, 0
	FROM unnest($2::text[], $3::timestamptz[], $4::timestamptz[], $5::text[])
	     AS x(shadow_task_id, start_at, end_at, day)
	ON CONFLICT (shadow_task_id, planned_date_local) DO NOTHING`

// InsertMissingInstances writes every window in one statement. Windows
// already stored for their (shadow task, date) are left untouched.
func (r *ScheduleRepository) InsertMissingInstances(ctx context.Context, userID string, planned []pace.PlannedInstance) (int, error) {
	if len(planned) == 0 {
		return 0, nil
	}

	ids := make([]string, len(planned))
	starts := make([]time.Time, len(planned))
	ends := make([]time.Time, len(planned))
	days := make([]string, len(planned))
	for i, p := range planned {
		ids[i], starts[i], ends[i], days[i] = p.ShadowTaskID, p.StartAt, p.EndAt, p.Date
	}

	tag, err := r.conn.Exec(ctx, insertInstancesQuery, userID, ids, starts, ends, days, pace.InstancePlanned)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shadow task instances: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
