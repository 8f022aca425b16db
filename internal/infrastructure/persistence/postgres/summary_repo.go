package postgres

import (
	"context"
	"fmt"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
)

// SummaryRepository implements pace.SummaryRepository for PostgreSQL.
type SummaryRepository struct {
	conn Querier
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(conn Querier) *SummaryRepository {
	return &SummaryRepository{conn: conn}
}

// Upsert replaces the (user, week_start) row.
func (r *SummaryRepository) Upsert(ctx context.Context, s pace.WeeklySummary) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO weekly_summaries (
			user_id, week_start, week_end, user_total, shadow_total, wins, losses, carryover, meta
		) VALUES ($1, $2::date, $3::date, $4, $5, $6, $7, $8, '{}'::jsonb)
		ON CONFLICT (user_id, week_start) DO UPDATE SET
			week_end = EXCLUDED.week_end,
			user_total = EXCLUDED.user_total,
			shadow_total = EXCLUDED.shadow_total,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			carryover = EXCLUDED.carryover`,
		s.UserID, s.WeekStart, s.WeekEnd, s.UserTotal, s.ShadowTotal, s.Wins, s.Losses, s.Carryover,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly summary: %w", err)
	}
	return nil
}

// Get returns the summary or nil.
func (r *SummaryRepository) Get(ctx context.Context, userID, weekStart string) (*pace.WeeklySummary, error) {
	s := pace.WeeklySummary{UserID: userID}
	err := r.conn.QueryRow(ctx, `
		SELECT week_start::text, week_end::text, user_total, shadow_total, wins, losses, carryover
		FROM weekly_summaries
		WHERE user_id = $1 AND week_start = $2::date`, userID, weekStart,
	).Scan(&s.WeekStart, &s.WeekEnd, &s.UserTotal, &s.ShadowTotal, &s.Wins, &s.Losses, &s.Carryover)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly summary: %w", err)
	}
	return &s, nil
}

// UsersWithDaily lists users having daily rows in [from, to].
func (r *SummaryRepository) UsersWithDaily(ctx context.Context, from, to string) ([]string, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT DISTINCT user_id::text
		FROM shadow_progress_daily
		WHERE date BETWEEN $1::date AND $2::date
		ORDER BY 1`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with daily rows: %w", err)
	}
	return collectStrings(rows)
}
