package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
)

// SampleRepository implements pace.SpeedSampleStore over shadow_speed_samples.
// It is the durable copy behind the Redis window.
type SampleRepository struct {
	conn Querier
}

// NewSampleRepository creates a new SampleRepository.
func NewSampleRepository(conn Querier) *SampleRepository {
	return &SampleRepository{conn: conn}
}

// Append stores one sample.
func (r *SampleRepository) Append(ctx context.Context, s pace.SpeedSample) error {
	at := s.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.conn.Exec(ctx, `
		INSERT INTO shadow_speed_samples (user_id, user_speed_now, created_at)
		VALUES ($1, $2, $3)`, s.UserID, s.Speed, at)
	if err != nil {
		return fmt.Errorf("failed to insert speed sample: %w", err)
	}
	return nil
}

// Since returns up to limit samples newer than since, newest first.
func (r *SampleRepository) Since(ctx context.Context, userID string, since time.Time, limit int) ([]pace.SpeedSample, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id::text, user_speed_now, created_at
		FROM shadow_speed_samples
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query speed samples: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pace.SpeedSample, error) {
		var s pace.SpeedSample
		err := row.Scan(&s.UserID, &s.Speed, &s.At)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan speed sample: %w", err)
	}
	return out, nil
}

// DryRunRepository implements pace.DryRunLogger over shadow_dry_run_logs.
type DryRunRepository struct {
	conn Querier
}

// NewDryRunRepository creates a new DryRunRepository.
func NewDryRunRepository(conn Querier) *DryRunRepository {
	return &DryRunRepository{conn: conn}
}

// LogDryRun stores the payload as JSONB.
func (r *DryRunRepository) LogDryRun(ctx context.Context, userID string, kind pace.DryRunKind, payload any) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO shadow_dry_run_logs (user_id, kind, payload)
		VALUES ($1, $2, $3)`, userID, string(kind), payload)
	if err != nil {
		return fmt.Errorf("failed to insert dry-run log: %w", err)
	}
	return nil
}
