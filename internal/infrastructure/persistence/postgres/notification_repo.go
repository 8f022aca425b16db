package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// INBOX
// ══════════════════════════════════════════════════════════════════════════════

// InboxRepository implements notification.Repository over user_messages.
type InboxRepository struct {
	conn Querier
}

// NewInboxRepository creates a new InboxRepository.
func NewInboxRepository(conn Querier) *InboxRepository {
	return &InboxRepository{conn: conn}
}

// Insert stores the record and fills its ID and CreatedAt.
func (r *InboxRepository) Insert(ctx context.Context, rec *notification.Record) error {
	if !rec.ID.IsValid() {
		rec.ID = notification.RecordID(uuid.NewString())
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO user_messages (id, user_id, kind, title, body, url, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`,
		rec.ID.String(), rec.UserID, string(rec.Kind), rec.Title, rec.Body, rec.URL, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// CountBetween counts the user's records created in [from, to].
func (r *InboxRepository) CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `
		SELECT count(*) FROM user_messages
		WHERE user_id = $1 AND created_at BETWEEN $2 AND $3`, userID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

// LastBetween returns the newest creation time in [from, to], or nil.
func (r *InboxRepository) LastBetween(ctx context.Context, userID string, from, to time.Time) (*time.Time, error) {
	var last *time.Time
	err := r.conn.QueryRow(ctx, `
		SELECT max(created_at) FROM user_messages
		WHERE user_id = $1 AND created_at BETWEEN $2 AND $3`, userID, from, to).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to read last notification: %w", err)
	}
	return last, nil
}

// ListRecent returns the newest records first.
func (r *InboxRepository) ListRecent(ctx context.Context, userID string, limit int) ([]notification.Record, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id::text, user_id::text, COALESCE(kind, ''), title, body, url, read_at, created_at
		FROM user_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.Record, error) {
		var rec notification.Record
		var id, kind string
		err := row.Scan(&id, &rec.UserID, &kind, &rec.Title, &rec.Body, &rec.URL, &rec.ReadAt, &rec.CreatedAt)
		rec.ID = notification.RecordID(id)
		rec.Kind = notification.Kind(kind)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TAUNT LOG
// ══════════════════════════════════════════════════════════════════════════════

// TauntRepository implements notification.TauntRepository over ai_taunts.
type TauntRepository struct {
	conn Querier
}

// NewTauntRepository creates a new TauntRepository.
func NewTauntRepository(conn Querier) *TauntRepository {
	return &TauntRepository{conn: conn}
}

// Insert stores the taunt and fills its ID.
func (r *TauntRepository) Insert(ctx context.Context, t *notification.TauntRecord) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	meta := t.Meta
	if meta == nil {
		meta = map[string]any{}
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO ai_taunts (id, user_id, intensity, message, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.Intensity, t.Message, meta, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert taunt: %w", err)
	}
	return nil
}

// CountBetween counts the user's taunts created in [from, to].
func (r *TauntRepository) CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `
		SELECT count(*) FROM ai_taunts
		WHERE user_id = $1 AND created_at BETWEEN $2 AND $3`, userID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count taunts: %w", err)
	}
	return n, nil
}

// ListRecent returns the newest taunts first.
func (r *TauntRepository) ListRecent(ctx context.Context, userID string, limit int) ([]notification.TauntRecord, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id::text, user_id::text, intensity, message, meta, created_at
		FROM ai_taunts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list taunts: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.TauntRecord, error) {
		var t notification.TauntRecord
		err := row.Scan(&t.ID, &t.UserID, &t.Intensity, &t.Message, &t.Meta, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan taunt: %w", err)
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSONA MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// PersonaRepository implements notification.PersonaRepository over shadow_messages.
type PersonaRepository struct {
	conn Querier
}

// NewPersonaRepository creates a new PersonaRepository.
func NewPersonaRepository(conn Querier) *PersonaRepository {
	return &PersonaRepository{conn: conn}
}

// Insert stores the message and fills its ID.
func (r *PersonaRepository) Insert(ctx context.Context, m *notification.PersonaMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO shadow_messages (id, user_id, type, text, expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, string(m.Type), m.Text, m.Expiry, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert persona message: %w", err)
	}
	return nil
}

// Latest returns the newest message still valid at now, or nil.
func (r *PersonaRepository) Latest(ctx context.Context, userID string, now time.Time) (*notification.PersonaMessage, error) {
	var m notification.PersonaMessage
	var tone string
	err := r.conn.QueryRow(ctx, `
		SELECT id::text, user_id::text, type, text, expiry, created_at
		FROM shadow_messages
		WHERE user_id = $1 AND expiry > $2
		ORDER BY created_at DESC
		LIMIT 1`, userID, now,
	).Scan(&m.ID, &m.UserID, &tone, &m.Text, &m.Expiry, &m.CreatedAt)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read persona message: %w", err)
	}
	m.Type = notification.Tone(tone)
	return &m, nil
}
