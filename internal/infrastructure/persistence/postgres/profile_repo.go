package postgres

import (
	"context"
	"fmt"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// MaxProfileUsers bounds the persona batch.
const MaxProfileUsers = 5000

// ProfileRepository implements pace.ProfileRepository for PostgreSQL.
type ProfileRepository struct {
	conn Querier
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn Querier) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// Timezone prefers user_preferences, then shadow_profile, then "".
func (r *ProfileRepository) Timezone(ctx context.Context, userID string) (string, error) {
	var tz string
	err := r.conn.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT NULLIF(timezone, '') FROM user_preferences WHERE user_id = $1),
			(SELECT NULLIF(timezone, '') FROM shadow_profile WHERE user_id = $1),
			''
		)`, userID).Scan(&tz)
	if err != nil {
		return "", fmt.Errorf("failed to read timezone: %w", err)
	}
	return tz, nil
}

// Profile returns shared.ErrProfileNotFound when absent.
func (r *ProfileRepository) Profile(ctx context.Context, userID string) (*pace.Profile, error) {
	p := pace.Profile{UserID: userID}
	err := r.conn.QueryRow(ctx, `
		SELECT persona_type, COALESCE(timezone, '')
		FROM shadow_profile
		WHERE user_id = $1`, userID).Scan(&p.Persona, &p.Timezone)
	if IsNoRows(err) {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return &p, nil
}

// UsersWithProfile lists profile owners, most recently updated first.
func (r *ProfileRepository) UsersWithProfile(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id::text
		FROM shadow_profile
		ORDER BY updated_at DESC
		LIMIT $1`, MaxProfileUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile users: %w", err)
	}
	return collectStrings(rows)
}
