package postgres

import (
	"context"
	"fmt"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ConfigRepository implements pace.ConfigRepository for PostgreSQL.
// Rows are read fresh on every call.
type ConfigRepository struct {
	conn Querier
}

// NewConfigRepository creates a new ConfigRepository.
func NewConfigRepository(conn Querier) *ConfigRepository {
	return &ConfigRepository{conn: conn}
}

// ForUser returns the user's row, else the global row, else nil.
func (r *ConfigRepository) ForUser(ctx context.Context, userID string) (*pace.ShadowConfig, error) {
	query := `
		SELECT base_speed, min_speed, max_speed, adapt_up_factor, adapt_down_factor,
		       smoothing_alpha, recovery_grace_days, carryover_cap, shadow_speed_target,
		       enabled_race, ghost_mode_ai, max_notifications_per_day,
		       min_seconds_between_notifications
		FROM shadow_config
		WHERE user_id = $1 OR user_id IS NULL
		ORDER BY user_id NULLS LAST
		LIMIT 1`

	var c pace.ShadowConfig
	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&c.BaseSpeed,
		&c.MinSpeed,
		&c.MaxSpeed,
		&c.AdaptUpFactor,
		&c.AdaptDownFactor,
		&c.SmoothingAlpha,
		&c.RecoveryGraceDays,
		&c.CarryoverCap,
		&c.ShadowSpeedTarget,
		&c.EnabledRace,
		&c.GhostModeAI,
		&c.MaxNotificationsPerDay,
		&c.MinSecondsBetweenNotifications,
	)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, shared.WrapError("config", "ForUser", shared.ErrServiceUnavailable,
			"failed to read shadow config", err)
	}
	return &c, nil
}

// SeedDefault inserts the global row unless one exists.
func (r *ConfigRepository) SeedDefault(ctx context.Context, c pace.ShadowConfig) error {
	query := `
		INSERT INTO shadow_config (
			user_id, base_speed, min_speed, max_speed, adapt_up_factor, adapt_down_factor,
			smoothing_alpha, recovery_grace_days, carryover_cap, shadow_speed_target,
			enabled_race, ghost_mode_ai, max_notifications_per_day,
			min_seconds_between_notifications
		) VALUES (NULL, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING`

	_, err := r.conn.Exec(ctx, query,
		c.BaseSpeed,
		c.MinSpeed,
		c.MaxSpeed,
		c.AdaptUpFactor,
		c.AdaptDownFactor,
		c.SmoothingAlpha,
		c.RecoveryGraceDays,
		c.CarryoverCap,
		c.ShadowSpeedTarget,
		c.EnabledRace,
		c.GhostModeAI,
		c.MaxNotificationsPerDay,
		c.MinSecondsBetweenNotifications,
	)
	if err != nil {
		return fmt.Errorf("failed to seed default config: %w", err)
	}
	return nil
}

// EnabledUsers lists users whose own row has enabled_race set.
func (r *ConfigRepository) EnabledUsers(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id::text
		FROM shadow_config
		WHERE user_id IS NOT NULL AND enabled_race
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled users: %w", err)
	}
	return collectStrings(rows)
}
