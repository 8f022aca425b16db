// Package race holds the application services shared by commands, queries
// and batch jobs: per-user settings resolution, today's race snapshot,
// rate-limited inbox writes and dry-run logging.
package race

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS RESOLVER
// Config and timezone are read fresh on every call. Nothing is cached.
// ══════════════════════════════════════════════════════════════════════════════

// Resolver resolves a user's ShadowConfig and timezone.
type Resolver struct {
	configs     pace.ConfigRepository
	profiles    pace.ProfileRepository
	defaultZone string
	log         *logger.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(
	configs pace.ConfigRepository,
	profiles pace.ProfileRepository,
	defaultZone string,
	log *logger.Logger,
) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		configs:     configs,
		profiles:    profiles,
		defaultZone: defaultZone,
		log:         log.With(logger.Component("settings")),
	}
}

// Config returns the user's row, else the global row, else the in-memory
// defaults. When neither row exists the global default row is seeded; a
// failed seed is ignored.
func (r *Resolver) Config(ctx context.Context, userID string) (pace.ShadowConfig, error) {
	cfg, err := r.configs.ForUser(ctx, userID)
	if err != nil {
		return pace.ShadowConfig{}, fmt.Errorf("resolve config: %w", err)
	}

	if cfg == nil {
		defaults := pace.DefaultShadowConfig()
		if err := r.configs.SeedDefault(ctx, defaults); err != nil {
			r.log.Debug("seed default config failed", logger.UserID(userID), logger.Err(err))
		}

		cfg, err = r.configs.ForUser(ctx, userID)
		if err != nil || cfg == nil {
			return defaults, nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return pace.ShadowConfig{}, err
	}
	return *cfg, nil
}

// Location returns the user's zone: preferences, then profile, then the
// configured default, then UTC. Unknown names fall through silently.
func (r *Resolver) Location(ctx context.Context, userID string) (*time.Location, error) {
	name, err := r.profiles.Timezone(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}
	return timeutil.LoadLocation(name, r.defaultZone), nil
}

// DefaultLocation is the configured default zone, or UTC.
func (r *Resolver) DefaultLocation() *time.Location {
	return timeutil.LoadLocation("", r.defaultZone)
}

// ProfileLocation resolves a zone taken from a profile row.
func (r *Resolver) ProfileLocation(name string) *time.Location {
	return timeutil.LoadLocation(name, r.defaultZone)
}
