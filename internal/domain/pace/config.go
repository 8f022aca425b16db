package pace

import (
	"fmt"
	"math"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ShadowConfig holds the per-user tunables of the race.
// One logical row is resolved per user: the user's own row, else the
// global default row, else DefaultShadowConfig.
type ShadowConfig struct {
	BaseSpeed         float64  `json:"base_speed"`
	MinSpeed          float64  `json:"min_speed"`
	MaxSpeed          float64  `json:"max_speed"`
	AdaptUpFactor     float64  `json:"adapt_up_factor"`
	AdaptDownFactor   float64  `json:"adapt_down_factor"`
	SmoothingAlpha    float64  `json:"smoothing_alpha"`
	RecoveryGraceDays int      `json:"recovery_grace_days"`
	CarryoverCap      float64  `json:"carryover_cap"`
	ShadowSpeedTarget *float64 `json:"shadow_speed_target"`
	EnabledRace       bool     `json:"enabled_race"`
	GhostModeAI       bool     `json:"ghost_mode_ai"`

	MaxNotificationsPerDay         int `json:"max_notifications_per_day"`
	MinSecondsBetweenNotifications int `json:"min_seconds_between_notifications"`
}

// DefaultShadowConfig returns the in-memory defaults used as a last resort.
func DefaultShadowConfig() ShadowConfig {
	return ShadowConfig{
		BaseSpeed:                      3,
		MinSpeed:                       1,
		MaxSpeed:                       10,
		AdaptUpFactor:                  1.2,
		AdaptDownFactor:                0.85,
		SmoothingAlpha:                 0.25,
		RecoveryGraceDays:              1,
		CarryoverCap:                   10,
		ShadowSpeedTarget:              nil,
		EnabledRace:                    true,
		GhostModeAI:                    false,
		MaxNotificationsPerDay:         10,
		MinSecondsBetweenNotifications: 900,
	}
}

// Limits returns the notification limits configured for the user.
// Zero values fall back to the defaults.
func (c ShadowConfig) Limits() Limits {
	l := Limits{
		DailyCap:       c.MaxNotificationsPerDay,
		MinSpacingSecs: c.MinSecondsBetweenNotifications,
	}
	if l.DailyCap <= 0 {
		l.DailyCap = DefaultDailyCap
	}
	if l.MinSpacingSecs <= 0 {
		l.MinSpacingSecs = DefaultMinSpacingSecs
	}
	return l
}

// TargetToday is the whole-number target for today:
// max(0, round(shadow_speed_target ?? base_speed)), rounding halves up.
func (c ShadowConfig) TargetToday() int {
	x := c.BaseSpeed
	if c.ShadowSpeedTarget != nil {
		x = *c.ShadowSpeedTarget
	}
	t := math.Floor(x + 0.5)
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	return int(t)
}

// Validate checks the invariants a stored row must satisfy.
func (c ShadowConfig) Validate() error {
	switch {
	case c.MinSpeed < 0 || c.MaxSpeed < c.MinSpeed:
		return invalidConfig(fmt.Sprintf("speed range [%v, %v]", c.MinSpeed, c.MaxSpeed))
	case c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1:
		return invalidConfig(fmt.Sprintf("smoothing_alpha %v", c.SmoothingAlpha))
	case c.MaxNotificationsPerDay < 0 || c.MinSecondsBetweenNotifications < 0:
		return invalidConfig("negative notification limits")
	}
	return nil
}

func invalidConfig(msg string) error {
	return shared.WrapError("pace", "ValidateConfig", shared.ErrConfigInvalid, msg, nil)
}
