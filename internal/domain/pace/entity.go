// Package pace contains the shadow pace engine: the synthetic competitor's
// numeric model and the pure decisions made on top of it.
//
// Everything here takes explicit inputs and returns explicit outputs.
// Storage is reached only through the repository interfaces in
// repository.go, implemented by the infrastructure layer.
package pace

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// DailyProgress is one row per (user, local calendar day).
// Created lazily on the first measurement of a day and never deleted.
type DailyProgress struct {
	UserID string `json:"user_id"`

	// Date is the local calendar day, YYYY-MM-DD.
	Date string `json:"date"`

	// UserSpeedAvg is nil until a speed has been measured for the day.
	UserSpeedAvg *float64 `json:"user_speed_avg"`

	// ShadowSpeedTarget is the competitor's pace for the day.
	ShadowSpeedTarget *float64 `json:"shadow_speed_target"`

	UserDistance   float64 `json:"user_distance"`
	ShadowDistance float64 `json:"shadow_distance"`

	// Lead is shadow_distance - user_distance. Positive means the shadow leads.
	Lead float64 `json:"lead"`

	DifficultyTier string    `json:"difficulty_tier,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SpeedOrZero returns the stored speed or 0 when unset.
func (d DailyProgress) SpeedOrZero() float64 {
	if d.UserSpeedAvg == nil {
		return 0
	}
	return *d.UserSpeedAvg
}

// TargetOrZero returns the stored target or 0 when unset.
func (d DailyProgress) TargetOrZero() float64 {
	if d.ShadowSpeedTarget == nil {
		return 0
	}
	return *d.ShadowSpeedTarget
}

// ══════════════════════════════════════════════════════════════════════════════
// SPEED SAMPLES
// ══════════════════════════════════════════════════════════════════════════════

// SpeedSample is a short-interval observation of the user's rate.
// Samples only feed the rolling window; retention belongs to storage.
type SpeedSample struct {
	UserID string    `json:"user_id"`
	Speed  float64   `json:"user_speed_now"`
	At     time.Time `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// TASKS AND COMPLETIONS
// ══════════════════════════════════════════════════════════════════════════════

// Owner types for tasks. Only user-owned tasks count toward the user's pace.
const (
	OwnerUser   = "user"
	OwnerShadow = "shadow"
)

// Completion is a completed work item.
type Completion struct {
	TaskID      string
	OwnerType   string // empty means user
	CompletedAt time.Time
}

// IsUserOwned reports whether the completion belongs to the user's own task.
func (c Completion) IsUserOwned() bool {
	return c.OwnerType == "" || c.OwnerType == OwnerUser
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMITS
// ══════════════════════════════════════════════════════════════════════════════

// Commit is the per-day pace decision recorded for a user.
type Commit struct {
	UserID         string         `json:"user_id"`
	Day            string         `json:"day"`
	Delta          int            `json:"delta"`
	TargetToday    int            `json:"target_today"`
	CompletedToday int            `json:"completed_today"`
	DecisionKind   DecisionKind   `json:"decision_kind"`
	Payload        map[string]any `json:"payload"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ALIGNMENT EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// Instance statuses.
const (
	InstancePlanned   = "planned"
	InstanceCompleted = "completed"
)

// TaskInstance is one planned unit of the shadow's own schedule.
type TaskInstance struct {
	ID             string
	ShadowTaskID   string
	ShadowID       string
	OwnerUserID    string
	PlannedStartAt time.Time
	PlannedEndAt   time.Time
	Status         string
	Progress       int
	CompletedAt    *time.Time
}

// AlignmentEntry is appended to the alignment log when an instance completes.
type AlignmentEntry struct {
	ID               string          `json:"id"`
	UserID           string          `json:"-"`
	ShadowID         string          `json:"shadow_id"`
	ShadowInstanceID string          `json:"shadow_instance_id"`
	Status           AlignmentStatus `json:"alignment_status"`
	CreatedAt        time.Time       `json:"recorded_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// WeeklySummary is one row per (user, week_start), fully recomputed each run.
type WeeklySummary struct {
	UserID      string  `json:"-"`
	WeekStart   string  `json:"week_start"`
	WeekEnd     string  `json:"week_end"`
	UserTotal   float64 `json:"user_total"`
	ShadowTotal float64 `json:"shadow_total"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Carryover   float64 `json:"carryover"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Personas steer message tone.
const (
	PersonaStrict  = "strict"
	PersonaMentor  = "mentor"
	PersonaPlayful = "playful"
	PersonaNeutral = "neutral"
)

// Profile is the shadow profile of a user.
type Profile struct {
	UserID   string
	Persona  string
	Timezone string
}

// ══════════════════════════════════════════════════════════════════════════════
// DRY-RUN LOG
// ══════════════════════════════════════════════════════════════════════════════

// DryRunKind labels an observability snapshot.
type DryRunKind string

const (
	DryRunStateSnapshot DryRunKind = "state_snapshot"
	DryRunRaceUpdate    DryRunKind = "race_update"
	DryRunPaceAdapt     DryRunKind = "pace_adapt"
)
