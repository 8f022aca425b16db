package pace

import (
	"fmt"
)

// DecisionKind is the intraday pace decision for a day.
type DecisionKind string

const (
	DecisionBoost    DecisionKind = "boost"
	DecisionSlowdown DecisionKind = "slowdown"
	DecisionNudge    DecisionKind = "nudge"
	DecisionNoop     DecisionKind = "noop"
)

// Decide maps delta = completed - target to a decision.
func Decide(delta int) DecisionKind {
	switch {
	case delta >= 2:
		return DecisionBoost
	case delta <= -2:
		return DecisionSlowdown
	case delta == 1 || delta == -1:
		return DecisionNudge
	default:
		return DecisionNoop
	}
}

// RaceState is today's race measured against the resolved config.
type RaceState struct {
	TargetToday      int
	CompletedToday   int
	Delta            int
	CompletedTaskIDs []string
}

// NewRaceState derives the delta from the completed ids and the config target.
func NewRaceState(cfg ShadowConfig, completedTaskIDs []string) RaceState {
	target := cfg.TargetToday()
	completed := len(completedTaskIDs)
	return RaceState{
		TargetToday:      target,
		CompletedToday:   completed,
		Delta:            completed - target,
		CompletedTaskIDs: completedTaskIDs,
	}
}

// Lead of the day in shadow-minus-user terms.
func (s RaceState) Lead() float64 {
	return Lead(float64(s.TargetToday), float64(s.CompletedToday))
}

// DailyRow is the progress row written alongside a commit.
// The measured daily speed is the completed count.
func (s RaceState) DailyRow(userID, day string) DailyProgress {
	speed := float64(s.CompletedToday)
	target := float64(s.TargetToday)
	return DailyProgress{
		UserID:            userID,
		Date:              day,
		UserSpeedAvg:      &speed,
		ShadowSpeedTarget: &target,
		UserDistance:      float64(s.CompletedToday),
		ShadowDistance:    float64(s.TargetToday),
		Lead:              s.Lead(),
	}
}

// NudgeText is the title and body of a commit nudge.
type NudgeText struct {
	Title string
	Body  string
}

// ComposeNudge picks the nudge wording for a decision.
func ComposeNudge(kind DecisionKind, delta, target, completed int) NudgeText {
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	switch kind {
	case DecisionBoost:
		return NudgeText{"On a roll!", fmt.Sprintf("You are ahead by %d. Consider tackling a stretch task.", abs)}
	case DecisionSlowdown:
		return NudgeText{"It’s okay to slow down", fmt.Sprintf("You are behind by %d. Try a small win to recover momentum.", abs)}
	case DecisionNudge:
		if delta < 0 {
			return NudgeText{"One more to go", "Finish one quick task to hit your target."}
		}
		return NudgeText{"Nice pace", "Optional extra if you feel good."}
	}
	dir := "ahead"
	if delta < 0 {
		dir = "behind"
	}
	return NudgeText{"Keep pace today", fmt.Sprintf("Target %d, done %d. You are %s by %d.", target, completed, dir, abs)}
}
