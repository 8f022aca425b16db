package pace

import (
	"fmt"
	"math"
	"time"
)

// Taunt engine constants.
const (
	TauntDailyCap = 3

	// NeverIdleMinutes stands in for "never completed anything".
	NeverIdleMinutes = 1_000_000_000

	slotWindowMinutes = 10
)

// TauntSlots are the local minutes-of-day around which a random taunt may fire.
var TauntSlots = []int{10 * 60, 15 * 60, 20 * 60}

// Taunt outcome reasons.
const (
	TauntCapReached   = "cap_reached"
	TauntNoTrigger    = "no_trigger"
	TauntInsertFailed = "insert_failed"
)

// TauntKind is why a taunt fired.
type TauntKind string

const (
	TauntRandom   TauntKind = "random"
	TauntCritical TauntKind = "critical"
)

// Intensity of a taunt.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// TauntMetrics drive the taunt decision.
type TauntMetrics struct {
	LeadNow     float64 `json:"lead_now"`
	IdleMinutes int     `json:"idle_minutes"`
}

// IdleMinutes is the whole minutes since the last completion, or
// NeverIdleMinutes when there is none.
func IdleMinutes(last *time.Time, now time.Time) int {
	if last == nil {
		return NeverIdleMinutes
	}
	m := int(now.Sub(*last) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}

// IsCritical is true when the shadow leads by more than 3 or the user has
// been idle for two hours.
func IsCritical(m TauntMetrics) bool {
	return m.LeadNow > 3 || m.IdleMinutes >= 120
}

// InRandomSlot reports whether the local minute-of-day is within ten
// minutes of a slot.
func InRandomSlot(minuteOfDay int) bool {
	for _, slot := range TauntSlots {
		d := minuteOfDay - slot
		if d < 0 {
			d = -d
		}
		if d <= slotWindowMinutes {
			return true
		}
	}
	return false
}

// ChooseTauntKind decides whether a taunt fires at all.
// A random slot only fires when the user is behind or idle.
func ChooseTauntKind(m TauntMetrics, inSlot, forceCritical bool) (TauntKind, bool) {
	if forceCritical || IsCritical(m) {
		return TauntCritical, true
	}
	if inSlot && (m.LeadNow > 1 || m.IdleMinutes >= 45) {
		return TauntRandom, true
	}
	return "", false
}

// Taunt is a chosen message and its intensity.
type Taunt struct {
	Kind      TauntKind
	Intensity Intensity
	Message   string
}

// PickTaunt selects the wording for a taunt.
func PickTaunt(kind TauntKind, m TauntMetrics) Taunt {
	t := Taunt{Kind: kind}
	if kind == TauntCritical {
		switch {
		case m.LeadNow > 6:
			t.Intensity, t.Message = IntensityHigh, fmt.Sprintf("Shadow is flying — %s steps ahead now!", wholeString(m.LeadNow))
		case m.IdleMinutes >= 240:
			t.Intensity, t.Message = IntensityHigh, fmt.Sprintf("Shadow went on without you — been %dh idle.", m.IdleMinutes/60)
		case m.LeadNow > 3:
			t.Intensity, t.Message = IntensityMedium, fmt.Sprintf("Shadow is pulling away (%s ahead).", wholeString(m.LeadNow))
		default:
			t.Intensity, t.Message = IntensityMedium, fmt.Sprintf("It's been %dm. Ready to move?", m.IdleMinutes)
		}
		return t
	}

	switch {
	case m.LeadNow <= -1 && m.IdleMinutes < 45:
		t.Intensity, t.Message = IntensityLow, "Neck and neck. One push tilts it."
	case m.LeadNow > 1:
		t.Intensity, t.Message = IntensityMedium, "Shadow’s a step ahead already."
	case m.IdleMinutes >= 45:
		t.Intensity, t.Message = IntensityMedium, "Shadow went on without you."
	default:
		t.Intensity, t.Message = IntensityLow, "Shadow watches. Keep rolling."
	}
	return t
}

// wholeString rounds half away from zero, e.g. 6.5 -> "7".
func wholeString(v float64) string {
	return fmt.Sprintf("%d", int64(math.Round(v)))
}
