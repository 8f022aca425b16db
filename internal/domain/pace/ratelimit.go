package pace

import (
	"time"
)

// Notification limit defaults.
const (
	DefaultDailyCap       = 10
	DefaultMinSpacingSecs = 900

	// NightlyDailyCap is the looser cap used by the nightly batch, which
	// does not check spacing.
	NightlyDailyCap = 20
)

// Rejection reasons reported in skipped outcomes.
const (
	ReasonDailyCap = "rate_limit_daily"
	ReasonSpacing  = "rate_limit_spacing"
)

// Limits bound notification volume for one call site.
// MinSpacingSecs of zero disables the spacing check.
type Limits struct {
	DailyCap       int
	MinSpacingSecs int
}

// NightlyLimits are the limits of the nightly smoothing batch.
func NightlyLimits() Limits {
	return Limits{DailyCap: NightlyDailyCap}
}

// History is what the limiter knows about today's notifications.
type History struct {
	CountToday int
	Last       *time.Time
}

// RateDecision is the limiter's verdict.
type RateDecision struct {
	Allowed bool
	Reason  string
}

// DecideRate applies the daily cap, then the spacing rule.
//
// The check is not atomic with the write that follows it: two concurrent
// triggers for the same user may both be allowed.
func DecideRate(h History, now time.Time, l Limits) RateDecision {
	if h.CountToday >= l.DailyCap {
		return RateDecision{Reason: ReasonDailyCap}
	}
	if h.Last != nil && l.MinSpacingSecs > 0 {
		if now.Sub(*h.Last) < time.Duration(l.MinSpacingSecs)*time.Second {
			return RateDecision{Reason: ReasonSpacing}
		}
	}
	return RateDecision{Allowed: true}
}
