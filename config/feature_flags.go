package config

import (
	"errors"
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Flag names. Flags only gate side effects of the pace engine (logs, samples,
// messages); target math always runs.
const (
	FeaturePaceDryRunLogs   = "pace.dry_run_logs"
	FeaturePaceSpeedSamples = "pace.speed_samples"

	FeatureNotifyNightlyTaunt = "notify.nightly_taunt"
	FeatureNotifyCommitNudge  = "notify.commit_nudge"
	FeatureNotifyTauntEngine  = "notify.taunt_engine"
	FeatureNotifyTauntInbox   = "notify.taunt_inbox"

	FeaturePersonaMessages = "persona.messages"
)

var (
	ErrFeatureNotFound       = errors.New("feature not found")
	ErrInvalidRolloutPercent = errors.New("rollout percent must be 0-100")
)

// FeatureFlags holds per-flag rollout percentages and per-user overrides.
// A nil *FeatureFlags reports every flag as enabled.
type FeatureFlags struct {
	mu sync.RWMutex

	rollout   map[string]int             // flag -> percent of users
	overrides map[string]map[string]bool // userID -> flag -> enabled
}

// FeatureContext identifies who a flag is evaluated for.
type FeatureContext struct {
	UserID string
}

// ForUser is shorthand for a plain user context.
func ForUser(userID string) *FeatureContext {
	return &FeatureContext{UserID: userID}
}

// NewFeatureFlags returns every flag at 100%.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		rollout:   make(map[string]int),
		overrides: make(map[string]map[string]bool),
	}
	for _, name := range []string{
		FeaturePaceDryRunLogs,
		FeaturePaceSpeedSamples,
		FeatureNotifyNightlyTaunt,
		FeatureNotifyCommitNudge,
		FeatureNotifyTauntEngine,
		FeatureNotifyTauntInbox,
		FeaturePersonaMessages,
	} {
		ff.rollout[name] = 100
	}
	return ff
}

// LoadFeatureFlags applies overrides read through lookup:
//
//	FEATURE_NOTIFY_TAUNT_ENGINE=false     off for everyone
//	FEATURE_PERSONA_MESSAGES=25           on for 25% of users
//	FEATURE_PERSONA_MESSAGES_USERS=u1,u2  always on for u1 and u2
//
// Unparseable values are ignored.
func LoadFeatureFlags(lookup func(key, defaultVal string) string) *FeatureFlags {
	ff := NewFeatureFlags()
	if lookup == nil {
		return ff
	}
	for name := range ff.rollout {
		key := envKey(name)
		if val := strings.TrimSpace(lookup(key, "")); val != "" {
			ff.applyOverride(name, val)
		}
		for _, userID := range strings.Split(lookup(key+"_USERS", ""), ",") {
			if userID = strings.TrimSpace(userID); userID != "" {
				ff.setOverride(userID, name, true)
			}
		}
	}
	return ff
}

func (ff *FeatureFlags) applyOverride(name, val string) {
	if on, err := strconv.ParseBool(val); err == nil {
		ff.rollout[name] = 0
		if on {
			ff.rollout[name] = 100
		}
		return
	}
	if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
		ff.rollout[name] = p
	}
}

// "notify.taunt_engine" -> "FEATURE_NOTIFY_TAUNT_ENGINE"
func envKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// IsEnabled reports whether the flag is on for ctx. A user override wins;
// otherwise users fall into a stable hash bucket against the rollout
// percentage. Unknown flags are off.
func (ff *FeatureFlags) IsEnabled(name string, ctx *FeatureContext) bool {
	if ff == nil {
		return true
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.UserID != "" {
		if on, ok := ff.overrides[ctx.UserID][name]; ok {
			return on
		}
	}
	percent, ok := ff.rollout[name]
	switch {
	case !ok || percent <= 0:
		return false
	case percent >= 100:
		return true
	case ctx == nil || ctx.UserID == "":
		return false
	default:
		return bucket(name, ctx.UserID) < percent
	}
}

func bucket(name, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}

// SetRolloutPercent updates the rollout percentage for a flag.
func (ff *FeatureFlags) SetRolloutPercent(name string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.rollout[name]; !ok {
		return ErrFeatureNotFound
	}
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}
	ff.rollout[name] = percent
	return nil
}

func (ff *FeatureFlags) EnableFeature(name string) error  { return ff.SetRolloutPercent(name, 100) }
func (ff *FeatureFlags) DisableFeature(name string) error { return ff.SetRolloutPercent(name, 0) }

// SetUserOverride pins a flag on or off for one user.
func (ff *FeatureFlags) SetUserOverride(userID, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ff.setOverride(userID, name, enabled)
}

func (ff *FeatureFlags) setOverride(userID, name string, enabled bool) {
	if ff.overrides[userID] == nil {
		ff.overrides[userID] = make(map[string]bool)
	}
	ff.overrides[userID][name] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.overrides, userID)
}

// Names returns the known flag names, sorted.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	names := make([]string, 0, len(ff.rollout))
	for name := range ff.rollout {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Rollout returns a copy of every flag's percentage.
func (ff *FeatureFlags) Rollout() map[string]int {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make(map[string]int, len(ff.rollout))
	for k, v := range ff.rollout {
		out[k] = v
	}
	return out
}
