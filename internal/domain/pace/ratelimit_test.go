package pace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecideRate(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time { v := now.Add(-d); return &v }
	limits := Limits{DailyCap: 10, MinSpacingSecs: 900}

	tests := []struct {
		name   string
		hist   History
		limits Limits
		want   RateDecision
	}{
		{"empty history", History{}, limits, RateDecision{Allowed: true}},
		{"cap reached", History{CountToday: 10, Last: ago(time.Hour)}, limits, RateDecision{Reason: ReasonDailyCap}},
		{"over cap", History{CountToday: 15}, limits, RateDecision{Reason: ReasonDailyCap}},
		{"too soon", History{CountToday: 3, Last: ago(5 * time.Minute)}, limits, RateDecision{Reason: ReasonSpacing}},
		{"exactly spaced", History{CountToday: 3, Last: ago(15 * time.Minute)}, limits, RateDecision{Allowed: true}},
		{"cap wins over spacing", History{CountToday: 10, Last: ago(time.Second)}, limits, RateDecision{Reason: ReasonDailyCap}},
		{"nightly ignores spacing", History{CountToday: 19, Last: ago(time.Second)}, NightlyLimits(), RateDecision{Allowed: true}},
		{"nightly cap", History{CountToday: 20}, NightlyLimits(), RateDecision{Reason: ReasonDailyCap}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideRate(tt.hist, now, tt.limits))
		})
	}
}

func TestDecideRate_CapProperty(t *testing.T) {
	now := time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC)
	spacing := 900 * time.Second

	for capN := 1; capN <= 12; capN++ {
		limits := Limits{DailyCap: capN, MinSpacingSecs: 900}

		for m := capN; m < capN+5; m++ {
			last := now.Add(-time.Duration(m) * spacing)
			d := DecideRate(History{CountToday: m, Last: &last}, now, limits)
			assert.False(t, d.Allowed, "cap %d, prior %d", capN, m)
		}

		for m := 0; m < capN; m++ {
			var last *time.Time
			if m > 0 {
				v := now.Add(-spacing)
				last = &v
			}
			d := DecideRate(History{CountToday: m, Last: last}, now, limits)
			assert.True(t, d.Allowed, "cap %d, prior %d", capN, m)
		}
	}
}

func TestShadowConfig_Limits(t *testing.T) {
	cfg := DefaultShadowConfig()
	assert.Equal(t, Limits{DailyCap: 10, MinSpacingSecs: 900}, cfg.Limits())

	cfg.MaxNotificationsPerDay = 0
	cfg.MinSecondsBetweenNotifications = 60
	assert.Equal(t, Limits{DailyCap: DefaultDailyCap, MinSpacingSecs: 60}, cfg.Limits())
}
