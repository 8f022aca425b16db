package pace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdleMinutes(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-95*time.Minute - 30*time.Second)
	future := now.Add(time.Minute)

	assert.Equal(t, NeverIdleMinutes, IdleMinutes(nil, now))
	assert.Equal(t, 95, IdleMinutes(&last, now))
	assert.Equal(t, 0, IdleMinutes(&future, now))
}

func TestInRandomSlot(t *testing.T) {
	for minute, want := range map[int]bool{
		589:  false,
		590:  true,
		600:  true,
		610:  true,
		611:  false,
		900:  true,
		1190: true,
		1211: false,
		0:    false,
	} {
		assert.Equal(t, want, InRandomSlot(minute), "minute %d", minute)
	}
}

func TestChooseTauntKind(t *testing.T) {
	tests := []struct {
		name   string
		m      TauntMetrics
		inSlot bool
		force  bool
		want   TauntKind
		fires  bool
	}{
		{"big lead is critical", TauntMetrics{LeadNow: 3.5}, false, false, TauntCritical, true},
		{"two hours idle is critical", TauntMetrics{IdleMinutes: 120}, false, false, TauntCritical, true},
		{"forced", TauntMetrics{}, false, true, TauntCritical, true},
		{"slot and behind", TauntMetrics{LeadNow: 1.5}, true, false, TauntRandom, true},
		{"slot and idle", TauntMetrics{IdleMinutes: 45}, true, false, TauntRandom, true},
		{"slot but on pace", TauntMetrics{LeadNow: 1, IdleMinutes: 44}, true, false, "", false},
		{"behind outside slot", TauntMetrics{LeadNow: 2}, false, false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := ChooseTauntKind(tt.m, tt.inSlot, tt.force)
			assert.Equal(t, tt.fires, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestPickTaunt(t *testing.T) {
	tests := []struct {
		name      string
		kind      TauntKind
		m         TauntMetrics
		intensity Intensity
		message   string
	}{
		{"flying", TauntCritical, TauntMetrics{LeadNow: 6.5}, IntensityHigh, "Shadow is flying — 7 steps ahead now!"},
		{"long idle", TauntCritical, TauntMetrics{LeadNow: 1, IdleMinutes: 250}, IntensityHigh, "Shadow went on without you — been 4h idle."},
		{"pulling away", TauntCritical, TauntMetrics{LeadNow: 4, IdleMinutes: 10}, IntensityMedium, "Shadow is pulling away (4 ahead)."},
		{"idle prompt", TauntCritical, TauntMetrics{IdleMinutes: 130}, IntensityMedium, "It's been 130m. Ready to move?"},
		{"random close", TauntRandom, TauntMetrics{LeadNow: -1, IdleMinutes: 10}, IntensityLow, "Neck and neck. One push tilts it."},
		{"random behind", TauntRandom, TauntMetrics{LeadNow: 2}, IntensityMedium, "Shadow’s a step ahead already."},
		{"random idle", TauntRandom, TauntMetrics{IdleMinutes: 50}, IntensityMedium, "Shadow went on without you."},
		{"random calm", TauntRandom, TauntMetrics{}, IntensityLow, "Shadow watches. Keep rolling."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PickTaunt(tt.kind, tt.m)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.intensity, got.Intensity)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}
