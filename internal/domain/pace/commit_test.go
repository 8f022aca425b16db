package pace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

func TestDecide(t *testing.T) {
	tests := map[int]DecisionKind{
		5:  DecisionBoost,
		2:  DecisionBoost,
		1:  DecisionNudge,
		0:  DecisionNoop,
		-1: DecisionNudge,
		-2: DecisionSlowdown,
		-7: DecisionSlowdown,
	}
	for delta, want := range tests {
		assert.Equal(t, want, Decide(delta), "delta %d", delta)
	}
}

func TestShadowConfig_TargetToday(t *testing.T) {
	cfg := DefaultShadowConfig()
	assert.Equal(t, 3, cfg.TargetToday())

	for target, want := range map[float64]int{2.5: 3, 2.49: 2, 0.4: 0, -3: 0, 4.0: 4} {
		cfg.ShadowSpeedTarget = fp(target)
		assert.Equal(t, want, cfg.TargetToday(), "target %v", target)
	}
}

func TestNewRaceState(t *testing.T) {
	cfg := DefaultShadowConfig()
	st := NewRaceState(cfg, []string{"a", "b", "c", "d", "e"})

	assert.Equal(t, 3, st.TargetToday)
	assert.Equal(t, 5, st.CompletedToday)
	assert.Equal(t, 2, st.Delta)
	assert.Equal(t, -2.0, st.Lead())

	row := st.DailyRow("u1", "2024-05-10")
	require.NotNil(t, row.UserSpeedAvg)
	require.NotNil(t, row.ShadowSpeedTarget)
	assert.Equal(t, 5.0, *row.UserSpeedAvg)
	assert.Equal(t, 3.0, *row.ShadowSpeedTarget)
	assert.Equal(t, 5.0, row.UserDistance)
	assert.Equal(t, 3.0, row.ShadowDistance)
	assert.Equal(t, -2.0, row.Lead)
}

func TestComposeNudge(t *testing.T) {
	tests := []struct {
		name  string
		kind  DecisionKind
		delta int
		want  NudgeText
	}{
		{"boost", DecisionBoost, 3, NudgeText{"On a roll!", "You are ahead by 3. Consider tackling a stretch task."}},
		{"slowdown", DecisionSlowdown, -2, NudgeText{"It’s okay to slow down", "You are behind by 2. Try a small win to recover momentum."}},
		{"one behind", DecisionNudge, -1, NudgeText{"One more to go", "Finish one quick task to hit your target."}},
		{"one ahead", DecisionNudge, 1, NudgeText{"Nice pace", "Optional extra if you feel good."}},
		{"fallback", DecisionNoop, 0, NudgeText{"Keep pace today", "Target 3, done 3. You are ahead by 0."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeNudge(tt.kind, tt.delta, 3, 3+tt.delta))
		})
	}
}

func TestShadowConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultShadowConfig().Validate())

	bad := DefaultShadowConfig()
	bad.MaxSpeed = 0.1
	err := bad.Validate()
	assert.ErrorIs(t, err, shared.ErrConfigInvalid)
	assert.True(t, shared.IsValidation(err))

	bad = DefaultShadowConfig()
	bad.SmoothingAlpha = 0
	assert.ErrorIs(t, bad.Validate(), shared.ErrConfigInvalid)
}
