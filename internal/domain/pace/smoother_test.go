package pace

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

func fp(v float64) *float64 { return &v }

func rowsFrom(speeds ...float64) []DailyProgress {
	rows := make([]DailyProgress, len(speeds))
	for i, s := range speeds {
		rows[i] = DailyProgress{Date: "2024-03-0" + string(rune('1'+i)), UserSpeedAvg: fp(s)}
	}
	return rows
}

func TestSmooth_WeekScenario(t *testing.T) {
	rows := rowsFrom(2.0, 3.0, 2.5, 4.0, 3.5, 3.0, 5.0)

	res, err := Smooth(rows, NightlyAlpha, DefaultClamp())
	require.NoError(t, err)

	// 2 -> 2.25 -> 2.3125 -> 2.734 -> 2.926 -> 2.944 -> 3.458
	assert.Equal(t, 3.46, res.Target)
	assert.Equal(t, "2024-03-07", res.LatestDate)
}

func TestEMA_Progression(t *testing.T) {
	got, err := EMA([]*float64{fp(2), fp(3), fp(2.5)}, NightlyAlpha)
	require.NoError(t, err)
	assert.InDelta(t, 2.3125, got, 1e-12)
}

func TestEMA_MissingValuesCarryForward(t *testing.T) {
	tests := []struct {
		name   string
		series []*float64
		want   float64
	}{
		{"nil seed counts as zero", []*float64{nil, fp(4)}, 1.0},
		{"later nil carries", []*float64{fp(2), nil}, 2.0},
		{"later zero carries", []*float64{fp(2), fp(0), fp(0)}, 2.0},
		{"single value", []*float64{fp(3.3)}, 3.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EMA(tt.series, NightlyAlpha)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEMA_InvalidInput(t *testing.T) {
	_, err := EMA(nil, NightlyAlpha)
	assert.ErrorIs(t, err, shared.ErrEmptySeries)

	_, err = EMA([]*float64{fp(1)}, 0)
	assert.ErrorIs(t, err, shared.ErrInvalidAlpha)

	_, err = EMA([]*float64{fp(1)}, 1.5)
	assert.ErrorIs(t, err, shared.ErrInvalidAlpha)
}

func TestSmooth_NoRows(t *testing.T) {
	_, err := Smooth(nil, NightlyAlpha, DefaultClamp())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNoProgressRows)
	assert.True(t, shared.IsNotFound(err))
}

func TestSmooth_InvertedClamp(t *testing.T) {
	_, err := Smooth(rowsFrom(1), NightlyAlpha, Clamp{Min: 5, Max: 1})
	assert.ErrorIs(t, err, shared.ErrInvalidClamp)
}

func TestSmooth_AlwaysWithinClamp(t *testing.T) {
	clamp := DefaultClamp()
	r := rand.New(rand.NewPCG(7, 11))

	edge := [][]float64{
		{0, 0, 0},
		{1e9, 1e9},
		{0.01},
		{1e-9, 1e12, 0, 3},
	}
	for _, speeds := range edge {
		res, err := Smooth(rowsFrom(speeds...), NightlyAlpha, clamp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Target, clamp.Min, "speeds %v", speeds)
		assert.LessOrEqual(t, res.Target, clamp.Max, "speeds %v", speeds)
	}

	for i := 0; i < 500; i++ {
		n := 1 + r.IntN(7)
		speeds := make([]float64, n)
		for j := range speeds {
			speeds[j] = r.Float64() * 50
		}
		res, err := Smooth(rowsFrom(speeds...), NightlyAlpha, clamp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Target, clamp.Min)
		assert.LessOrEqual(t, res.Target, clamp.Max)
	}
}

func TestSmooth_OrderSensitive(t *testing.T) {
	forward, err := Smooth(rowsFrom(2.0, 3.0, 2.5, 4.0, 3.5, 3.0, 5.0), NightlyAlpha, DefaultClamp())
	require.NoError(t, err)
	reversed, err := Smooth(rowsFrom(5.0, 3.0, 3.5, 4.0, 2.5, 3.0, 2.0), NightlyAlpha, DefaultClamp())
	require.NoError(t, err)

	assert.Equal(t, 3.18, reversed.Target)
	assert.NotEqual(t, forward.Target, reversed.Target)
}

func TestSmooth_EqualInputsAreOrderFree(t *testing.T) {
	a, err := Smooth(rowsFrom(2, 2, 2), NightlyAlpha, DefaultClamp())
	require.NoError(t, err)
	assert.Equal(t, 2.0, a.Target)
}

func TestBlend(t *testing.T) {
	assert.Equal(t, 3.0, Blend(4, 2, IntradayAlpha, DefaultClamp()))
	assert.Equal(t, 2.2, Blend(3.3, 1.1, IntradayAlpha, DefaultClamp()))
	assert.Equal(t, 0.5, Blend(0, 0, IntradayAlpha, DefaultClamp()))
	assert.Equal(t, 5.0, Blend(40, 3, IntradayAlpha, DefaultClamp()))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.46, Round2(3.4582))
	assert.Equal(t, 3.0, Round2(2.999))
	assert.Equal(t, 0.5, Round2(0.5))
}
