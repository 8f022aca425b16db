package pace

import (
	"math"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// Smoothing parameters.
const (
	NightlyAlpha  = 0.25
	IntradayAlpha = 0.5
	DefaultWindow = 7
)

// Clamp is the fairness guardrail on any produced target.
type Clamp struct {
	Min float64
	Max float64
}

// DefaultClamp is [0.5, 5.0].
func DefaultClamp() Clamp {
	return Clamp{Min: 0.5, Max: 5.0}
}

// Apply rounds v to 2 decimal places, then clamps it.
func (c Clamp) Apply(v float64) float64 {
	v = Round2(v)
	return math.Max(c.Min, math.Min(c.Max, v))
}

// Validate rejects an inverted range.
func (c Clamp) Validate() error {
	if c.Min > c.Max {
		return shared.ErrInvalidClamp
	}
	return nil
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EMA runs the exponential moving average over series, oldest first.
// The first value seeds the average (nil counts as 0). A later value
// that is nil, zero or not finite carries the running average forward.
func EMA(series []*float64, alpha float64) (float64, error) {
	if len(series) == 0 {
		return 0, shared.ErrEmptySeries
	}
	if alpha <= 0 || alpha > 1 {
		return 0, shared.ErrInvalidAlpha
	}

	ema := 0.0
	if v := series[0]; v != nil && isFinite(*v) {
		ema = *v
	}
	for _, v := range series[1:] {
		x := ema
		if v != nil && *v != 0 && isFinite(*v) {
			x = *v
		}
		ema = alpha*x + (1-alpha)*ema
	}
	return ema, nil
}

// SmoothResult is the outcome of a nightly pass for one user.
type SmoothResult struct {
	Target     float64
	LatestDate string
	LatestLead float64
}

// Smooth computes tomorrow's shadow target from daily rows ordered
// oldest to newest. No rows yields ErrNoProgressRows.
func Smooth(rows []DailyProgress, alpha float64, clamp Clamp) (SmoothResult, error) {
	if len(rows) == 0 {
		return SmoothResult{}, shared.ErrNoProgressRows
	}
	if err := clamp.Validate(); err != nil {
		return SmoothResult{}, err
	}

	series := make([]*float64, len(rows))
	for i := range rows {
		series[i] = rows[i].UserSpeedAvg
	}
	ema, err := EMA(series, alpha)
	if err != nil {
		return SmoothResult{}, err
	}

	latest := rows[len(rows)-1]
	return SmoothResult{
		Target:     clamp.Apply(ema),
		LatestDate: latest.Date,
		LatestLead: latest.Lead,
	}, nil
}

// Blend is the intraday adapter: alpha*recent + (1-alpha)*current, rounded
// and clamped.
func Blend(recent, current, alpha float64, clamp Clamp) float64 {
	return clamp.Apply(alpha*recent + (1-alpha)*current)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
