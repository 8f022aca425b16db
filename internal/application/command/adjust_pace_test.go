package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

func TestAdjustPace(t *testing.T) {
	today := "2025-03-12"

	tests := []struct {
		name        string
		row         pace.DailyProgress
		samples     []pace.SpeedSample
		wantRecent  float64
		wantTarget  float64
		wantSamples bool
	}{
		{
			name: "samples average blends into target",
			row:  pace.DailyProgress{Date: today, ShadowSpeedTarget: fp(2), UserSpeedAvg: fp(1)},
			samples: []pace.SpeedSample{
				{Speed: 4, At: fixedNow.Add(-10 * time.Minute)},
				{Speed: 2, At: fixedNow.Add(-40 * time.Minute)},
			},
			wantRecent:  3,
			wantTarget:  2.5,
			wantSamples: true,
		},
		{
			name:       "no samples falls back to the day average",
			row:        pace.DailyProgress{Date: today, ShadowSpeedTarget: fp(2), UserSpeedAvg: fp(1)},
			wantRecent: 1,
			wantTarget: 1.5,
		},
		{
			name:       "unset target counts as zero and is clamped",
			row:        pace.DailyProgress{Date: today},
			wantRecent: 0,
			wantTarget: 0.5,
		},
		{
			name:        "result is clamped to the upper bound",
			row:         pace.DailyProgress{Date: today, ShadowSpeedTarget: fp(5)},
			samples:     []pace.SpeedSample{{Speed: 12, At: fixedNow}},
			wantRecent:  12,
			wantTarget:  5,
			wantSamples: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			row := tt.row
			f.progress.On("LatestDaily", mock.Anything, testUser).Return(&row, nil)
			f.samples.On("Since", mock.Anything, testUser, fixedNow.Add(-pace.DefaultLookback), pace.MaxRecentSamples).
				Return(tt.samples, nil)
			f.progress.On("SetTarget", mock.Anything, testUser, today, tt.wantTarget).Return(nil)

			h := NewAdjustPaceHandler(f.progress, f.samples, f.dryRun, DefaultAdjustParams(), nil).WithClock(clock(fixedNow))
			res, err := h.Handle(context.Background(), AdjustPaceCommand{UserID: testUser})
			require.NoError(t, err)

			assert.Equal(t, today, res.Date)
			assert.Equal(t, tt.wantTarget, res.Target)
			assert.Equal(t, tt.wantRecent, res.RecentUserSpeed)
			assert.Equal(t, tt.wantSamples, res.FromSamples)
		})
	}
}

func TestAdjustPace_NoDailyRow(t *testing.T) {
	f := newFixture(t)
	f.progress.On("LatestDaily", mock.Anything, testUser).Return(nil, shared.ErrNoDailyRow)

	h := NewAdjustPaceHandler(f.progress, f.samples, f.dryRun, DefaultAdjustParams(), nil)
	_, err := h.Handle(context.Background(), AdjustPaceCommand{UserID: testUser})

	require.ErrorIs(t, err, shared.ErrNoDailyRow)
	assert.True(t, IsNoData(err))
	f.progress.AssertNotCalled(t, "SetTarget", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjustPace_LogsPaceAdapt(t *testing.T) {
	f := newFixture(t)
	row := pace.DailyProgress{Date: "2025-03-12", ShadowSpeedTarget: fp(3)}
	f.progress.On("LatestDaily", mock.Anything, testUser).Return(&row, nil)
	f.samples.On("Since", mock.Anything, testUser, mock.Anything, mock.Anything).Return(nil, nil)
	f.progress.On("SetTarget", mock.Anything, testUser, "2025-03-12", 1.5).Return(nil)

	h := NewAdjustPaceHandler(f.progress, f.samples, f.dryRun, DefaultAdjustParams(), nil).WithClock(clock(fixedNow))
	_, err := h.Handle(context.Background(), AdjustPaceCommand{UserID: testUser})
	require.NoError(t, err)

	f.dryRunLog.AssertCalled(t, "LogDryRun", mock.Anything, testUser, pace.DryRunPaceAdapt, mock.Anything)
}
