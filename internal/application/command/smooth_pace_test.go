package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/internal/mocks"
)

func weekRows(lastLead float64) []pace.DailyProgress {
	speeds := []float64{2, 3, 2.5, 4, 3.5, 3, 5}
	rows := make([]pace.DailyProgress, len(speeds))
	for i, s := range speeds {
		rows[i] = pace.DailyProgress{
			UserID:       testUser,
			Date:         fixedNow.AddDate(0, 0, i-7).Format("2006-01-02"),
			UserSpeedAvg: fp(s),
		}
	}
	rows[len(rows)-1].Lead = lastLead
	return rows
}

func newSmoothHandler(f *fixture, composer notification.MessageComposer) *SmoothPaceHandler {
	return NewSmoothPaceHandler(f.progress, f.resolver, f.notifier, composer, f.flags, DefaultSmoothParams(), nil).
		WithClock(clock(fixedNow))
}

func TestSmoothPace_WritesTargetAndTaunt(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC").withEmptyInbox("n1")
	f.progress.On("RecentDaily", mock.Anything, testUser, 7).Return(weekRows(3), nil)
	f.progress.On("SetTarget", mock.Anything, testUser, "2025-03-11", 3.46).Return(nil)

	res, err := newSmoothHandler(f, nil).Handle(context.Background(), SmoothPaceCommand{UserID: testUser})
	require.NoError(t, err)

	assert.Equal(t, 3.46, res.Target)
	assert.Equal(t, "2025-03-11", res.LatestDate)
	assert.True(t, res.Notification.Sent)

	rec := f.insertedRecord(t, 0)
	assert.Equal(t, "Shadow Taunt: Catch me if you can", rec.Title)
	assert.Equal(t, "Your shadow is ahead by 3.0. New target set to 3.46. Tomorrow is your move.", rec.Body)
	assert.Equal(t, notification.URLShadow, rec.URL)
}

func TestSmoothPace_NoRows(t *testing.T) {
	f := newFixture(t)
	f.progress.On("RecentDaily", mock.Anything, testUser, 7).Return([]pace.DailyProgress{}, nil)

	_, err := newSmoothHandler(f, nil).Handle(context.Background(), SmoothPaceCommand{UserID: testUser})

	require.ErrorIs(t, err, shared.ErrNoProgressRows)
	assert.True(t, IsNoData(err))
	f.progress.AssertNotCalled(t, "SetTarget", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSmoothPace_MissingUser(t *testing.T) {
	f := newFixture(t)
	_, err := newSmoothHandler(f, nil).Handle(context.Background(), SmoothPaceCommand{})
	assert.ErrorIs(t, err, shared.ErrMissingUser)
}

func TestSmoothPace_DailyCapSkipsTaunt(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC")
	f.progress.On("RecentDaily", mock.Anything, testUser, 7).Return(weekRows(0), nil)
	f.progress.On("SetTarget", mock.Anything, testUser, "2025-03-11", 3.46).Return(nil)
	f.inbox.On("CountBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(pace.NightlyDailyCap, nil)
	f.inbox.On("LastBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(nil, nil)

	res, err := newSmoothHandler(f, nil).Handle(context.Background(), SmoothPaceCommand{UserID: testUser})
	require.NoError(t, err)

	assert.False(t, res.Notification.Sent)
	assert.Equal(t, pace.ReasonDailyCap, res.Notification.Reason)
	f.inbox.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSmoothPace_TauntFailureKeepsTarget(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC")
	f.progress.On("RecentDaily", mock.Anything, testUser, 7).Return(weekRows(0), nil)
	f.progress.On("SetTarget", mock.Anything, testUser, "2025-03-11", 3.46).Return(nil)
	f.inbox.On("CountBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(0, errors.New("db down"))

	res, err := newSmoothHandler(f, nil).Handle(context.Background(), SmoothPaceCommand{UserID: testUser})
	require.NoError(t, err)

	assert.Equal(t, 3.46, res.Target)
	assert.Equal(t, ReasonWriteError, res.Notification.Reason)
}

func TestSmoothPace_TauntFlagOff(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.flags.DisableFeature(config.FeatureNotifyNightlyTaunt))
	f.progress.On("RecentDaily", mock.Anything, testUser, 7).Return(weekRows(0), nil)
	f.progress.On("SetTarget", mock.Anything, testUser, "2025-03-11", 3.46).Return(nil)

	res, err := newSmoothHandler(f, nil).Handle(context.Background(), SmoothPaceCommand{UserID: testUser})
	require.NoError(t, err)

	assert.False(t, res.Notification.Sent)
	f.inbox.AssertNotCalled(t, "CountBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSmoothPace_ComposerChosenByAvailability(t *testing.T) {
	ai := notification.Message{Title: "Shadow Taunt", Body: "Close one. Tomorrow I run 3.46.", URL: notification.URLShadow}

	tests := []struct {
		name      string
		ghostMode bool
		up        bool
		wantBody  string
	}{
		{"available, ghost mode on", true, true, ai.Body},
		{"available, ghost mode off", false, true, ai.Body},
		{"unavailable", true, false, notification.TauntMessage(0, 3.46).Body},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pace.DefaultShadowConfig()
			cfg.GhostModeAI = tt.ghostMode

			f := newFixture(t).withUser(cfg, "UTC").withEmptyInbox("n1")
			f.progress.On("RecentDaily", mock.Anything, testUser, 7).Return(weekRows(0), nil)
			f.progress.On("SetTarget", mock.Anything, testUser, "2025-03-11", 3.46).Return(nil)

			composer := &mocks.Composer{Up: tt.up}
			composer.On("Compose", mock.Anything, mock.Anything).Return(ai, nil).Maybe()

			_, err := newSmoothHandler(f, composer).Handle(context.Background(), SmoothPaceCommand{UserID: testUser})
			require.NoError(t, err)

			assert.Equal(t, tt.wantBody, f.insertedRecord(t, 0).Body)
			if !tt.up {
				composer.AssertNotCalled(t, "Compose", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSmoothPace_ComposerErrorFallsBack(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC").withEmptyInbox("n1")
	f.progress.On("RecentDaily", mock.Anything, testUser, 7).Return(weekRows(-3), nil)
	f.progress.On("SetTarget", mock.Anything, testUser, "2025-03-11", 3.46).Return(nil)

	composer := &mocks.Composer{Up: true}
	composer.On("Compose", mock.Anything, mock.Anything).Return(notification.Message{}, shared.ErrTextGenRateLimited)

	_, err := newSmoothHandler(f, composer).Handle(context.Background(), SmoothPaceCommand{UserID: testUser})
	require.NoError(t, err)

	assert.Equal(t, "Shadow Taunt: Feeling the heat?", f.insertedRecord(t, 0).Title)
}
