package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
)

// todayCompletions: t1 twice, t2 once, plus a shadow-owned task.
// Distinct user tasks today: 2. Completions in the last hour: 2.
func todayCompletions() []pace.Completion {
	return []pace.Completion{
		completionAt("t2", fixedNow.Add(-5*time.Hour)),
		completionAt("t1", fixedNow.Add(-30*time.Minute)),
		completionAt("t1", fixedNow.Add(-10*time.Minute)),
		{TaskID: "s1", OwnerType: pace.OwnerShadow, CompletedAt: fixedNow.Add(-20 * time.Minute)},
	}
}

func newCommitHandler(f *fixture) *CommitProgressHandler {
	return NewCommitProgressHandler(f.tracker, f.progress, f.samples, f.dryRun, f.flags, nil).WithClock(clock(fixedNow))
}

func TestCommitProgress_RecordsDecisionAndDailyRow(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC")
	f.activity.On("CompletionsBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(todayCompletions(), nil)

	var commit pace.Commit
	var row pace.DailyProgress
	f.progress.On("UpsertCommit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { commit = args.Get(1).(pace.Commit) }).Return(nil)
	f.progress.On("UpsertDaily", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { row = args.Get(1).(pace.DailyProgress) }).Return(nil)
	f.samples.On("Append", mock.Anything, pace.SpeedSample{UserID: testUser, Speed: 2, At: fixedNow}).Return(nil)

	res, err := newCommitHandler(f).Handle(context.Background(), CommitProgressCommand{
		UserID: testUser,
		Extra:  map[string]any{"source": "web", "tz": "ignored"},
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-12", commit.Day)
	assert.Equal(t, 3, commit.TargetToday)
	assert.Equal(t, 2, commit.CompletedToday)
	assert.Equal(t, -1, commit.Delta)
	assert.Equal(t, pace.DecisionNudge, commit.DecisionKind)
	assert.Equal(t, "UTC", commit.Payload["tz"])
	assert.Equal(t, "web", commit.Payload["source"])
	assert.Equal(t, []string{"t2", "t1"}, commit.Payload["completedTaskIds"])

	assert.Equal(t, "2025-03-12", row.Date)
	assert.Equal(t, 2.0, row.UserDistance)
	assert.Equal(t, 3.0, row.ShadowDistance)
	assert.Equal(t, 1.0, row.Lead)
	require.NotNil(t, row.UserSpeedAvg)
	assert.Equal(t, 2.0, *row.UserSpeedAvg)
	assert.Equal(t, fixedNow, row.UpdatedAt)

	assert.Equal(t, commit, res.Commit)
}

func TestCommitProgress_UsesLocalDay(t *testing.T) {
	// 23:30 UTC is already the next day in Kolkata.
	late := time.Date(2025, 3, 12, 23, 30, 0, 0, time.UTC)
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "Asia/Kolkata")
	f.activity.On("CompletionsBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(nil, nil)
	f.progress.On("UpsertCommit", mock.Anything, mock.MatchedBy(func(c pace.Commit) bool {
		return c.Day == "2025-03-13" && c.Payload["tz"] == "Asia/Kolkata"
	})).Return(nil)
	f.progress.On("UpsertDaily", mock.Anything, mock.MatchedBy(func(r pace.DailyProgress) bool {
		return r.Date == "2025-03-13"
	})).Return(nil)
	f.samples.On("Append", mock.Anything, mock.Anything).Return(nil)

	res, err := newCommitHandler(f).WithClock(clock(late)).Handle(context.Background(), CommitProgressCommand{UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, pace.DecisionSlowdown, res.Commit.DecisionKind)
}

func TestCommitProgress_SampleFailureIsIgnored(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC")
	f.activity.On("CompletionsBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(todayCompletions(), nil)
	f.progress.On("UpsertCommit", mock.Anything, mock.Anything).Return(nil)
	f.progress.On("UpsertDaily", mock.Anything, mock.Anything).Return(nil)
	f.samples.On("Append", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	_, err := newCommitHandler(f).Handle(context.Background(), CommitProgressCommand{UserID: testUser})
	assert.NoError(t, err)
}

func TestCommitProgress_SamplesFlagOff(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC")
	require.NoError(t, f.flags.DisableFeature(config.FeaturePaceSpeedSamples))
	f.activity.On("CompletionsBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(todayCompletions(), nil)
	f.progress.On("UpsertCommit", mock.Anything, mock.Anything).Return(nil)
	f.progress.On("UpsertDaily", mock.Anything, mock.Anything).Return(nil)

	_, err := newCommitHandler(f).Handle(context.Background(), CommitProgressCommand{UserID: testUser})
	require.NoError(t, err)

	f.samples.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestCommitProgress_CommitFailureStops(t *testing.T) {
	f := newFixture(t).withUser(pace.DefaultShadowConfig(), "UTC")
	f.activity.On("CompletionsBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(nil, nil)
	f.progress.On("UpsertCommit", mock.Anything, mock.Anything).Return(errors.New("conflict"))

	_, err := newCommitHandler(f).Handle(context.Background(), CommitProgressCommand{UserID: testUser})

	require.Error(t, err)
	f.progress.AssertNotCalled(t, "UpsertDaily", mock.Anything, mock.Anything)
}
