package command

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/mock"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/mocks"
)

const testUser = "8a1f6a4e-2b0c-4e7a-9d51-0c5b7f3e9a11"

// Wednesday afternoon, outside every taunt slot.
var fixedNow = time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func fp(v float64) *float64 { return &v }

type fixture struct {
	progress  *mocks.ProgressRepository
	samples   *mocks.SpeedSampleStore
	configs   *mocks.ConfigRepository
	activity  *mocks.ActivityRepository
	summaries *mocks.SummaryRepository
	profiles  *mocks.ProfileRepository
	dryRunLog *mocks.DryRunLogger
	inbox     *mocks.Inbox
	taunts    *mocks.TauntRepository
	personas  *mocks.PersonaRepository

	flags    *config.FeatureFlags
	resolver *race.Resolver
	tracker  *race.Tracker
	notifier *race.Notifier
	dryRun   *race.DryRun
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		progress:  new(mocks.ProgressRepository),
		samples:   new(mocks.SpeedSampleStore),
		configs:   new(mocks.ConfigRepository),
		activity:  new(mocks.ActivityRepository),
		summaries: new(mocks.SummaryRepository),
		profiles:  new(mocks.ProfileRepository),
		dryRunLog: new(mocks.DryRunLogger),
		inbox:     new(mocks.Inbox),
		taunts:    new(mocks.TauntRepository),
		personas:  new(mocks.PersonaRepository),
		flags:     config.NewFeatureFlags(),
	}
	f.resolver = race.NewResolver(f.configs, f.profiles, "UTC", nil)
	f.tracker = race.NewTracker(f.resolver, f.activity)
	f.notifier = race.NewNotifier(f.inbox, nil)
	f.dryRun = race.NewDryRun(f.dryRunLog, f.flags, nil)

	f.dryRunLog.On("LogDryRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	t.Cleanup(func() {
		f.progress.AssertExpectations(t)
		f.samples.AssertExpectations(t)
		f.activity.AssertExpectations(t)
		f.summaries.AssertExpectations(t)
		f.inbox.AssertExpectations(t)
		f.taunts.AssertExpectations(t)
		f.personas.AssertExpectations(t)
	})
	return f
}

// withUser makes the resolver return cfg and the zone for the test user.
func (f *fixture) withUser(cfg pace.ShadowConfig, tz string) *fixture {
	f.configs.On("ForUser", mock.Anything, testUser).Return(&cfg, nil).Maybe()
	f.profiles.On("Timezone", mock.Anything, testUser).Return(tz, nil).Maybe()
	return f
}

// withEmptyInbox lets the limiter allow the next write and assigns id.
func (f *fixture) withEmptyInbox(id notification.RecordID) *fixture {
	f.inbox.On("CountBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(0, nil)
	f.inbox.On("LastBetween", mock.Anything, testUser, mock.Anything, mock.Anything).Return(nil, nil)
	f.expectInsert(id)
	return f
}

func (f *fixture) expectInsert(id notification.RecordID) *mock.Call {
	return f.inbox.On("Insert", mock.Anything, mock.AnythingOfType("*notification.Record")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*notification.Record).ID = id
		}).
		Return(nil)
}

// insertedRecord returns the record passed to the n-th inbox Insert.
func (f *fixture) insertedRecord(t *testing.T, n int) *notification.Record {
	t.Helper()
	var seen int
	for _, c := range f.inbox.Calls {
		if c.Method != "Insert" {
			continue
		}
		if seen == n {
			return c.Arguments.Get(1).(*notification.Record)
		}
		seen++
	}
	t.Fatalf("no inbox insert #%d", n)
	return nil
}

func completionAt(taskID string, at time.Time) pace.Completion {
	return pace.Completion{TaskID: taskID, OwnerType: pace.OwnerUser, CompletedAt: at}
}
