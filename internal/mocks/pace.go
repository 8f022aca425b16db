// Package mocks holds testify mocks of the repository interfaces used by
// the application layer.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
)

// ProgressRepository mocks pace.ProgressRepository.
type ProgressRepository struct{ mock.Mock }

func (m *ProgressRepository) RecentDaily(ctx context.Context, userID string, limit int) ([]pace.DailyProgress, error) {
	args := m.Called(ctx, userID, limit)
	rows, _ := args.Get(0).([]pace.DailyProgress)
	return rows, args.Error(1)
}

func (m *ProgressRepository) LatestDaily(ctx context.Context, userID string) (*pace.DailyProgress, error) {
	args := m.Called(ctx, userID)
	row, _ := args.Get(0).(*pace.DailyProgress)
	return row, args.Error(1)
}

func (m *ProgressRepository) GetDaily(ctx context.Context, userID, date string) (*pace.DailyProgress, error) {
	args := m.Called(ctx, userID, date)
	row, _ := args.Get(0).(*pace.DailyProgress)
	return row, args.Error(1)
}

func (m *ProgressRepository) DailyBetween(ctx context.Context, userID, from, to string) ([]pace.DailyProgress, error) {
	args := m.Called(ctx, userID, from, to)
	rows, _ := args.Get(0).([]pace.DailyProgress)
	return rows, args.Error(1)
}

func (m *ProgressRepository) UpsertDaily(ctx context.Context, row pace.DailyProgress) error {
	return m.Called(ctx, row).Error(0)
}

func (m *ProgressRepository) SetTarget(ctx context.Context, userID, date string, target float64) error {
	return m.Called(ctx, userID, date, target).Error(0)
}

func (m *ProgressRepository) UpsertCommit(ctx context.Context, c pace.Commit) error {
	return m.Called(ctx, c).Error(0)
}

func (m *ProgressRepository) GetCommit(ctx context.Context, userID, day string) (*pace.Commit, error) {
	args := m.Called(ctx, userID, day)
	c, _ := args.Get(0).(*pace.Commit)
	return c, args.Error(1)
}

// SpeedSampleStore mocks pace.SpeedSampleStore.
type SpeedSampleStore struct{ mock.Mock }

func (m *SpeedSampleStore) Append(ctx context.Context, s pace.SpeedSample) error {
	return m.Called(ctx, s).Error(0)
}

func (m *SpeedSampleStore) Since(ctx context.Context, userID string, since time.Time, limit int) ([]pace.SpeedSample, error) {
	args := m.Called(ctx, userID, since, limit)
	s, _ := args.Get(0).([]pace.SpeedSample)
	return s, args.Error(1)
}

// ConfigRepository mocks pace.ConfigRepository.
type ConfigRepository struct{ mock.Mock }

func (m *ConfigRepository) ForUser(ctx context.Context, userID string) (*pace.ShadowConfig, error) {
	args := m.Called(ctx, userID)
	cfg, _ := args.Get(0).(*pace.ShadowConfig)
	return cfg, args.Error(1)
}

func (m *ConfigRepository) SeedDefault(ctx context.Context, cfg pace.ShadowConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *ConfigRepository) EnabledUsers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

// ActivityRepository mocks pace.ActivityRepository.
type ActivityRepository struct{ mock.Mock }

func (m *ActivityRepository) CompletionsBetween(ctx context.Context, userID string, from, to time.Time) ([]pace.Completion, error) {
	args := m.Called(ctx, userID, from, to)
	c, _ := args.Get(0).([]pace.Completion)
	return c, args.Error(1)
}

func (m *ActivityRepository) LastCompletionAt(ctx context.Context, userID string) (*time.Time, error) {
	args := m.Called(ctx, userID)
	t, _ := args.Get(0).(*time.Time)
	return t, args.Error(1)
}

func (m *ActivityRepository) ActiveTaskTitles(ctx context.Context, userID string, limit int) ([]string, error) {
	args := m.Called(ctx, userID, limit)
	titles, _ := args.Get(0).([]string)
	return titles, args.Error(1)
}

func (m *ActivityRepository) GetInstance(ctx context.Context, id string) (*pace.TaskInstance, error) {
	args := m.Called(ctx, id)
	inst, _ := args.Get(0).(*pace.TaskInstance)
	return inst, args.Error(1)
}

func (m *ActivityRepository) CompleteInstance(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *ActivityRepository) AppendAlignment(ctx context.Context, e pace.AlignmentEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *ActivityRepository) RecentAlignments(ctx context.Context, userID string, limit int) ([]pace.AlignmentEntry, error) {
	args := m.Called(ctx, userID, limit)
	e, _ := args.Get(0).([]pace.AlignmentEntry)
	return e, args.Error(1)
}

// SummaryRepository mocks pace.SummaryRepository.
type SummaryRepository struct{ mock.Mock }

func (m *SummaryRepository) Upsert(ctx context.Context, s pace.WeeklySummary) error {
	return m.Called(ctx, s).Error(0)
}

func (m *SummaryRepository) Get(ctx context.Context, userID, weekStart string) (*pace.WeeklySummary, error) {
	args := m.Called(ctx, userID, weekStart)
	s, _ := args.Get(0).(*pace.WeeklySummary)
	return s, args.Error(1)
}

func (m *SummaryRepository) UsersWithDaily(ctx context.Context, from, to string) ([]string, error) {
	args := m.Called(ctx, from, to)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

// ProfileRepository mocks pace.ProfileRepository.
type ProfileRepository struct{ mock.Mock }

func (m *ProfileRepository) Timezone(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *ProfileRepository) Profile(ctx context.Context, userID string) (*pace.Profile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*pace.Profile)
	return p, args.Error(1)
}

func (m *ProfileRepository) UsersWithProfile(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

// DryRunLogger mocks pace.DryRunLogger.
type DryRunLogger struct{ mock.Mock }

func (m *DryRunLogger) LogDryRun(ctx context.Context, userID string, kind pace.DryRunKind, payload any) error {
	return m.Called(ctx, userID, kind, payload).Error(0)
}

// ScheduleRepository mocks pace.ScheduleRepository.
type ScheduleRepository struct{ mock.Mock }

func (m *ScheduleRepository) ActiveShadowTasks(ctx context.Context, userID string) ([]pace.ShadowTask, error) {
	args := m.Called(ctx, userID)
	tasks, _ := args.Get(0).([]pace.ShadowTask)
	return tasks, args.Error(1)
}

func (m *ScheduleRepository) InsertMissingInstances(ctx context.Context, userID string, planned []pace.PlannedInstance) (int, error) {
	args := m.Called(ctx, userID, planned)
	return args.Int(0), args.Error(1)
}
