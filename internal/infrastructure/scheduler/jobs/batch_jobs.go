// Package jobs adapts the pace batches to scheduler jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/batch"
	"github.com/nutri-hub/shadow-pace/internal/infrastructure/scheduler"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// Job names, shared with the CLI.
const (
	NightlySmooth   = "nightly_smooth"
	RunToday        = "run_today_all"
	TauntMaybe      = "taunt_maybe"
	WeeklySummarize = "weekly_summarize"
	PersonaMessages = "persona_messages"
	GenerateEvents  = "generate_events"
)

// Batches is the subset of batch.Runner the jobs call.
type Batches interface {
	NightlySmooth(ctx context.Context) (*batch.Report[batch.NightlyResult], error)
	RunTodayAll(ctx context.Context) (*batch.Report[batch.RunTodayResult], error)
	TauntAll(ctx context.Context) (*batch.Report[batch.TauntResult], error)
	WeeklyAll(ctx context.Context) (*batch.WeeklyReport, error)
	PersonaAll(ctx context.Context, withResults bool) (*batch.PersonaReport, error)
	GenerateEventsAll(ctx context.Context) (*batch.EventsReport, error)
}

// ErrPartialFailure marks a run in which every user was visited but some failed.
var ErrPartialFailure = errors.New("some users failed")

// outcome summarizes one batch run.
type outcome struct {
	total  int
	failed int
}

// BatchJob runs one batch and logs its outcome.
type BatchJob struct {
	name        string
	description string
	run         func(ctx context.Context) (outcome, error)

	// FailOnPartial reports users that failed as a failed run.
	FailOnPartial bool
}

// Name implements scheduler.Job.
func (j *BatchJob) Name() string { return j.name }

// Description implements scheduler.Job.
func (j *BatchJob) Description() string { return j.description }

// Run implements scheduler.Job.
func (j *BatchJob) Run(ctx context.Context) error {
	out, err := j.run(ctx)
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("batch finished",
		logger.Job(j.name),
		logger.Int("total", out.total),
		logger.Int("failed", out.failed),
	)
	if out.failed > 0 && j.FailOnPartial {
		return fmt.Errorf("%s: %d of %d: %w", j.name, out.failed, out.total, ErrPartialFailure)
	}
	return nil
}

func countFailed[T any](results []T, failed func(T) bool) int {
	n := 0
	for _, r := range results {
		if failed(r) {
			n++
		}
	}
	return n
}

// ══════════════════════════════════════════════════════════════════════════════
// CONSTRUCTORS
// ══════════════════════════════════════════════════════════════════════════════

// NewNightlySmooth smooths every enabled user's target from the last week.
func NewNightlySmooth(b Batches) *BatchJob {
	return &BatchJob{
		name:        NightlySmooth,
		description: "Nightly EMA smoothing of every enabled user's target",
		run: func(ctx context.Context) (outcome, error) {
			rep, err := b.NightlySmooth(ctx)
			if err != nil {
				return outcome{}, err
			}
			return outcome{rep.Total, countFailed(rep.Results, func(r batch.NightlyResult) bool { return r.Error != "" })}, nil
		},
	}
}

// NewRunToday commits today's delta for every enabled user.
func NewRunToday(b Batches) *BatchJob {
	return &BatchJob{
		name:        RunToday,
		description: "Commit today's delta and nudge when behind",
		run: func(ctx context.Context) (outcome, error) {
			rep, err := b.RunTodayAll(ctx)
			if err != nil {
				return outcome{}, err
			}
			return outcome{rep.Total, countFailed(rep.Results, func(r batch.RunTodayResult) bool { return r.Error != "" })}, nil
		},
	}
}

// NewTauntMaybe runs the taunt engine for every enabled user.
func NewTauntMaybe(b Batches) *BatchJob {
	return &BatchJob{
		name:        TauntMaybe,
		description: "Send a taunt when the lead crosses a threshold",
		run: func(ctx context.Context) (outcome, error) {
			rep, err := b.TauntAll(ctx)
			if err != nil {
				return outcome{}, err
			}
			return outcome{rep.Total, countFailed(rep.Results, func(r batch.TauntResult) bool { return r.Error != "" })}, nil
		},
	}
}

// NewWeeklySummarize rolls up the current week.
func NewWeeklySummarize(b Batches) *BatchJob {
	return &BatchJob{
		name:        WeeklySummarize,
		description: "Roll up the current week per user",
		run: func(ctx context.Context) (outcome, error) {
			rep, err := b.WeeklyAll(ctx)
			if err != nil {
				return outcome{}, err
			}
			return outcome{rep.Count, countFailed(rep.Results, func(r batch.WeeklyResult) bool { return r.Error != "" })}, nil
		},
	}
}

// NewPersonaMessages writes one persona message per profile.
func NewPersonaMessages(b Batches) *BatchJob {
	return &BatchJob{
		name:        PersonaMessages,
		description: "Generate the daily persona inbox message",
		run: func(ctx context.Context) (outcome, error) {
			rep, err := b.PersonaAll(ctx, false)
			if err != nil {
				return outcome{}, err
			}
			return outcome{rep.Processed, rep.Processed - rep.Success}, nil
		},
	}
}

// NewGenerateEvents plans today's shadow schedule per profile.
func NewGenerateEvents(b Batches) *BatchJob {
	return &BatchJob{
		name:        GenerateEvents,
		description: "Plan today's shadow task windows in each user's timezone",
		run: func(ctx context.Context) (outcome, error) {
			rep, err := b.GenerateEventsAll(ctx)
			if err != nil {
				return outcome{}, err
			}
			return outcome{rep.TotalProfiles, countFailed(rep.Results, func(r batch.EventsResult) bool { return r.Error != "" })}, nil
		},
	}
}

// All returns every batch job keyed by name.
func All(b Batches) map[string]*BatchJob {
	return map[string]*BatchJob{
		NightlySmooth:   NewNightlySmooth(b),
		RunToday:        NewRunToday(b),
		TauntMaybe:      NewTauntMaybe(b),
		WeeklySummarize: NewWeeklySummarize(b),
		PersonaMessages: NewPersonaMessages(b),
		GenerateEvents:  NewGenerateEvents(b),
	}
}

// Register schedules every job whose cron expression is set.
func Register(s *scheduler.Scheduler, b Batches, cfg config.SchedulerConfig) error {
	crons := map[string]string{
		NightlySmooth:   cfg.NightlySmoothCron,
		RunToday:        cfg.RunTodayCron,
		TauntMaybe:      cfg.TauntCron,
		WeeklySummarize: cfg.WeeklySummarizeCron,
		PersonaMessages: cfg.PersonaMessageCron,
		GenerateEvents:  cfg.GenerateEventsCron,
	}

	var errs []error
	for name, job := range All(b) {
		expr := crons[name]
		if expr == "" || expr == "-" {
			continue
		}
		if err := s.RegisterCron(job, expr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
