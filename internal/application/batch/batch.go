// Package batch runs the single-user commands over every eligible user.
// It backs the cron endpoints, the worker jobs and the CLI.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nutri-hub/shadow-pace/internal/application/command"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// DefaultConcurrency bounds the per-user fan-out.
const DefaultConcurrency = 8

// Report is the envelope of the nightly, run-today and taunt batches.
type Report[T any] struct {
	OK      bool `json:"ok"`
	Total   int  `json:"total"`
	Results []T  `json:"results"`
}

// Handlers are the single-user commands the runner fans out over.
type Handlers struct {
	Smooth   *command.SmoothPaceHandler
	RunToday *command.RunTodayHandler
	Taunt    *command.MaybeTauntHandler
	Weekly   *command.WeeklySummaryHandler
	Persona  *command.GenerateMessageHandler
	Events   *command.GenerateEventsHandler
}

// Runner executes the batch operations.
type Runner struct {
	configs     pace.ConfigRepository
	summaries   pace.SummaryRepository
	profiles    pace.ProfileRepository
	handlers    Handlers
	concurrency int
	now         func() time.Time
	log         *logger.Logger
}

// NewRunner creates a Runner. A concurrency below one means DefaultConcurrency.
func NewRunner(
	configs pace.ConfigRepository,
	summaries pace.SummaryRepository,
	profiles pace.ProfileRepository,
	handlers Handlers,
	concurrency int,
	log *logger.Logger,
) *Runner {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		configs:     configs,
		summaries:   summaries,
		profiles:    profiles,
		handlers:    handlers,
		concurrency: concurrency,
		now:         time.Now,
		log:         log.With(logger.Component("batch")),
	}
}

// WithClock overrides the time source.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// fanOut calls run once per user with at most limit calls in flight.
// Every user owns results[i]; a failing user never stops the others.
func fanOut[T any](ctx context.Context, limit int, users []string, run func(ctx context.Context, userID string) T) []T {
	results := make([]T, len(users))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range users {
		g.Go(func() error {
			results[i] = run(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Runner) enabledUsers(ctx context.Context, job string) ([]string, error) {
	users, err := r.configs.EnabledUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list users: %w", job, err)
	}
	r.log.Info("batch started", logger.Job(job), logger.Int("users", len(users)))
	return users, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NIGHTLY SMOOTH
// ══════════════════════════════════════════════════════════════════════════════

// NightlyResult is one user's line of the nightly batch.
type NightlyResult struct {
	UserID   string   `json:"user_id"`
	OK       bool     `json:"ok"`
	Smoothed *float64 `json:"smoothed,omitempty"`
	Blocked  string   `json:"blocked,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// NightlySmooth smooths every race-enabled user.
func (r *Runner) NightlySmooth(ctx context.Context) (*Report[NightlyResult], error) {
	users, err := r.enabledUsers(ctx, "nightly_smooth")
	if err != nil {
		return nil, err
	}

	results := fanOut(ctx, r.concurrency, users, func(ctx context.Context, userID string) NightlyResult {
		res, err := r.handlers.Smooth.Handle(ctx, command.SmoothPaceCommand{UserID: userID})
		switch {
		case command.IsNoData(err):
			return NightlyResult{UserID: userID, Reason: "no_rows"}
		case err != nil:
			r.log.Warn("nightly smooth failed", logger.UserID(userID), logger.Err(err))
			return NightlyResult{UserID: userID, Error: err.Error()}
		}
		line := NightlyResult{UserID: userID, OK: true, Smoothed: &res.Target}
		if res.Notification.Skipped {
			line.Blocked = res.Notification.Reason
		}
		return line
	})

	return &Report[NightlyResult]{OK: true, Total: len(users), Results: results}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RUN TODAY
// ══════════════════════════════════════════════════════════════════════════════

// RunTodayResult is one user's line of the run-today batch.
type RunTodayResult struct {
	UserID string `json:"user_id"`
	OK     bool   `json:"ok"`
	*command.RunTodayResult
	Error string `json:"error,omitempty"`
}

// RunTodayAll commits today's delta for every race-enabled user.
func (r *Runner) RunTodayAll(ctx context.Context) (*Report[RunTodayResult], error) {
	users, err := r.enabledUsers(ctx, "run_today_all")
	if err != nil {
		return nil, err
	}

	results := fanOut(ctx, r.concurrency, users, func(ctx context.Context, userID string) RunTodayResult {
		res, err := r.handlers.RunToday.Handle(ctx, command.RunTodayCommand{UserID: userID, Batch: true})
		if err != nil {
			r.log.Warn("run today failed", logger.UserID(userID), logger.Err(err))
			return RunTodayResult{UserID: userID, Error: err.Error()}
		}
		return RunTodayResult{UserID: userID, OK: res.OK, RunTodayResult: res}
	})

	return &Report[RunTodayResult]{OK: true, Total: len(users), Results: results}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TAUNTS
// ══════════════════════════════════════════════════════════════════════════════

// TauntResult is one user's line of the taunt batch.
type TauntResult struct {
	UserID string `json:"user_id"`
	command.MaybeTauntResult
	Error string `json:"error,omitempty"`
}

// TauntAll runs the taunt engine for every race-enabled user.
func (r *Runner) TauntAll(ctx context.Context) (*Report[TauntResult], error) {
	users, err := r.enabledUsers(ctx, "taunt_maybe")
	if err != nil {
		return nil, err
	}

	results := fanOut(ctx, r.concurrency, users, func(ctx context.Context, userID string) TauntResult {
		res, err := r.handlers.Taunt.Handle(ctx, command.MaybeTauntCommand{UserID: userID})
		if err != nil {
			r.log.Warn("taunt check failed", logger.UserID(userID), logger.Err(err))
			return TauntResult{UserID: userID, Error: err.Error()}
		}
		return TauntResult{UserID: userID, MaybeTauntResult: *res}
	})

	return &Report[TauntResult]{OK: true, Total: len(users), Results: results}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY
// ══════════════════════════════════════════════════════════════════════════════

// Window is the rolled-up week, both dates inclusive.
type Window struct {
	WeekStart string `json:"weekStart"`
	WeekEnd   string `json:"weekEnd"`
}

// WeeklyResult is one user's line of the weekly batch.
type WeeklyResult struct {
	UserID      string  `json:"user_id"`
	UserTotal   float64 `json:"user_total"`
	ShadowTotal float64 `json:"shadow_total"`
	Carryover   float64 `json:"carryover"`
	Error       string  `json:"error,omitempty"`
}

// WeeklyReport is the envelope of the weekly batch.
type WeeklyReport struct {
	OK      bool           `json:"ok"`
	Window  Window         `json:"window"`
	Count   int            `json:"count"`
	Results []WeeklyResult `json:"results"`
}

// WeeklyAll rolls up the current UTC week for every user with daily rows in it.
func (r *Runner) WeeklyAll(ctx context.Context) (*WeeklyReport, error) {
	start, end := timeutil.WeekRange(r.now(), time.UTC)

	users, err := r.summaries.UsersWithDaily(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("weekly_summarize: list users: %w", err)
	}
	r.log.Info("batch started", logger.Job("weekly_summarize"), logger.Int("users", len(users)), logger.Day(start))

	results := fanOut(ctx, r.concurrency, users, func(ctx context.Context, userID string) WeeklyResult {
		s, err := r.handlers.Weekly.Summarize(ctx, userID, start, end)
		if err != nil {
			r.log.Warn("weekly rollup failed", logger.UserID(userID), logger.Err(err))
			return WeeklyResult{UserID: userID, Error: err.Error()}
		}
		return WeeklyResult{
			UserID:      userID,
			UserTotal:   s.UserTotal,
			ShadowTotal: s.ShadowTotal,
			Carryover:   s.Carryover,
		}
	})

	return &WeeklyReport{
		OK:      true,
		Window:  Window{WeekStart: start, WeekEnd: end},
		Count:   len(users),
		Results: results,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SHADOW SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// EventsResult is one user's line of the schedule batch.
type EventsResult struct {
	UserID   string `json:"user_id"`
	Date     string `json:"date,omitempty"`
	Inserted int    `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

// EventsReport is the envelope of the schedule batch.
type EventsReport struct {
	OK            bool           `json:"ok"`
	TotalProfiles int            `json:"total_profiles"`
	Results       []EventsResult `json:"results"`
}

// GenerateEventsAll plans today's shadow schedule for every user with a
// profile, each in their own timezone.
func (r *Runner) GenerateEventsAll(ctx context.Context) (*EventsReport, error) {
	users, err := r.profiles.UsersWithProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate_events: list users: %w", err)
	}
	r.log.Info("batch started", logger.Job("generate_events"), logger.Int("users", len(users)))

	results := fanOut(ctx, r.concurrency, users, func(ctx context.Context, userID string) EventsResult {
		res, err := r.handlers.Events.Handle(ctx, command.GenerateEventsCommand{UserID: userID})
		if err != nil {
			r.log.Warn("schedule planning failed", logger.UserID(userID), logger.Err(err))
			return EventsResult{UserID: userID, Error: err.Error()}
		}
		return EventsResult{UserID: userID, Date: res.Date, Inserted: res.Inserted}
	})

	return &EventsReport{OK: true, TotalProfiles: len(users), Results: results}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSONA
// ══════════════════════════════════════════════════════════════════════════════

// PersonaResult is one user's line of the persona batch.
type PersonaResult struct {
	UserID string `json:"userId"`
	command.GenerateMessageResult
}

// PersonaReport is the envelope of the persona batch. Results are only
// reported on request.
type PersonaReport struct {
	OK        bool            `json:"ok"`
	Processed int             `json:"processed"`
	Success   int             `json:"success"`
	Results   []PersonaResult `json:"results,omitempty"`
}

// PersonaAll generates a persona message for every user with a profile.
func (r *Runner) PersonaAll(ctx context.Context, withResults bool) (*PersonaReport, error) {
	users, err := r.profiles.UsersWithProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("persona_messages: list users: %w", err)
	}
	r.log.Info("batch started", logger.Job("persona_messages"), logger.Int("users", len(users)))

	return r.persona(ctx, users, withResults), nil
}

// PersonaFor generates a persona message for the given users only.
func (r *Runner) PersonaFor(ctx context.Context, users []string, withResults bool) *PersonaReport {
	return r.persona(ctx, users, withResults)
}

func (r *Runner) persona(ctx context.Context, users []string, withResults bool) *PersonaReport {
	results := fanOut(ctx, r.concurrency, users, func(ctx context.Context, userID string) PersonaResult {
		res, err := r.handlers.Persona.Handle(ctx, command.GenerateMessageCommand{UserID: userID})
		if err != nil {
			r.log.Warn("persona message failed", logger.UserID(userID), logger.Err(err))
			return PersonaResult{UserID: userID, GenerateMessageResult: command.GenerateMessageResult{Error: err.Error()}}
		}
		return PersonaResult{UserID: userID, GenerateMessageResult: *res}
	})

	report := &PersonaReport{OK: true, Processed: len(results)}
	for _, res := range results {
		if res.OK {
			report.Success++
		}
	}
	if withResults {
		report.Results = results
	}
	return report
}
