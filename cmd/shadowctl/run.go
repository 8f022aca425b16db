package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nutri-hub/shadow-pace/internal/app"
	"github.com/nutri-hub/shadow-pace/internal/application/batch"
	"github.com/nutri-hub/shadow-pace/internal/application/command"
	"github.com/nutri-hub/shadow-pace/internal/infrastructure/scheduler/jobs"
	"github.com/nutri-hub/shadow-pace/pkg/timeutil"
)

// batchRunners maps the CLI names onto the batch operations. The job
// names are accepted too.
func batchRunners(withResults bool) map[string]func(ctx context.Context, r *batch.Runner) (any, error) {
	return map[string]func(ctx context.Context, r *batch.Runner) (any, error){
		"nightly-smooth": func(ctx context.Context, r *batch.Runner) (any, error) { return r.NightlySmooth(ctx) },
		"run-today":      func(ctx context.Context, r *batch.Runner) (any, error) { return r.RunTodayAll(ctx) },
		"taunt-maybe":    func(ctx context.Context, r *batch.Runner) (any, error) { return r.TauntAll(ctx) },
		"weekly-summarize": func(ctx context.Context, r *batch.Runner) (any, error) {
			return r.WeeklyAll(ctx)
		},
		"persona": func(ctx context.Context, r *batch.Runner) (any, error) {
			return r.PersonaAll(ctx, withResults)
		},
		"generate-events": func(ctx context.Context, r *batch.Runner) (any, error) {
			return r.GenerateEventsAll(ctx)
		},
	}
}

var jobAliases = map[string]string{
	jobs.NightlySmooth:   "nightly-smooth",
	jobs.RunToday:        "run-today",
	jobs.TauntMaybe:      "taunt-maybe",
	jobs.WeeklySummarize: "weekly-summarize",
	jobs.PersonaMessages: "persona",
	jobs.GenerateEvents:  "generate-events",
}

func newRunCmd() *cobra.Command {
	var withResults bool

	names := make([]string, 0, len(jobAliases))
	for _, name := range jobAliases {
		names = append(names, name)
	}
	slices.Sort(names)

	cmd := &cobra.Command{
		Use:       "run <batch>",
		Short:     "Run one batch over every eligible user and print its report",
		Long:      "Batches: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if alias, ok := jobAliases[name]; ok {
				name = alias
			}
			run, ok := batchRunners(withResults)[name]
			if !ok {
				return fmt.Errorf("unknown batch %q (want one of %s)", args[0], strings.Join(names, ", "))
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := run(ctx, a.Batch)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			})
		},
	}
	cmd.Flags().BoolVar(&withResults, "results", false, "include per-user results in the persona report")
	return cmd
}

func newSmoothCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "smooth",
		Short: "Run nightly smoothing for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errMissingUser
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Commands.Smooth.Handle(ctx, command.SmoothPaceCommand{UserID: userID})
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	return cmd
}

func newRollupCmd() *cobra.Command {
	var (
		userID string
		week   string
	)

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Roll up one user's week (the current UTC week by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errMissingUser
			}
			day := time.Now().UTC()
			if week != "" {
				t, err := timeutil.ParseDate(week)
				if err != nil {
					return fmt.Errorf("--week: %w", err)
				}
				day = t
			}
			start, end := timeutil.WeekRange(day, time.UTC)

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, err := a.Commands.Weekly.Summarize(ctx, userID, start, end)
				if err != nil {
					return err
				}
				return printJSON(cmd, s)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&week, "week", "", "any date (YYYY-MM-DD) inside the week to roll up")
	return cmd
}
