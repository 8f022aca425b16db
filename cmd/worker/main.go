// Package main is the background worker: it runs the pace batches on their
// cron schedules.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/app"
	"github.com/nutri-hub/shadow-pace/internal/infrastructure/scheduler"
	"github.com/nutri-hub/shadow-pace/internal/infrastructure/scheduler/jobs"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := app.NewLogger(cfg).With(logger.Component("worker"))
	defer func() { _ = log.Sync() }()

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, nothing to do")
		return nil
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// Every cron expression is evaluated in UTC.
	sched := scheduler.New(scheduler.Config{
		Logger:            log,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
	})
	if err := jobs.Register(sched, a.Batch, cfg.Scheduler); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	for _, info := range sched.ListJobs() {
		log.Info("job scheduled",
			logger.Job(info.Name),
			logger.String("schedule", info.Schedule),
			logger.Time("next_run", info.NextRun),
		)
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("received shutdown signal, waiting for running jobs")

	if err := sched.Stop(); err != nil {
		return err
	}
	log.Info("worker stopped")
	return nil
}
