// Package main is the HTTP entry point of the shadow pace engine: the
// per-user API and the cron endpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/app"
	httpapi "github.com/nutri-hub/shadow-pace/internal/interface/http"
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
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := app.NewLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting shadow pace server",
		logger.String("version", cfg.App.Version),
		logger.String("default_timezone", cfg.App.DefaultTimezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. INFRASTRUCTURE
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	applied, err := a.Migrator().Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		log.Info("migrations applied", logger.Any("versions", applied))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpapi.NewServer(httpapi.Config{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		JWTSecret:      cfg.HTTP.JWTSecret,
		CronSecret:     cfg.HTTP.CronSecret,
		MaxInflight:    cfg.HTTP.MaxInflight,
	}, a.HTTPDependencies())

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}
