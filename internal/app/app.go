// Package app wires configuration, storage and handlers into the pieces the
// server, worker and CLI binaries run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/batch"
	"github.com/nutri-hub/shadow-pace/internal/application/command"
	"github.com/nutri-hub/shadow-pace/internal/application/query"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/infrastructure/external/gemini"
	"github.com/nutri-hub/shadow-pace/internal/infrastructure/persistence/postgres"
	"github.com/nutri-hub/shadow-pace/internal/infrastructure/persistence/redis"
	httpapi "github.com/nutri-hub/shadow-pace/internal/interface/http"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
	"github.com/nutri-hub/shadow-pace/pkg/retry"
)

// App holds the connected infrastructure and every handler.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	DB       *postgres.Connection
	Redis    *goredis.Client // nil when Redis is disabled or unreachable
	Composer *gemini.Composer

	Commands Commands
	Queries  Queries
	Batch    *batch.Runner
	Health   *httpapi.HealthChecker
}

// Commands are the state-changing handlers.
type Commands struct {
	Commit   *command.CommitProgressHandler
	Nudge    *command.NudgeHandler
	Adjust   *command.AdjustPaceHandler
	Smooth   *command.SmoothPaceHandler
	Taunt    *command.MaybeTauntHandler
	Complete *command.CompleteEventHandler
	Weekly   *command.WeeklySummaryHandler
	RunToday *command.RunTodayHandler
	Persona  *command.GenerateMessageHandler
	Events   *command.GenerateEventsHandler
}

// Queries are the read-only handlers.
type Queries struct {
	Delta      *query.GetDeltaHandler
	Commit     *query.GetCommitHandler
	TodayState *query.GetTodayStateHandler
	History    *query.GetHistoryHandler
	Speed      *query.GetSpeedHistoryHandler
	Taunts     *query.ListTauntsHandler
	Inbox      *query.ListInboxHandler
	Latest     *query.LatestMessageHandler
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
}

// New connects to Postgres, optionally Redis and the text generator, then
// builds every handler. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("app: DATABASE_URL is required")
	}

	a := &App{Config: cfg, Log: log}

	db, err := connectPostgres(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if !cfg.Redis.Disabled {
		client, err := connectRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, speed samples served from postgres", logger.Err(err))
		} else {
			a.Redis = client
		}
	}

	if cfg.AI.Enabled() {
		composer, err := gemini.New(ctx, gemini.Config{
			APIKey:           cfg.AI.GeminiAPIKey,
			Model:            cfg.AI.Model,
			Timeout:          cfg.AI.Timeout,
			BreakerThreshold: cfg.AI.BreakerThreshold,
			BreakerOpenFor:   cfg.AI.BreakerOpenFor,
			RateLimit:        gemini.RateLimiterConfig{
				RequestsPerMinute: cfg.AI.RequestsPerMinute,
				Burst:             cfg.AI.Burst,
			},
		}, log)
		if err != nil {
			log.Warn("text generation disabled", logger.Err(err))
		} else {
			a.Composer = composer
		}
	}

	a.build()
	return a, nil
}

// Close releases the connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("closing redis", logger.Err(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Migrator returns a schema migrator over the connection.
func (a *App) Migrator() *postgres.Migrator {
	return postgres.NewMigrator(a.DB)
}

// HTTPDependencies maps the handlers onto the API server.
func (a *App) HTTPDependencies() httpapi.Dependencies {
	return httpapi.Dependencies{
		Commit:     a.Commands.Commit,
		Nudge:      a.Commands.Nudge,
		Adjust:     a.Commands.Adjust,
		Smooth:     a.Commands.Smooth,
		Taunt:      a.Commands.Taunt,
		Complete:   a.Commands.Complete,
		Weekly:     a.Commands.Weekly,
		RunToday:   a.Commands.RunToday,
		Batch:      a.Batch,
		Delta:      a.Queries.Delta,
		GetCommit:  a.Queries.Commit,
		TodayState: a.Queries.TodayState,
		History:    a.Queries.History,
		Speed:      a.Queries.Speed,
		Taunts:     a.Queries.Taunts,
		Inbox:      a.Queries.Inbox,
		Latest:     a.Queries.Latest,
		Health:     a.Health,
		Logger:     a.Log,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTIONS
// ══════════════════════════════════════════════════════════════════════════════

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.URL
	if cfg.MaxOpenConns > 0 {
		pgCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pgCfg.MinConns = int32(min(cfg.MaxIdleConns, cfg.MaxOpenConns))
	}
	if cfg.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	r := retry.ConnectPolicy(func(attempt int, err error, delay time.Duration) {
		log.Warn("postgres connect failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
	conn, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*postgres.Connection, error) {
		c, err := postgres.NewConnection(ctx, pgCfg)
		if errors.Is(err, postgres.ErrInvalidURL) {
			return nil, retry.Permanent(err)
		}
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	log.Info("postgres connected")
	return conn, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*goredis.Client, error) {
	rCfg := redis.DefaultConfig()
	rCfg.URL = cfg.URL
	rCfg.Host = cfg.Host
	rCfg.Port = cfg.Port
	rCfg.Password = cfg.Password
	rCfg.DB = cfg.DB
	rCfg.PoolSize = cfg.PoolSize
	rCfg.MinIdleConns = cfg.MinIdleConns
	rCfg.DialTimeout = cfg.DialTimeout
	rCfg.ReadTimeout = cfg.ReadTimeout
	rCfg.WriteTimeout = cfg.WriteTimeout

	r := retry.ConnectPolicy(func(attempt int, err error, delay time.Duration) {
		log.Warn("redis connect failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
	client, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*goredis.Client, error) {
		c, err := redis.NewClient(ctx, rCfg)
		if err != nil && !errors.Is(err, redis.ErrConnection) {
			// a bad URL will not fix itself
			return nil, retry.Permanent(err)
		}
		return c, err
	})
	if err != nil {
		return nil, err
	}
	log.Info("redis connected", logger.String("addr", rCfg.Addr()))
	return client, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) build() {
	cfg := a.Config
	log := a.Log
	flags := cfg.Features

	progress := postgres.NewProgressRepository(a.DB)
	configs := postgres.NewConfigRepository(a.DB)
	profiles := postgres.NewProfileRepository(a.DB)
	activity := postgres.NewActivityRepository(a.DB)
	summaries := postgres.NewSummaryRepository(a.DB)
	inbox := postgres.NewInboxRepository(a.DB)
	taunts := postgres.NewTauntRepository(a.DB)
	personas := postgres.NewPersonaRepository(a.DB)
	schedule := postgres.NewScheduleRepository(a.DB)

	var samples pace.SpeedSampleStore = postgres.NewSampleRepository(a.DB)
	if a.Redis != nil {
		samples = redis.NewSampleWindow(a.Redis, samples, cfg.Redis.SampleRetention, log)
	}

	resolver := race.NewResolver(configs, profiles, cfg.App.DefaultTimezone, log)
	tracker := race.NewTracker(resolver, activity)
	notifier := race.NewNotifier(inbox, log)
	dryRun := race.NewDryRun(postgres.NewDryRunRepository(a.DB), flags, log)

	// The remote composer is optional; a nil one leaves templates only.
	var remote notification.MessageComposer
	if a.Composer != nil {
		remote = a.Composer
	}
	selector := notification.NewSelector(remote)
	selector.OnFallback = func(req notification.Request, err error) {
		log.Debug("composer fell back to templates",
			logger.String("kind", string(req.Kind)),
			logger.Err(err),
		)
	}

	clamp := pace.Clamp{Min: cfg.Pace.ClampMin, Max: cfg.Pace.ClampMax}

	adjustParams := command.DefaultAdjustParams()
	adjustParams.Alpha = cfg.Pace.IntradayAlpha
	adjustParams.Clamp = clamp
	adjustParams.Lookback = cfg.Pace.Lookback
	adjustParams.MaxSamples = cfg.Pace.MaxSamples

	smoothParams := command.DefaultSmoothParams()
	smoothParams.Window = cfg.Pace.NightlyWindow
	smoothParams.Alpha = cfg.Pace.NightlyAlpha
	smoothParams.Clamp = clamp
	smoothParams.Limits.DailyCap = cfg.Pace.NightlyDailyCap

	commit := command.NewCommitProgressHandler(tracker, progress, samples, dryRun, flags, log)
	nudge := command.NewNudgeHandler(resolver, progress, notifier, log)

	a.Commands = Commands{
		Commit:   commit,
		Nudge:    nudge,
		Adjust:   command.NewAdjustPaceHandler(progress, samples, dryRun, adjustParams, log),
		Smooth:   command.NewSmoothPaceHandler(progress, resolver, notifier, remote, flags, smoothParams, log),
		Taunt:    command.NewMaybeTauntHandler(resolver, progress, activity, taunts, notifier, flags, cfg.Pace.TauntDailyCap, log),
		Complete: command.NewCompleteEventHandler(activity, log),
		Weekly:   command.NewWeeklySummaryHandler(resolver, progress, summaries, log),
		RunToday: command.NewRunTodayHandler(tracker, commit, nudge, dryRun, flags, log),
		Persona:  command.NewGenerateMessageHandler(resolver, profiles, activity, selector, personas, notifier, flags, log),
		Events:   command.NewGenerateEventsHandler(resolver, schedule, log),
	}

	a.Queries = Queries{
		Delta:      query.NewGetDeltaHandler(tracker, dryRun),
		Commit:     query.NewGetCommitHandler(resolver, progress),
		TodayState: query.NewGetTodayStateHandler(resolver, progress, dryRun),
		History:    query.NewGetHistoryHandler(progress, activity),
		Speed:      query.NewGetSpeedHistoryHandler(progress),
		Taunts:     query.NewListTauntsHandler(taunts),
		Inbox:      query.NewListInboxHandler(inbox, cfg.Pace.InboxListLimit),
		Latest:     query.NewLatestMessageHandler(personas),
	}

	a.Batch = batch.NewRunner(configs, summaries, profiles, batch.Handlers{
		Smooth:   a.Commands.Smooth,
		RunToday: a.Commands.RunToday,
		Taunt:    a.Commands.Taunt,
		Weekly:   a.Commands.Weekly,
		Persona:  a.Commands.Persona,
		Events:   a.Commands.Events,
	}, cfg.Scheduler.BatchConcurrency, log)

	a.Health = httpapi.NewHealthChecker(cfg.App.Version)
	a.Health.AddCheck("postgres", httpapi.PingCheck(a.DB))
	if a.Redis != nil {
		client := a.Redis
		a.Health.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
}
