// Package http serves the shadow race API: user endpoints behind a JWT
// session and cron endpoints behind a shared secret.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/nutri-hub/shadow-pace/internal/application/batch"
	"github.com/nutri-hub/shadow-pace/internal/application/command"
	"github.com/nutri-hub/shadow-pace/internal/application/query"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// AllowedOrigins for CORS. Empty disables cross-origin calls.
	AllowedOrigins []string

	// JWTSecret verifies HS256 session tokens.
	JWTSecret string

	// CronSecret guards /api/cron. Empty rejects every cron call.
	CronSecret string

	// MaxInflight bounds concurrent requests. Zero means unbounded.
	MaxInflight int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxInflight:  256,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains the handlers behind the routes.
type Dependencies struct {
	// Commands
	Commit   *command.CommitProgressHandler
	Nudge    *command.NudgeHandler
	Adjust   *command.AdjustPaceHandler
	Smooth   *command.SmoothPaceHandler
	Taunt    *command.MaybeTauntHandler
	Complete *command.CompleteEventHandler
	Weekly   *command.WeeklySummaryHandler
	RunToday *command.RunTodayHandler
	Batch    *batch.Runner

	// Queries
	Delta      *query.GetDeltaHandler
	GetCommit  *query.GetCommitHandler
	TodayState *query.GetTodayStateHandler
	History    *query.GetHistoryHandler
	Speed      *query.GetSpeedHistoryHandler
	Taunts     *query.ListTauntsHandler
	Inbox      *query.ListInboxHandler
	Latest     *query.LatestMessageHandler

	Health *HealthChecker
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     chi.Router
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.deps.Health == nil {
		s.deps.Health = NewHealthChecker("")
	}

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	if len(s.config.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", CronSecretHeader},
			AllowCredentials: true,
			MaxAge:           86400,
		}).Handler)
	}
	r.Use(chimiddleware.Recoverer)
	if s.config.MaxInflight > 0 {
		r.Use(chimiddleware.Throttle(s.config.MaxInflight))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/shadow", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/progress/delta", s.handleDelta)
		r.Get("/progress/commit", s.handleGetCommit)
		r.Post("/progress/commit", s.handleCommit)
		r.Post("/progress/nudge", s.handleNudge)
		r.Post("/progress/run-today", s.handleRunToday)

		r.Post("/pace/adjust", s.handleAdjust)
		r.Post("/pace/smooth/nightly", s.handleSmooth)

		r.Get("/taunts", s.handleListTaunts)
		r.Post("/taunts/maybe", s.handleMaybeTaunt)
		r.Get("/inbox", s.handleInbox)

		r.Post("/events/{id}/complete", s.handleCompleteEvent)
		r.Post("/weekly/summary/generate", s.handleWeeklySummary)
		r.Get("/state/today", s.handleTodayState)
		r.Get("/history", s.handleHistory)
		r.Get("/speed/history", s.handleSpeedHistory)
		r.Get("/messages/latest", s.handleLatestMessage)
	})

	// Persona generation accepts either a session or the cron secret.
	r.With(s.optionalUser).Post("/api/shadow/messages/generate", s.handleGenerateMessages)

	r.Route("/api/cron/shadow", func(r chi.Router) {
		r.With(s.requireCron(http.StatusForbidden, "Forbidden")).Post("/nightly-smooth", s.handleCronNightly)
		r.With(s.requireCron(http.StatusForbidden, "Forbidden")).Post("/run-today-all", s.handleCronRunToday)
		r.With(s.requireCron(http.StatusForbidden, "Forbidden")).Post("/taunt-maybe", s.handleCronTaunt)
		r.With(s.requireCron(http.StatusForbidden, "Forbidden")).Post("/generate-events-today-all", s.handleCronGenerateEvents)
		r.With(s.requireCron(http.StatusUnauthorized, "Unauthorized")).Post("/weekly-summarize", s.handleCronWeekly)
	})

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
