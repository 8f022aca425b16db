// Package circuitbreaker stops calling a failing provider for a while so
// callers can go straight to their local fallback.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen rejects calls while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests rejects calls once every half-open probe slot is taken.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds breaker settings. Zero values take the defaults below.
type Config struct {
	Name string

	// FailureThreshold consecutive failures open the breaker. Default 5.
	FailureThreshold int

	// SuccessThreshold half-open successes close it again. Default 1.
	SuccessThreshold int

	// OpenFor is how long calls are rejected before probing. Default 30s.
	OpenFor time.Duration

	// HalfOpenProbes bounds concurrent probes. Default 1.
	HalfOpenProbes int

	// IsFailure decides whether an error counts against the provider.
	// Nil counts every error except context cancellation.
	IsFailure func(error) bool

	OnStateChange func(name string, from, to State)

	Now func() time.Time
}

// Stats are lifetime counters.
type Stats struct {
	Successes int
	Failures  int
	Rejected  int
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	streak   int // consecutive failures when closed, successes when half-open
	openedAt time.Time
	probes   int
	stats    Stats
}

// New fills in defaults and returns a closed breaker.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// TextGenerationBreaker guards the generative text provider. Provider
// throttling tends to last minutes, so the open window is long.
func TextGenerationBreaker(threshold int, openFor time.Duration, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Config{
		Name:             "text-generation",
		FailureThreshold: threshold,
		SuccessThreshold: 1,
		OpenFor:          openFor,
		HalfOpenProbes:   1,
		OnStateChange:    onStateChange,
	})
}

// Execute runs fn when the breaker lets it through and records the outcome.
// A rejected call returns ErrCircuitOpen or ErrTooManyRequests without
// running fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// Ready reports whether a call would currently be admitted, without taking
// a probe slot.
func (cb *CircuitBreaker) Ready() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		return cb.cooledDown()
	case StateHalfOpen:
		return cb.probes < cb.cfg.HalfOpenProbes
	default:
		return true
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

func (cb *CircuitBreaker) cooledDown() bool {
	return cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.OpenFor
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if !cb.cooledDown() {
			cb.stats.Rejected++
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probes = 1
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenProbes {
			cb.stats.Rejected++
			return ErrTooManyRequests
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.probes > 0 {
		cb.probes--
	}

	if err != nil && cb.cfg.IsFailure(err) {
		cb.stats.Failures++
		switch cb.state {
		case StateHalfOpen:
			cb.transition(StateOpen)
		case StateClosed:
			cb.streak++
			if cb.streak >= cb.cfg.FailureThreshold {
				cb.transition(StateOpen)
			}
		}
		return
	}

	cb.stats.Successes++
	switch cb.state {
	case StateHalfOpen:
		cb.streak++
		if cb.streak >= cb.cfg.SuccessThreshold {
			cb.transition(StateClosed)
		}
	case StateClosed:
		cb.streak = 0
	}
}

// must be called with mu held
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.streak = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.cfg.Now()
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
