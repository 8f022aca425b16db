// Package retry retries startup dials with exponential backoff and jitter.
// Pace operations never retry internally; they fail fast and the next
// scheduled run picks the work up again.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so Do returns it at once. Do strips the mark.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the Permanent mark.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Policy describes how often and how patiently to retry.
type Policy struct {
	// Attempts counts the first call. Values below 1 mean a single call.
	Attempts int

	// Delay before the n-th retry is Initial * Multiplier^(n-1), capped at
	// Max, then spread by +/- Jitter (a fraction of the delay).
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64

	// ShouldRetry filters errors. Nil retries everything except context
	// cancellation and Permanent errors.
	ShouldRetry func(error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// ConnectPolicy is used when dialing Postgres or Redis at startup; a cold
// database may take a few seconds to accept connections.
func ConnectPolicy(onRetry func(attempt int, err error, delay time.Duration)) Policy {
	return Policy{
		Attempts:   5,
		Initial:    500 * time.Millisecond,
		Max:        8 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
		OnRetry:    onRetry,
	}
}

// Do calls op until it succeeds, the policy gives up or ctx ends. The last
// operation error is returned; ctx.Err() only when op never ran.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt >= attempts || !p.retryable(err) {
			return err
		}

		delay := p.backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
}

// DoWithData is Do for operations that return a value.
func DoWithData[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

func (p Policy) retryable(err error) bool {
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return !errors.Is(err, context.Canceled)
}

func (p Policy) backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Initial) * math.Pow(mult, float64(attempt-1))
	if p.Max > 0 && d > float64(p.Max) {
		d = float64(p.Max)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(d, 0))
}
