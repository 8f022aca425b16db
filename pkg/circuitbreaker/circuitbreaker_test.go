package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProvider = errors.New("429 resource exhausted")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func failing(context.Context) error { return errProvider }
func passing(context.Context) error { return nil }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := newClock()
	var transitions []string
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 2,
		OpenFor:          time.Minute,
		Now:              clock.Now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, failing), errProvider)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, failing), errProvider)
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Ready())

	assert.ErrorIs(t, cb.Execute(ctx, passing), ErrCircuitOpen)
	assert.Equal(t, []string{"test:closed->open"}, transitions)
	assert.Equal(t, Stats{Failures: 2, Rejected: 1}, cb.Stats())
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	cb := New(Config{FailureThreshold: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	require.NoError(t, cb.Execute(ctx, passing))
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := newClock()
	cb := New(Config{FailureThreshold: 1, OpenFor: time.Minute, Now: clock.Now})
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(time.Minute)
	assert.True(t, cb.Ready())

	require.NoError(t, cb.Execute(ctx, passing))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newClock()
	cb := New(Config{FailureThreshold: 1, OpenFor: time.Minute, Now: clock.Now})
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	clock.Advance(2 * time.Minute)

	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Ready())
}

func TestBreaker_HalfOpenAdmitsOneProbe(t *testing.T) {
	clock := newClock()
	cb := New(Config{FailureThreshold: 1, OpenFor: time.Minute, Now: clock.Now})
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	clock.Advance(time.Minute)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.False(t, cb.Ready())
		return cb.Execute(ctx, passing)
	})
	assert.ErrorIs(t, err, ErrTooManyRequests)
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	cb := New(Config{FailureThreshold: 1})

	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Stats().Successes)
}

func TestBreaker_CustomFailureFilter(t *testing.T) {
	cb := New(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return errors.Is(err, errProvider) },
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("bad prompt") })
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateOpen, cb.State())
}

func TestTextGenerationBreaker(t *testing.T) {
	cb := TextGenerationBreaker(3, time.Hour, nil)
	ctx := context.Background()

	for range 2 {
		_ = cb.Execute(ctx, failing)
	}
	assert.True(t, cb.Ready())
	_ = cb.Execute(ctx, failing)
	assert.False(t, cb.Ready())
}
