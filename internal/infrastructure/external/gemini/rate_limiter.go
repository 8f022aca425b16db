package gemini

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER - Token Bucket
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiter is a token bucket in front of the generation API. It never
// blocks: a batch that runs out of tokens falls back to templates instead
// of waiting.
type RateLimiter struct {
	mu sync.Mutex

	maxTokens  float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time

	// pausedUntil is set when the API itself reports a rate limit.
	pausedUntil time.Time
	cooldown    time.Duration

	now func() time.Time
}

// RateLimiterConfig contains configuration for the rate limiter.
type RateLimiterConfig struct {
	// RequestsPerMinute is the sustained request rate.
	RequestsPerMinute float64

	// Burst is the bucket size.
	Burst int

	// Cooldown applies after the API answers with a rate limit.
	Cooldown time.Duration
}

// DefaultRateLimiterConfig fits the free Gemini tier.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerMinute: 15,
		Burst:             5,
		Cooldown:          time.Minute,
	}
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.Cooldown <= 0 {
		config.Cooldown = def.Cooldown
	}
	return &RateLimiter{
		maxTokens:  float64(config.Burst),
		refillRate: config.RequestsPerMinute / 60,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
		cooldown:   config.Cooldown,
		now:        time.Now,
	}
}

// TryAcquire takes a token when one is available.
func (rl *RateLimiter) TryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Before(rl.pausedUntil) {
		return false
	}
	rl.refill(now)
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Ready reports whether TryAcquire would succeed, without taking a token.
func (rl *RateLimiter) Ready() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Before(rl.pausedUntil) {
		return false
	}
	rl.refill(now)
	return rl.tokens >= 1
}

// RecordRateLimitHit empties the bucket and pauses for the cooldown.
func (rl *RateLimiter) RecordRateLimitHit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.tokens = 0
	rl.lastRefill = now
	rl.pausedUntil = now.Add(rl.cooldown)
}

// must be called with mu held
func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens = min(rl.maxTokens, rl.tokens+elapsed*rl.refillRate)
	rl.lastRefill = now
}
