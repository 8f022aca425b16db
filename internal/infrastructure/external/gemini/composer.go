// Package gemini composes taunt and persona text with Google's generative
// models. Every call spends a rate-limit token and goes through a circuit
// breaker. The caller falls back to templates whenever the composer errors
// or reports itself unavailable.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/pkg/circuitbreaker"
	"github.com/nutri-hub/shadow-pace/pkg/logger"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gemini-1.5-flash"

// MaxChars caps generated text. Longer output is cut at a word boundary.
const MaxChars = 180

// Generator is the slice of the genai client the composer uses.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Config holds composer settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	BreakerThreshold int
	BreakerOpenFor   time.Duration

	RateLimit RateLimiterConfig
}

// Composer implements notification.MessageComposer and notification.Availability.
type Composer struct {
	gen     Generator
	model   string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	limiter *RateLimiter
	log     *logger.Logger
}

// New dials the genai API. An empty API key yields a composer that is
// never available, so callers can wire it unconditionally.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Composer, error) {
	if cfg.APIKey == "" {
		return NewWithGenerator(nil, cfg, log), nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewWithGenerator(&clientGenerator{client: client}, cfg, log), nil
}

// NewWithGenerator builds a composer over any Generator. A nil generator
// disables the composer.
func NewWithGenerator(gen Generator, cfg Config, log *logger.Logger) *Composer {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("gemini"))
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 3
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 15 * time.Minute
	}

	return &Composer{
		gen:     gen,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		breaker: circuitbreaker.TextGenerationBreaker(cfg.BreakerThreshold, cfg.BreakerOpenFor,
			func(name string, from, to circuitbreaker.State) {
				log.Warn("breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			}),
		limiter: NewRateLimiter(cfg.RateLimit),
		log:     log,
	}
}

// Name identifies the provider in logs.
func (c *Composer) Name() string {
	return "genai:" + c.model
}

// Available reports whether a call would be attempted.
func (c *Composer) Available() bool {
	return c != nil && c.gen != nil && c.breaker.Ready() && c.limiter.Ready()
}

// Compose implements notification.MessageComposer.
func (c *Composer) Compose(ctx context.Context, req notification.Request) (notification.Message, error) {
	if c.gen == nil {
		return notification.Message{}, shared.ErrTextGenUnavailable
	}
	if !c.limiter.TryAcquire() {
		return notification.Message{}, shared.ErrTextGenRateLimited
	}

	var text string
	start := time.Now()
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		out, err := c.gen.Generate(callCtx, c.model, Prompt(req))
		if err != nil {
			return classify(err)
		}
		text = Trim(out)
		if text == "" {
			return shared.ErrTextGenEmpty
		}
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return notification.Message{}, shared.WrapError("textgen", "Generate", shared.ErrServiceUnavailable, "breaker open", err)
	}
	if errors.Is(err, shared.ErrRateLimited) {
		c.limiter.RecordRateLimitHit()
	}
	if err != nil {
		c.log.Warn("generation failed",
			logger.String("kind", string(req.Kind)),
			logger.Latency(time.Since(start)),
			logger.Err(err),
		)
		return notification.Message{}, err
	}

	c.log.Debug("generated",
		logger.String("kind", string(req.Kind)),
		logger.Latency(time.Since(start)),
	)
	return wrap(req, text), nil
}

// wrap places generated text in the same envelope the template would use.
func wrap(req notification.Request, text string) notification.Message {
	switch req.Kind {
	case notification.KindPersona:
		return notification.PersonaInboxMessage(text)
	case notification.KindNudge:
		return notification.Message{Title: "Shadow nudge", Body: text, URL: notification.URLShadow}
	default:
		msg := notification.TauntMessage(req.Lead, req.Target)
		msg.Body = text
		return msg
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROMPTS
// ══════════════════════════════════════════════════════════════════════════════

// Prompt builds the generation prompt for a request.
func Prompt(req notification.Request) string {
	switch req.Kind {
	case notification.KindPersona:
		return notification.PersonaPrompt(req.Persona, req.Timezone, req.Tone, req.TaskTitles)
	case notification.KindNudge:
		return fmt.Sprintf(
			"You are the user's shadow rival in a daily productivity race. Today's shadow target is %s tasks. "+
				"Write one short nudge (max %d chars) telling them to lock in today's pace. Avoid emojis.",
			notification.FormatTarget(req.Target), MaxChars)
	default:
		return fmt.Sprintf(
			"You are the user's shadow rival in a daily productivity race. %s Tomorrow's shadow target is %s tasks. "+
				"Write one short taunt (max %d chars), playful and never insulting. Avoid emojis.",
			standing(req.Lead), notification.FormatTarget(req.Target), MaxChars)
	}
}

func standing(lead float64) string {
	switch {
	case lead > 0.5:
		return fmt.Sprintf("The shadow is ahead by %.1f tasks.", lead)
	case lead < -0.5:
		return fmt.Sprintf("The user is ahead by %.1f tasks.", -lead)
	default:
		return "The race is neck and neck."
	}
}

// Trim collapses whitespace, strips wrapping quotes and enforces MaxChars.
func Trim(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, "\"'“”")
	if len([]rune(s)) <= MaxChars {
		return s
	}
	r := []rune(s)[:MaxChars]
	cut := string(r)
	if i := strings.LastIndex(cut, " "); i > MaxChars/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:")
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.WrapError("textgen", "Generate", shared.ErrServiceUnavailable, "text generation timed out", err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate-limited") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "429") {
		return shared.WrapError("textgen", "Generate", shared.ErrRateLimited, "text generation rate limited", err)
	}
	return shared.WrapError("textgen", "Generate", shared.ErrExternalService, "text generation failed", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// GENAI CLIENT
// ══════════════════════════════════════════════════════════════════════════════

type clientGenerator struct {
	client *genai.Client
}

func (g *clientGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: 120,
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}
