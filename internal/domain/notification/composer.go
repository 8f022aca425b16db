package notification

import (
	"context"
	"strings"
)

// Request carries what a composer may need. Kind selects the message.
type Request struct {
	Kind Kind

	// Taunt inputs.
	Lead   float64
	Target float64

	// Persona inputs.
	Persona    string
	Timezone   string
	Tone       Tone
	TaskTitles []string
}

// MessageComposer turns a request into text.
type MessageComposer interface {
	Compose(ctx context.Context, req Request) (Message, error)
}

// Availability is implemented by composers that depend on a remote service.
type Availability interface {
	Available() bool
}

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATE COMPOSER
// ══════════════════════════════════════════════════════════════════════════════

// TemplateComposer is deterministic and never fails.
type TemplateComposer struct{}

// Compose implements MessageComposer.
func (TemplateComposer) Compose(_ context.Context, req Request) (Message, error) {
	switch req.Kind {
	case KindPersona:
		return PersonaInboxMessage(FallbackPersonaText(req.Tone, req.TaskTitles)), nil
	default:
		return TauntMessage(req.Lead, req.Target), nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SELECTION
// ══════════════════════════════════════════════════════════════════════════════

// Selector tries the preferred composer when it is available and falls back
// to the template on any failure. The template path is always reachable.
type Selector struct {
	Preferred MessageComposer
	Template  TemplateComposer

	// OnFallback is told why the preferred composer was skipped.
	OnFallback func(req Request, err error)
}

// NewSelector builds a selector. A nil preferred composer means templates only.
func NewSelector(preferred MessageComposer) *Selector {
	return &Selector{Preferred: preferred}
}

// Compose implements MessageComposer.
func (s *Selector) Compose(ctx context.Context, req Request) (Message, error) {
	if s.Preferred != nil && available(s.Preferred) {
		msg, err := s.Preferred.Compose(ctx, req)
		if err == nil && strings.TrimSpace(msg.Body) != "" {
			return msg, nil
		}
		if s.OnFallback != nil {
			s.OnFallback(req, err)
		}
	}
	return s.Template.Compose(ctx, req)
}

// Source names the composer that would be tried first.
func (s *Selector) Source() string {
	if s.Preferred != nil && available(s.Preferred) {
		return "ai"
	}
	return "template"
}

func available(c MessageComposer) bool {
	a, ok := c.(Availability)
	return !ok || a.Available()
}
