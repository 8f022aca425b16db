package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

func TestTauntMessage(t *testing.T) {
	tests := []struct {
		name   string
		lead   float64
		target float64
		want   Message
	}{
		{
			name: "shadow ahead", lead: 3.4, target: 3.46,
			want: Message{
				Title: "Shadow Taunt: Catch me if you can",
				Body:  "Your shadow is ahead by 3.4. New target set to 3.46. Tomorrow is your move.",
				URL:   "/shadow",
			},
		},
		{
			name: "user ahead", lead: -4, target: 5,
			want: Message{
				Title: "Shadow Taunt: Feeling the heat?",
				Body:  "You are ahead by 4.0. Shadow bumps pace to 5. Keep the lead.",
				URL:   "/shadow",
			},
		},
		{
			name: "close race", lead: -0.5, target: 0.5,
			want: Message{
				Title: "Shadow Taunt: Neck and neck",
				Body:  "It’s close. Shadow sets pace 0.5. One push tilts the race.",
				URL:   "/shadow",
			},
		},
		{
			name: "threshold is close", lead: 2, target: 3,
			want: Message{
				Title: "Shadow Taunt: Neck and neck",
				Body:  "It’s close. Shadow sets pace 3. One push tilts the race.",
				URL:   "/shadow",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TauntMessage(tt.lead, tt.target))
		})
	}
}

func TestToneFor(t *testing.T) {
	assert.Equal(t, ToneTaunt, ToneFor("strict"))
	assert.Equal(t, ToneEncouragement, ToneFor("mentor"))
	assert.Equal(t, ToneEncouragement, ToneFor(" Playful "))
	assert.Equal(t, ToneNeutral, ToneFor("neutral"))
	assert.Equal(t, ToneNeutral, ToneFor(""))
}

func TestFallbackPersonaText(t *testing.T) {
	titles := []string{"Walk", "Log lunch", "Water", "Stretch"}

	assert.Equal(t, "Still stalling? Knock out: Walk, Log lunch, Water. Prove it now.", FallbackPersonaText(ToneTaunt, titles))
	assert.Equal(t, "You’ve got this. Start with: Walk. One small win first.", FallbackPersonaText(ToneEncouragement, titles[:1]))
	assert.Equal(t, "On deck today: Walk, Water. Pick one and start.", FallbackPersonaText(ToneNeutral, []string{"Walk", "Water"}))

	assert.Equal(t, "No plans? Set one now. Even a 5‑minute task beats excuses.", FallbackPersonaText(ToneTaunt, nil))
	assert.Equal(t, "No tasks yet—create one tiny step for today. Momentum > perfection.", FallbackPersonaText(ToneEncouragement, nil))
	assert.Equal(t, "Nothing scheduled. Add one simple task to move forward today.", FallbackPersonaText(ToneNeutral, nil))
}

func TestPersonaPrompt(t *testing.T) {
	got := PersonaPrompt("mentor", "Asia/Kolkata", ToneEncouragement, []string{"Walk", "Water"})
	assert.Equal(t, "Persona: mentor. Timezone: Asia/Kolkata. Generate a short encouragement message (max 180 chars) addressing the user's upcoming tasks today: Walk, Water. Keep it practical and motivating; avoid emojis.", got)

	empty := PersonaPrompt("", "UTC", ToneNeutral, nil)
	assert.Contains(t, empty, "Persona: neutral.")
	assert.Contains(t, empty, "no scheduled tasks today")
	assert.Contains(t, empty, "neutrally suggest starting something simple")
}

func TestFormatTarget(t *testing.T) {
	assert.Equal(t, "3.46", FormatTarget(3.46))
	assert.Equal(t, "3", FormatTarget(3))
	assert.Equal(t, "0.5", FormatTarget(0.5))
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	r, err := NewRecord("u1", KindTaunt, Message{Title: "t", Body: "b"}, now)
	require.NoError(t, err)
	assert.Equal(t, "/shadow", r.URL)
	assert.Equal(t, now, r.CreatedAt)
	assert.False(t, r.IsRead())

	_, err = NewRecord("u1", KindTaunt, Message{Title: "t"}, now)
	assert.ErrorIs(t, err, shared.ErrEmptyMessage)

	_, err = NewRecord(" ", KindTaunt, Message{Title: "t", Body: "b"}, now)
	assert.True(t, shared.IsUnauthorized(err))
}

func TestNewPersonaMessage(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	m := NewPersonaMessage("u1", ToneNeutral, "hi", now)
	assert.Equal(t, now.Add(3*time.Hour), m.Expiry)
}

// ══════════════════════════════════════════════════════════════════════════════
// Selector
// ══════════════════════════════════════════════════════════════════════════════

type stubComposer struct {
	msg   Message
	err   error
	ready bool
	calls int
}

func (s *stubComposer) Compose(context.Context, Request) (Message, error) {
	s.calls++
	return s.msg, s.err
}

func (s *stubComposer) Available() bool { return s.ready }

func TestSelector_TemplateOnly(t *testing.T) {
	sel := NewSelector(nil)
	msg, err := sel.Compose(context.Background(), Request{Kind: KindTaunt, Lead: 3.4, Target: 3})
	require.NoError(t, err)
	assert.Equal(t, "Shadow Taunt: Catch me if you can", msg.Title)
	assert.Equal(t, "template", sel.Source())
}

func TestSelector_PrefersAvailableComposer(t *testing.T) {
	ai := &stubComposer{ready: true, msg: Message{Title: "AI", Body: "generated", URL: "/shadow"}}
	sel := NewSelector(ai)

	msg, err := sel.Compose(context.Background(), Request{Kind: KindTaunt})
	require.NoError(t, err)
	assert.Equal(t, "generated", msg.Body)
	assert.Equal(t, "ai", sel.Source())
}

func TestSelector_FallsBack(t *testing.T) {
	tests := []struct {
		name  string
		stub  *stubComposer
		calls int
	}{
		{"unavailable", &stubComposer{ready: false}, 0},
		{"error", &stubComposer{ready: true, err: errors.New("429")}, 1},
		{"empty text", &stubComposer{ready: true, msg: Message{Title: "x", Body: "  "}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reasons int
			sel := NewSelector(tt.stub)
			sel.OnFallback = func(Request, error) { reasons++ }

			msg, err := sel.Compose(context.Background(), Request{Kind: KindPersona, Tone: ToneNeutral})
			require.NoError(t, err)
			assert.Equal(t, "Shadow sent a message", msg.Title)
			assert.Equal(t, "Nothing scheduled. Add one simple task to move forward today.", msg.Body)
			assert.Equal(t, "/dashboard", msg.URL)
			assert.Equal(t, tt.calls, tt.stub.calls)
			assert.Equal(t, tt.calls, reasons)
		})
	}
}
