package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

type fakeGenerator struct {
	calls   int
	prompts []string
	text    string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func newComposer(gen Generator) *Composer {
	return NewWithGenerator(gen, Config{BreakerThreshold: 2, BreakerOpenFor: time.Hour}, nil)
}

func TestCompose_Taunt(t *testing.T) {
	gen := &fakeGenerator{text: "  \"Still behind me? Cute.\"  "}
	c := newComposer(gen)

	msg, err := c.Compose(context.Background(), notification.Request{Kind: notification.KindTaunt, Lead: 3.4, Target: 3.46})
	require.NoError(t, err)

	assert.Equal(t, "Still behind me? Cute.", msg.Body)
	assert.Equal(t, "Shadow Taunt: Catch me if you can", msg.Title)
	assert.Equal(t, notification.URLShadow, msg.URL)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "The shadow is ahead by 3.4 tasks.")
	assert.Contains(t, gen.prompts[0], "3.46")
}

func TestNewWithGenerator_StartsReady(t *testing.T) {
	c := NewWithGenerator(&fakeGenerator{text: "hi"}, Config{}, nil)
	require.NotNil(t, c.limiter)

	assert.NotPanics(t, func() { assert.True(t, c.Available()) })

	msg, err := c.Compose(context.Background(), notification.Request{Kind: notification.KindNudge})
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Body)
}

func TestCompose_Persona(t *testing.T) {
	gen := &fakeGenerator{text: "Ship the report first."}
	c := newComposer(gen)

	msg, err := c.Compose(context.Background(), notification.Request{
		Kind:       notification.KindPersona,
		Persona:    "strict",
		Timezone:   "Asia/Almaty",
		Tone:       notification.ToneTaunt,
		TaskTitles: []string{"report"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Shadow sent a message", msg.Title)
	assert.Equal(t, "Ship the report first.", msg.Body)
	assert.Contains(t, gen.prompts[0], "Persona: strict. Timezone: Asia/Almaty.")
}

func TestCompose_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		want error
	}{
		{"empty", &fakeGenerator{text: "   "}, shared.ErrTextGenEmpty},
		{"rate limited", &fakeGenerator{err: errors.New("provider rate-limited")}, shared.ErrRateLimited},
		{"timeout", &fakeGenerator{err: context.DeadlineExceeded}, shared.ErrServiceUnavailable},
		{"other", &fakeGenerator{err: errors.New("boom")}, shared.ErrExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newComposer(tt.gen).Compose(context.Background(), notification.Request{Kind: notification.KindTaunt})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompose_BreakerOpensAfterFailures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	c := newComposer(gen)
	ctx := context.Background()

	for range 2 {
		_, err := c.Compose(ctx, notification.Request{Kind: notification.KindTaunt})
		require.Error(t, err)
	}
	assert.False(t, c.Available())

	_, err := c.Compose(ctx, notification.Request{Kind: notification.KindTaunt})
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Equal(t, 2, gen.calls)
}

func TestSelectorFallsBackToTemplate(t *testing.T) {
	c := newComposer(&fakeGenerator{err: errors.New("boom")})
	sel := notification.NewSelector(c)

	var fellBack bool
	sel.OnFallback = func(notification.Request, error) { fellBack = true }

	msg, err := sel.Compose(context.Background(), notification.Request{Kind: notification.KindTaunt, Lead: 0, Target: 3})
	require.NoError(t, err)
	assert.True(t, fellBack)
	assert.Equal(t, notification.TauntMessage(0, 3), msg)
}

func TestNew_WithoutKeyIsUnavailable(t *testing.T) {
	c, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)

	assert.False(t, c.Available())
	assert.Equal(t, "genai:"+DefaultModel, c.Name())

	_, err = c.Compose(context.Background(), notification.Request{})
	assert.ErrorIs(t, err, shared.ErrTextGenUnavailable)
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "a b", Trim("  a\n\n b "))

	long := strings.Repeat("word ", 60)
	got := Trim(long)
	assert.LessOrEqual(t, len([]rune(got)), MaxChars)
	assert.False(t, strings.HasSuffix(got, " "))
	assert.True(t, strings.HasSuffix(got, "word"))
}
