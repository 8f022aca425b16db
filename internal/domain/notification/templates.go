package notification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
)

// Message is composed text ready for the inbox.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// TauntMessage picks the nightly template for a lead and a smoothed target.
func TauntMessage(lead, target float64) Message {
	t := FormatTarget(target)
	switch pace.Band(lead) {
	case pace.BandShadowAhead:
		return Message{
			Title: "Shadow Taunt: Catch me if you can",
			Body:  fmt.Sprintf("Your shadow is ahead by %.1f. New target set to %s. Tomorrow is your move.", lead, t),
			URL:   URLShadow,
		}
	case pace.BandUserAhead:
		return Message{
			Title: "Shadow Taunt: Feeling the heat?",
			Body:  fmt.Sprintf("You are ahead by %.1f. Shadow bumps pace to %s. Keep the lead.", -lead, t),
			URL:   URLShadow,
		}
	default:
		return Message{
			Title: "Shadow Taunt: Neck and neck",
			Body:  fmt.Sprintf("It’s close. Shadow sets pace %s. One push tilts the race.", t),
			URL:   URLShadow,
		}
	}
}

// NudgeMessage wraps a commit nudge for the inbox.
func NudgeMessage(n pace.NudgeText) Message {
	return Message{Title: n.Title, Body: n.Body, URL: URLShadow}
}

// TauntInboxMessage mirrors an engine taunt into the inbox.
func TauntInboxMessage(text string) Message {
	return Message{Title: "Shadow taunt", Body: text, URL: URLShadow}
}

// PersonaInboxMessage announces a fresh persona message.
func PersonaInboxMessage(text string) Message {
	return Message{Title: "Shadow sent a message", Body: text, URL: URLDashboard}
}

// FormatTarget prints a target in its shortest form: 3.46, 3, 0.5.
func FormatTarget(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSONA
// ══════════════════════════════════════════════════════════════════════════════

// Tone of a persona message.
type Tone string

const (
	ToneTaunt         Tone = "taunt"
	ToneEncouragement Tone = "encouragement"
	ToneNeutral       Tone = "neutral"
)

// ToneFor maps a persona to its tone.
func ToneFor(persona string) Tone {
	switch strings.ToLower(strings.TrimSpace(persona)) {
	case pace.PersonaStrict:
		return ToneTaunt
	case pace.PersonaMentor, pace.PersonaPlayful:
		return ToneEncouragement
	default:
		return ToneNeutral
	}
}

// MaxPersonaTasks is how many task titles a persona message mentions.
const MaxPersonaTasks = 3

// FallbackPersonaText is the deterministic persona message.
func FallbackPersonaText(tone Tone, titles []string) string {
	if len(titles) > MaxPersonaTasks {
		titles = titles[:MaxPersonaTasks]
	}
	if len(titles) == 0 {
		switch tone {
		case ToneTaunt:
			return "No plans? Set one now. Even a 5‑minute task beats excuses."
		case ToneEncouragement:
			return "No tasks yet—create one tiny step for today. Momentum > perfection."
		default:
			return "Nothing scheduled. Add one simple task to move forward today."
		}
	}

	list := strings.Join(titles, ", ")
	switch tone {
	case ToneTaunt:
		return fmt.Sprintf("Still stalling? Knock out: %s. Prove it now.", list)
	case ToneEncouragement:
		return fmt.Sprintf("You’ve got this. Start with: %s. One small win first.", list)
	default:
		return fmt.Sprintf("On deck today: %s. Pick one and start.", list)
	}
}

// PersonaPrompt is the text-generation prompt for a persona message.
func PersonaPrompt(persona, timezone string, tone Tone, titles []string) string {
	if len(titles) > MaxPersonaTasks {
		titles = titles[:MaxPersonaTasks]
	}
	if persona == "" {
		persona = pace.PersonaNeutral
	}
	if len(titles) == 0 {
		return fmt.Sprintf(
			"Persona: %s. Timezone: %s. The user has no scheduled tasks today. Generate a short %s message (max 180 chars) to %s. Avoid emojis.",
			persona, timezone, tone, noTaskGoal(tone))
	}
	return fmt.Sprintf(
		"Persona: %s. Timezone: %s. Generate a short %s message (max 180 chars) addressing the user's upcoming tasks today: %s. Keep it practical and motivating; avoid emojis.",
		persona, timezone, tone, strings.Join(titles, ", "))
}

func noTaskGoal(tone Tone) string {
	switch tone {
	case ToneTaunt:
		return "lightly challenge their inactivity"
	case ToneEncouragement:
		return "encourage them to create a small habit or task"
	default:
		return "neutrally suggest starting something simple"
	}
}
