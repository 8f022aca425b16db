// Package notification models the inbox records the shadow writes for a
// user and the text composers that fill them.
// Delivery transport (web push, FCM) is outside this service: a record
// is done once it lands in the inbox.
package notification

import (
	"strings"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// RecordID identifies an inbox record.
type RecordID string

// IsValid checks that the id is not empty.
func (id RecordID) IsValid() bool {
	return len(id) > 0
}

func (id RecordID) String() string {
	return string(id)
}

// Kind labels what produced a record.
type Kind string

const (
	KindTaunt   Kind = "taunt"
	KindNudge   Kind = "nudge"
	KindPersona Kind = "persona"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTaunt, KindNudge, KindPersona:
		return true
	default:
		return false
	}
}

// Inbox links.
const (
	URLShadow    = "/shadow"
	URLDashboard = "/dashboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is one inbox message. It carries no reference to the progress row
// that triggered it.
type Record struct {
	ID        RecordID   `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      Kind       `json:"kind,omitempty"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	URL       string     `json:"url"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewRecord builds a record from composed text.
func NewRecord(userID string, kind Kind, msg Message, now time.Time) (*Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrMissingUser
	}
	if strings.TrimSpace(msg.Title) == "" || strings.TrimSpace(msg.Body) == "" {
		return nil, shared.ErrEmptyMessage
	}
	url := msg.URL
	if url == "" {
		url = URLShadow
	}
	return &Record{
		UserID:    userID,
		Kind:      kind,
		Title:     msg.Title,
		Body:      msg.Body,
		URL:       url,
		CreatedAt: now,
	}, nil
}

// IsRead reports whether the user opened the record.
func (r *Record) IsRead() bool {
	return r.ReadAt != nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// Outcome is the result of a send attempt. Skipped is routine, not an error.
type Outcome struct {
	Sent    bool    `json:"sent"`
	Skipped bool    `json:"skipped,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Record  *Record `json:"record,omitempty"`
}

// Skip reports a suppressed notification.
func Skip(reason string) Outcome {
	return Outcome{Skipped: true, Reason: reason}
}

// ══════════════════════════════════════════════════════════════════════════════
// TAUNT LOG AND PERSONA MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// TauntRecord is a row of the ai_taunts log. It is capped separately from
// the inbox.
type TauntRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Intensity string         `json:"intensity"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
}

// PersonaMessageTTL is how long a persona message stays current.
const PersonaMessageTTL = 3 * time.Hour

// PersonaMessage is a short persona-voiced message shown on the dashboard.
type PersonaMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      Tone      `json:"type"`
	Text      string    `json:"text"`
	Expiry    time.Time `json:"expiry"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPersonaMessage stamps text with its expiry.
func NewPersonaMessage(userID string, tone Tone, text string, now time.Time) PersonaMessage {
	return PersonaMessage{
		UserID:    userID,
		Type:      tone,
		Text:      text,
		Expiry:    now.Add(PersonaMessageTTL),
		CreatedAt: now,
	}
}
