package query

import (
	"context"
	"fmt"
	"time"

	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEED QUERIES
// The taunt log, the inbox and the current persona message.
// ══════════════════════════════════════════════════════════════════════════════

// Feed limits.
const (
	DefaultTauntLimit = 50
	MaxTauntLimit     = 200
	InboxLimit        = 50
)

// ListTauntsQuery lists the user's taunt log.
type ListTauntsQuery struct {
	UserID string
	Limit  int
}

// Validate normalizes the limit into [1, 200], defaulting to 50.
func (q *ListTauntsQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrMissingUser
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultTauntLimit
	case q.Limit > MaxTauntLimit:
		q.Limit = MaxTauntLimit
	}
	return nil
}

// TauntsDTO wraps the log rows, newest first.
type TauntsDTO struct {
	Items []notification.TauntRecord `json:"items"`
}

// ListTauntsHandler handles ListTauntsQuery.
type ListTauntsHandler struct {
	taunts notification.TauntRepository
}

// NewListTauntsHandler creates a new ListTauntsHandler.
func NewListTauntsHandler(taunts notification.TauntRepository) *ListTauntsHandler {
	return &ListTauntsHandler{taunts: taunts}
}

// Handle executes the query.
func (h *ListTauntsHandler) Handle(ctx context.Context, q ListTauntsQuery) (*TauntsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	items, err := h.taunts.ListRecent(ctx, q.UserID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list taunts: %w", err)
	}
	if items == nil {
		items = []notification.TauntRecord{}
	}
	return &TauntsDTO{Items: items}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// INBOX
// ══════════════════════════════════════════════════════════════════════════════

// ListInboxQuery lists the user's inbox.
type ListInboxQuery struct {
	UserID string
	Limit  int
}

// InboxDTO wraps inbox records, newest first.
type InboxDTO struct {
	Items []notification.Record `json:"items"`
}

// ListInboxHandler handles ListInboxQuery.
type ListInboxHandler struct {
	inbox notification.Repository
	limit int
}

// NewListInboxHandler creates a new ListInboxHandler. A limit below one
// falls back to InboxLimit.
func NewListInboxHandler(inbox notification.Repository, limit int) *ListInboxHandler {
	if limit < 1 {
		limit = InboxLimit
	}
	return &ListInboxHandler{inbox: inbox, limit: limit}
}

// Handle executes the query.
func (h *ListInboxHandler) Handle(ctx context.Context, q ListInboxQuery) (*InboxDTO, error) {
	if q.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	limit := h.limit
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}
	items, err := h.inbox.ListRecent(ctx, q.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	if items == nil {
		items = []notification.Record{}
	}
	return &InboxDTO{Items: items}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LATEST PERSONA MESSAGE
// ══════════════════════════════════════════════════════════════════════════════

// LatestMessageQuery asks for the current persona message.
type LatestMessageQuery struct {
	UserID string
}

// LatestMessageDTO carries the message or nil.
type LatestMessageDTO struct {
	Message *notification.PersonaMessage `json:"message"`
}

// LatestMessageHandler handles LatestMessageQuery.
type LatestMessageHandler struct {
	personas notification.PersonaRepository
	now      func() time.Time
}

// NewLatestMessageHandler creates a new LatestMessageHandler.
func NewLatestMessageHandler(personas notification.PersonaRepository) *LatestMessageHandler {
	return &LatestMessageHandler{personas: personas, now: time.Now}
}

// WithClock overrides the time source.
func (h *LatestMessageHandler) WithClock(now func() time.Time) *LatestMessageHandler {
	h.now = now
	return h
}

// Handle executes the query. Expired messages are never returned.
func (h *LatestMessageHandler) Handle(ctx context.Context, q LatestMessageQuery) (*LatestMessageDTO, error) {
	if q.UserID == "" {
		return nil, shared.ErrMissingUser
	}
	now := h.now()
	msg, err := h.personas.Latest(ctx, q.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("latest message: %w", err)
	}
	if msg != nil && !msg.Expiry.After(now) {
		msg = nil
	}
	return &LatestMessageDTO{Message: msg}, nil
}
