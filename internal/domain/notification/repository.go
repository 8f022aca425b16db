package notification

import (
	"context"
	"time"
)

// Repository stores inbox records.
type Repository interface {
	// Insert stores the record and fills its ID and CreatedAt.
	Insert(ctx context.Context, r *Record) error

	// CountBetween counts the user's records created in [from, to].
	CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error)

	// LastBetween returns the newest creation time in [from, to], or nil.
	LastBetween(ctx context.Context, userID string, from, to time.Time) (*time.Time, error)

	// ListRecent returns the newest records first.
	ListRecent(ctx context.Context, userID string, limit int) ([]Record, error)
}

// TauntRepository stores the taunt log.
type TauntRepository interface {
	Insert(ctx context.Context, t *TauntRecord) error
	CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error)

	// ListRecent returns the newest taunts first.
	ListRecent(ctx context.Context, userID string, limit int) ([]TauntRecord, error)
}

// PersonaRepository stores persona messages.
type PersonaRepository interface {
	Insert(ctx context.Context, m *PersonaMessage) error

	// Latest returns the newest message still valid at now, or nil.
	Latest(ctx context.Context, userID string, now time.Time) (*PersonaMessage, error)
}
