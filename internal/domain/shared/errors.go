// Package shared holds the error kinds every layer agrees on. Transports
// map a kind to a status code; domain packages attach context with
// DomainError.
package shared

import (
	"errors"
	"fmt"
)

// Kinds. Match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")
	ErrOutOfRange   = errors.New("value out of range")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError is a kind plus where it happened. Message is safe to show
// to API callers; Err is the underlying cause, if any.
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches both the kind and the cause, so a wrapped driver error stays
// visible to errors.Is alongside the kind.
func (e *DomainError) Is(target error) bool {
	return (e.Kind != nil && errors.Is(e.Kind, target)) ||
		(e.Err != nil && errors.Is(e.Err, target))
}

func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// ══════════════════════════════════════════════════════════════════════════════
// PACE
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNoProgressRows = NewDomainError("pace", "Smooth", ErrNotFound, "No progress rows")
	ErrNoDailyRow     = NewDomainError("pace", "Adjust", ErrNotFound, "No daily progress row found")
	ErrEmptySeries    = NewDomainError("pace", "EMA", ErrInvalidInput, "series is empty")
	ErrInvalidAlpha   = NewDomainError("pace", "EMA", ErrOutOfRange, "alpha must be in (0, 1]")
	ErrInvalidClamp   = NewDomainError("pace", "Clamp", ErrOutOfRange, "clamp min must not exceed max")
	ErrConfigInvalid  = NewDomainError("pace", "ResolveConfig", ErrValidation, "invalid shadow config")

	ErrEventNotFound  = NewDomainError("alignment", "Complete", ErrNotFound, "Not found")
	ErrEventForbidden = NewDomainError("alignment", "Complete", ErrForbidden, "Forbidden")

	ErrProfileNotFound = NewDomainError("persona", "Find", ErrNotFound, "No shadow_profile")
	ErrEmptyMessage    = NewDomainError("notification", "Validate", ErrInvalidInput, "title and body are required")
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTH
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrMissingUser    = NewDomainError("auth", "Resolve", ErrUnauthorized, "Unauthorized")
	ErrInvalidSession = NewDomainError("auth", "Verify", ErrUnauthorized, "Unauthorized")
	ErrCronSecret     = NewDomainError("auth", "CronSecret", ErrForbidden, "Forbidden")
)

// ══════════════════════════════════════════════════════════════════════════════
// TEXT GENERATION
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrTextGenUnavailable = NewDomainError("textgen", "Generate", ErrServiceUnavailable, "text generation unavailable")
	ErrTextGenEmpty       = NewDomainError("textgen", "Generate", ErrExternalService, "text generation returned no text")
	ErrTextGenRateLimited = NewDomainError("textgen", "Generate", ErrRateLimited, "text generation rate limited")
)

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsRateLimited(err error) bool  { return errors.Is(err, ErrRateLimited) }

// IsValidation covers every kind a caller can fix by changing the request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrOutOfRange)
}
