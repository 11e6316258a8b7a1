package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ledger. Callers classify with errors.Is; every
// returned error wraps exactly one of these (or is a *ValidationError).
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("not in pending status")
	ErrInvariantViolation = errors.New("would result in negative inventory")
	ErrConflict           = errors.New("concurrent modification conflict")
	ErrDuplicateCode      = errors.New("item code already exists")
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a *ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether err is a concurrent-writer conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// ErrorKind names the taxonomy bucket of err for logs.
func ErrorKind(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrDuplicateCode):
		return "duplicate_code"
	default:
		return "internal"
	}
}
