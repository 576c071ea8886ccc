package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrStateConflict         = errors.New("state conflict")
	ErrQuoteExpired          = errors.New("quote expired")
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrDuplicateTransaction  = errors.New("duplicate transaction")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrLockTimeout           = errors.New("lock wait timed out, retry later")
	ErrConcurrentUpdate      = errors.New("booking was modified concurrently")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StateConflictError is returned for every illegal lifecycle transition.
type StateConflictError struct {
	Current   BookingStatus
	Requested BookingStatus
	Operation string
}

func (e *StateConflictError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("cannot %s: booking is %s, requested %s", e.Operation, e.Current, e.Requested)
	}
	return fmt.Sprintf("illegal transition %s -> %s", e.Current, e.Requested)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

// IsRetryable marks errors a caller may safely retry because reconciliation
// is idempotent by transaction id.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrSignatureVerification),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrStateConflict),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrQuoteExpired):
		return false
	}
	return true
}
