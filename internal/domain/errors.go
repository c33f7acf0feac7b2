package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrValidation                = errors.New("validation failed")
	ErrAccessDenied              = errors.New("access denied")
	ErrInvalidTransition         = errors.New("invalid transition")
	ErrDuplicatePayment          = errors.New("payment already processed")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrAmountMismatch            = errors.New("verified amount does not match claimed amount")

	// Retryable
	ErrConcurrentUpdate        = errors.New("concurrent update, retry")
	ErrVerificationUnavailable = errors.New("payment verification service unavailable")
	ErrStorageUnavailable      = errors.New("storage unavailable")
)

// TransitionError carries the attempted action and the status it was attempted from.
type TransitionError struct {
	Action SessionAction
	Status SessionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s a session in status %s", e.Action, e.Status)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsRetryable reports whether the caller may safely retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrVerificationUnavailable) ||
		errors.Is(err, ErrStorageUnavailable)
}
