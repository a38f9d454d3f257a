package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the classification and posting
// packages wraps exactly one of these so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when a tenant, account, rule or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input that must be rejected for a single item.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence is returned when the underlying store fails during a write.
	ErrPersistence = errors.New("persistence failure")

	// ErrAlreadyPosted is returned when a transaction already has journal lines.
	ErrAlreadyPosted = fmt.Errorf("%w: transaction already has journal lines", ErrValidation)
)

// ErrorKind names one of the error categories above.
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindValidation  ErrorKind = "validation"
	KindPersistence ErrorKind = "persistence"
	KindUnknown     ErrorKind = "unknown"
)

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Persistence wraps a store error with ErrPersistence.
// Errors that already carry a kind are returned unchanged.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// KindOf reports the category of err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindUnknown
	}
}
