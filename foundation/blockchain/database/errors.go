package database

import (
	"errors"
	"fmt"
)

// ValidationError is returned when an operation is rejected before it changes
// any state. The surrounding transaction is discarded.
type ValidationError struct {
	Err error
}

// Validationf constructs a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	return "validation: " + ve.Err.Error()
}

// Unwrap returns the underlying error.
func (ve *ValidationError) Unwrap() error {
	return ve.Err
}

// IsValidationError checks if an error of type ValidationError exists.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// =============================================================================

// InvariantViolation is returned when state would break an invariant the
// ledger guarantees. It aborts the whole block.
type InvariantViolation struct {
	Err error
}

// Invariantf constructs an InvariantViolation from a format string.
func Invariantf(format string, args ...any) error {
	return &InvariantViolation{Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (iv *InvariantViolation) Error() string {
	return "invariant violation: " + iv.Err.Error()
}

// Unwrap returns the underlying error.
func (iv *InvariantViolation) Unwrap() error {
	return iv.Err
}

// IsInvariantViolation checks if an error of type InvariantViolation exists.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
