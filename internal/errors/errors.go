// Package errors defines the error taxonomy shared by the ledger core.
//
// Callers distinguish four recoverable-vs-fatal categories:
// validation failures, insufficient funds, invalid state transitions and
// consistency violations. The first three leave state untouched and are
// surfaced to the caller; a consistency violation is fatal for the
// enclosing operation and must reach an operator, never be auto-corrected.
package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinels for errors.Is matching.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrForbidden         = errors.New("forbidden")
)

// ValidationError reports malformed or out-of-bounds input with field-level
// detail. No state change occurred.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for a single field.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InsufficientFundsError carries the available and required amounts so the
// caller can show both. Matches ErrInsufficientFunds via errors.Is.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, required %s",
		e.Available.String(), e.Required.String())
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// InvalidStateError reports a transition attempted from a state that does
// not permit it.
type InvalidStateError struct {
	Current   string
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s from %s", e.Attempted, e.Current)
}

// IsInvalidState reports whether err is (or wraps) an InvalidStateError.
func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}

// ConsistencyError marks a fatal divergence between stored and recomputed
// state (drifted derived totals, a lock referencing a missing wallet).
// It halts the operation and must be surfaced to an operator channel.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string {
	return "consistency error: " + e.Message
}

// NewConsistency builds a ConsistencyError.
func NewConsistency(format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Message: fmt.Sprintf(format, args...)}
}

// IsConsistency reports whether err is (or wraps) a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
