/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is/errors.As; the HTTP layer maps each
  category to a status code.

ERROR CATEGORIES:
  1. Validation errors - user-correctable rule violations, collected
  2. InsufficientBalance - raised only by the ledger's reserve primitive
  3. IllegalTransition - a transition from a terminal or mismatched state
  4. Unauthorized - the external authorization fact said no

SEE ALSO:
  - ledger.go: raises InsufficientBalanceError
  - lifecycle.go: raises IllegalTransitionError / ErrUnauthorized
  - validator.go: builds ValidationResult (not an error type; a report)
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a reservation would drive
	// the derived available quantity below zero. It is the only
	// business-rule failure the ledger itself surfaces.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrIllegalTransition is returned when a request is asked to leave
	// a state it is not in - including the race where a concurrent
	// transition got there first.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrUnauthorized is returned when the external authorization fact
	// denies the actor the attempted transition.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned when a create is attempted with input
	// that fails the validation rule set.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a balance shortage at reserve time.
type InsufficientBalanceError struct {
	Key       BalanceKey
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s/%s/%d: available %s, requested %s",
		e.Key.EmployeeID, e.Key.LeaveTypeID, e.Key.Year,
		e.Available.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// IllegalTransitionError reports a rejected status transition.
type IllegalTransitionError struct {
	RequestID string
	From      RequestStatus
	Action    string // "approve", "reject", "cancel"
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %q", e.Action, e.RequestID, e.From)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than an engine fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
