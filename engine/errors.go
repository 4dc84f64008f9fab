/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error conditions of the computation core in one place. Every condition
  here is local and recoverable: it is returned to the caller, never fatal.
  The HTTP layer maps these to status codes.

USAGE:
  if errors.Is(err, engine.ErrInsufficientBalance) {
      var ibe *engine.InsufficientBalanceError
      errors.As(err, &ibe) // ibe.Shortfall carries the missing amount
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a compensation usage request
	// exceeds the currently banked balance. Requests are never partially
	// fulfilled.
	ErrInsufficientBalance = errors.New("insufficient compensation balance")

	// ErrAlreadyApproved is returned on a re-approval attempt. The existing
	// approval state is left untouched.
	ErrAlreadyApproved = errors.New("request already approved")

	// ErrRequestSettled is returned when acting on a request that has already
	// been rejected. Rejected is terminal.
	ErrRequestSettled = errors.New("request already settled")

	// ErrRequestNotFound is returned for approval or lookup against a
	// nonexistent request. No state changes.
	ErrRequestNotFound = errors.New("compensation request not found")

	// ErrEntryNotFound is returned for operations on a nonexistent time entry.
	ErrEntryNotFound = errors.New("time entry not found")

	// ErrInvalidEntry marks a data error: clock-out before clock-in. The
	// entry contributes zero hours and is surfaced, never silently dropped.
	ErrInvalidEntry = errors.New("invalid entry: clock-out before clock-in")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidRequest is returned for requests with non-positive hours or
	// other malformed input.
	ErrInvalidRequest = errors.New("invalid compensation request")

	// ErrEntryClosed is returned on a second clock-out attempt.
	ErrEntryClosed = errors.New("entry already clocked out")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how far a usage request overdraws the
// banked compensation balance.
type InsufficientBalanceError struct {
	UserID    UserID
	Available Hours
	Requested Hours
	Shortfall Hours
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %s, requested %s, shortfall %s",
		e.UserID, e.Available.Value, e.Requested.Value, e.Shortfall.Value)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidEntry)
}

// IsConflict returns true if the error indicates a state-machine conflict:
// re-approving a settled request or clocking out twice.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyApproved) ||
		errors.Is(err, ErrRequestSettled) ||
		errors.Is(err, ErrEntryClosed)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) || errors.Is(err, ErrEntryNotFound)
}
