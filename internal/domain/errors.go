package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not permitted for this user")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrStateConflict   = errors.New("invalid state for this action")
	ErrUnavailable     = errors.New("dates are not available")
)

// ValidationError carries a human-readable reason and unwraps to ErrValidation.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StateConflictError reports an action attempted against a rental whose
// current lifecycle state does not allow it.
type StateConflictError struct {
	RentalID string
	Action   string
	Current  RentalStatus
	Reason   string
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("cannot %s rental %s: current status is %s", e.Action, e.RentalID, e.Current)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// UnavailableError lists what blocks the requested range.
type UnavailableError struct {
	Conflicts         []Conflict
	NextAvailableDate *Date
}

func (e *UnavailableError) Error() string {
	if len(e.Conflicts) == 0 {
		return "requested dates are no longer available"
	}
	return fmt.Sprintf("requested dates conflict with %d existing booking(s) or block(s)", len(e.Conflicts))
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }
