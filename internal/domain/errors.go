package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed input. Problems carries one entry per
// offending field or seat so clients never have to parse Error().
type ValidationError struct {
	Field    string
	Problems []string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + strings.Join(e.Problems, "; ")
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, strings.Join(e.Problems, "; "))
}

func invalid(field string, problems ...string) *ValidationError {
	return &ValidationError{Field: field, Problems: problems}
}

// ConflictError means some requested seats are held by a live booking.
type ConflictError struct {
	Showtime ShowtimeKey
	Seats    []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Seats, ", "))
}

// InvalidStateError means the transition is not legal from the current status.
type InvalidStateError struct {
	BookingID int64
	Status    Status
	Action    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s booking %d in status %s", e.Action, e.BookingID, e.Status)
}

// ExpiredError means the hold lapsed before the requested action.
type ExpiredError struct {
	BookingID int64
	ExpiredAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("hold on booking %d expired at %s", e.BookingID, e.ExpiredAt.Format(time.RFC3339))
}

// StoreUnavailableError wraps timeouts and connectivity failures of the store.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsExpired(err error) bool {
	var ee *ExpiredError
	return errors.As(err, &ee)
}

func IsInvalidState(err error) bool {
	var ie *InvalidStateError
	return errors.As(err, &ie)
}
