package repository

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrStale       = errors.New("record changed since it was read")
	ErrUnavailable = errors.New("store unavailable")
)

// SeatsTakenError is returned by Insert when seat claims collide with a live
// booking at the same showtime.
type SeatsTakenError struct {
	Seats []string
}

func (e *SeatsTakenError) Error() string {
	return fmt.Sprintf("seats already claimed: %s", strings.Join(e.Seats, ", "))
}
