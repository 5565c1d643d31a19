package domain

import "time"

type Availability struct {
	Available        bool     `json:"available"`
	ConflictingSeats []string `json:"conflictingSeats"`
}

// Occupies reports whether b currently holds its seats: not deleted, in an
// occupying status, and not a lapsed hold.
func Occupies(b Booking, now time.Time) bool {
	if b.Deleted {
		return false
	}
	switch b.Status {
	case StatusHeld, StatusPendingPayment, StatusCompleted:
	default:
		return false
	}
	return !b.Lapsed(now)
}

// OccupiedSeats flattens the seats of every occupying booking.
func OccupiedSeats(bookings []Booking, now time.Time) []string {
	out := []string{}
	for _, b := range bookings {
		if !Occupies(b, now) {
			continue
		}
		out = append(out, b.SeatNumbers()...)
	}
	return out
}

// CheckAvailability intersects requested with the occupied seats and names
// every conflicting seat in request order.
func CheckAvailability(bookings []Booking, requested []string, now time.Time) Availability {
	taken := make(map[string]struct{})
	for _, s := range OccupiedSeats(bookings, now) {
		taken[s] = struct{}{}
	}

	conflicts := []string{}
	reported := make(map[string]struct{})
	for _, s := range requested {
		if _, ok := taken[s]; !ok {
			continue
		}
		if _, dup := reported[s]; dup {
			continue
		}
		reported[s] = struct{}{}
		conflicts = append(conflicts, s)
	}

	return Availability{
		Available:        len(conflicts) == 0,
		ConflictingSeats: conflicts,
	}
}
