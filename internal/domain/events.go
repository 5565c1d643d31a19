package domain

import "time"

type EventType string

const (
	EventHeld          EventType = "booking.held"
	EventExtrasUpdated EventType = "booking.extras_updated"
	EventConfirmed     EventType = "booking.confirmed"
	EventPaid          EventType = "booking.paid"
	EventCancelled     EventType = "booking.cancelled"
	EventExpired       EventType = "booking.expired"
	EventPurged        EventType = "booking.purged"
)

// BookingEvent is the lifecycle notification published after a commit.
type BookingEvent struct {
	Type        EventType   `json:"type"`
	BookingID   int64       `json:"bookingId"`
	BookingCode string      `json:"bookingCode"`
	Status      Status      `json:"status"`
	Showtime    ShowtimeKey `json:"showtime"`
	Seats       []string    `json:"seats"`
	Total       int64       `json:"total"`
	OccurredAt  time.Time   `json:"occurredAt"`
}

func NewBookingEvent(t EventType, b Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        t,
		BookingID:   b.ID,
		BookingCode: b.Code,
		Status:      b.Status,
		Showtime:    b.Showtime,
		Seats:       b.SeatNumbers(),
		Total:       b.Total,
		OccurredAt:  at,
	}
}
