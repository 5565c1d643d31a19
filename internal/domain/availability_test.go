package domain_test

import (
	"testing"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/stretchr/testify/assert"
)

func booking(status domain.Status, seats ...string) domain.Booking {
	b := domain.Booking{Status: status}
	for _, s := range seats {
		b.Seats = append(b.Seats, domain.Seat{Number: s, Type: domain.SeatStandard, Price: 50000})
	}
	if status == domain.StatusHeld {
		exp := t0.Add(10 * time.Minute)
		b.HoldExpiresAt = &exp
	}
	return b
}

func TestCheckAvailability(t *testing.T) {
	lapsed := booking(domain.StatusHeld, "C1")
	past := t0.Add(-time.Minute)
	lapsed.HoldExpiresAt = &past

	deleted := booking(domain.StatusPendingPayment, "D1")
	deleted.Deleted = true

	bookings := []domain.Booking{
		booking(domain.StatusHeld, "A1", "A2"),
		booking(domain.StatusPendingPayment, "B1"),
		booking(domain.StatusCompleted, "B2"),
		booking(domain.StatusCancelled, "E1"),
		booking(domain.StatusExpired, "E2"),
		lapsed,
		deleted,
	}

	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{"free seats", []string{"C1", "D1", "E1", "E2", "F9"}, []string{}},
		{"every conflict named", []string{"A2", "Z1", "B1", "B2", "A1"}, []string{"A2", "B1", "B2", "A1"}},
		{"duplicates reported once", []string{"A1", "A1"}, []string{"A1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.CheckAvailability(bookings, tt.requested, t0)
			assert.Equal(t, len(tt.want) == 0, got.Available)
			assert.Equal(t, tt.want, got.ConflictingSeats)
		})
	}
}

func TestOccupiedSeats_LazyExpiry(t *testing.T) {
	b := booking(domain.StatusHeld, "A1")

	assert.Equal(t, []string{"A1"}, domain.OccupiedSeats([]domain.Booking{b}, t0.Add(9*time.Minute)))
	assert.Empty(t, domain.OccupiedSeats([]domain.Booking{b}, t0.Add(11*time.Minute)))
}

func TestHoldLapsed(t *testing.T) {
	exp := t0
	assert.False(t, domain.HoldLapsed(domain.StatusHeld, &exp, t0))
	assert.True(t, domain.HoldLapsed(domain.StatusHeld, &exp, t0.Add(time.Nanosecond)))
	assert.False(t, domain.HoldLapsed(domain.StatusHeld, nil, t0.Add(time.Hour)))
	assert.False(t, domain.HoldLapsed(domain.StatusPendingPayment, &exp, t0.Add(time.Hour)))
}
