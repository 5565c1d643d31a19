package repository

import (
	"context"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
)

// BookingRepository is the durable store of bookings and their seat claims.
// A seat claim exists for every seat of a booking that is not cancelled or
// expired; claims are unique per (showtime, seat number).
type BookingRepository interface {
	// Insert stores b with its seat claims and sets b.ID.
	// Returns *SeatsTakenError on seat collisions and ErrConflict on a
	// duplicate booking code.
	Insert(ctx context.Context, b *domain.Booking) error

	Get(ctx context.Context, id int64) (domain.Booking, error)
	GetByCode(ctx context.Context, code string) (domain.Booking, error)

	// ListAtShowtime returns non-deleted bookings in an occupying status,
	// lapsed holds included.
	ListAtShowtime(ctx context.Context, key domain.ShowtimeKey) ([]domain.Booking, error)

	// ReleaseLapsedClaims drops the seat claims of holds at key that lapsed
	// before now. Booking status is left to the reclaimer.
	ReleaseLapsedClaims(ctx context.Context, key domain.ShowtimeKey, now time.Time) (int64, error)

	// UpdateIfStatus persists b only if the stored status still equals
	// expected. A record leaving the held state must still own its claims.
	// Entering cancelled or expired drops the claims. Returns ErrStale when
	// the condition fails.
	UpdateIfStatus(ctx context.Context, b domain.Booking, expected domain.Status) error

	ListLapsedHolds(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
	ListPurgeable(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error)

	// DeleteIfStatus removes the record permanently when its status matches.
	DeleteIfStatus(ctx context.Context, id int64, status domain.Status) error
}

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// TxFunc runs inside a transaction; repo is bound to it.
type TxFunc func(ctx context.Context, repo BookingRepository, after func(AfterCommit)) error

// Transactor runs a TxFunc atomically and fires its after-commit hooks.
type Transactor interface {
	Do(ctx context.Context, fn TxFunc) error
}
