package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/repository"
	"github.com/kirinyoku/cinema-booking/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0  = time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	key = domain.ShowtimeKey{MovieID: "m1", Cinema: "Hall 1", Date: "2025-03-01", Time: "19:30"}
)

func held(t *testing.T, code string, seats ...string) *domain.Booking {
	t.Helper()

	p := domain.NewBookingParams{Code: code, Showtime: key}
	for _, s := range seats {
		p.Seats = append(p.Seats, domain.Seat{Number: s, Type: domain.SeatStandard, Price: 50000})
	}
	b, err := domain.NewBooking(p, t0)
	require.NoError(t, err)
	return &b
}

func TestInsert_SeatClaims(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	a := held(t, "BK-A", "A1", "A2")
	require.NoError(t, s.Insert(ctx, a))
	assert.EqualValues(t, 1, a.ID)

	err := s.Insert(ctx, held(t, "BK-B", "A3", "A2", "A1"))
	var taken *repository.SeatsTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, []string{"A2", "A1"}, taken.Seats)

	assert.ErrorIs(t, s.Insert(ctx, held(t, "BK-A", "Z9")), repository.ErrConflict)

	other := held(t, "BK-C", "A1")
	other.Showtime.Time = "21:30"
	assert.NoError(t, s.Insert(ctx, other))
}

func TestReleaseLapsedClaims(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	a := held(t, "BK-A", "A1")
	require.NoError(t, s.Insert(ctx, a))

	n, err := s.ReleaseLapsedClaims(ctx, key, t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.ReleaseLapsedClaims(ctx, key, t0.Add(11*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// a lost its claim, so it can no longer leave the held state
	confirmed := a.Clone()
	confirmed.Status = domain.StatusPendingPayment
	confirmed.HoldExpiresAt = nil
	assert.ErrorIs(t, s.UpdateIfStatus(ctx, confirmed, domain.StatusHeld), repository.ErrStale)

	assert.NoError(t, s.Insert(ctx, held(t, "BK-B", "A1")))
}

func TestUpdateIfStatus(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	a := held(t, "BK-A", "A1")
	require.NoError(t, s.Insert(ctx, a))

	confirmed := a.Clone()
	confirmed.Status = domain.StatusPendingPayment
	confirmed.HoldExpiresAt = nil
	require.NoError(t, s.UpdateIfStatus(ctx, confirmed, domain.StatusHeld))
	assert.ErrorIs(t, s.UpdateIfStatus(ctx, confirmed, domain.StatusHeld), repository.ErrStale)

	// confirmed claims no longer carry an expiry
	n, err := s.ReleaseLapsedClaims(ctx, key, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	cancelled, err := domain.Cancel(confirmed, t0.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.UpdateIfStatus(ctx, cancelled, domain.StatusPendingPayment))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.NoError(t, s.Insert(ctx, held(t, "BK-B", "A1")))
}

func TestDo_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	boom := errors.New("boom")
	hookRan := false

	err := s.Do(ctx, func(ctx context.Context, repo repository.BookingRepository, after func(repository.AfterCommit)) error {
		require.NoError(t, repo.Insert(ctx, held(t, "BK-A", "A1")))
		after(func(context.Context) { hookRan = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	_, err = s.GetByCode(ctx, "BK-A")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, s.Insert(ctx, held(t, "BK-B", "A1")))
}

func TestListLapsedAndPurge(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	a := held(t, "BK-A", "A1")
	require.NoError(t, s.Insert(ctx, a))

	lapsed, err := s.ListLapsedHolds(ctx, t0.Add(11*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, lapsed, 1)

	expired, err := domain.Expire(lapsed[0], t0.Add(11*time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.UpdateIfStatus(ctx, expired, domain.StatusHeld))

	purgeable, err := s.ListPurgeable(ctx, t0.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, purgeable, 1)

	require.NoError(t, s.DeleteIfStatus(ctx, a.ID, domain.StatusExpired))
	assert.ErrorIs(t, s.DeleteIfStatus(ctx, a.ID, domain.StatusExpired), repository.ErrNotFound)
}
