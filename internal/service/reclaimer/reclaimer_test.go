package reclaimer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/repository"
	"github.com/kirinyoku/cinema-booking/internal/repository/memory"
	"github.com/kirinyoku/cinema-booking/internal/service/reclaimer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *memory.Store, code string, createdAt time.Time, seat string) domain.Booking {
	t.Helper()

	b, err := domain.NewBooking(domain.NewBookingParams{
		Code:     code,
		Showtime: domain.ShowtimeKey{MovieID: "m-1", Cinema: "CGV", Date: "2025-03-01", Time: "19:30"},
		Seats:    []domain.Seat{{Number: seat, Type: domain.SeatStandard, Price: 50000}},
	}, createdAt)
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), &b))
	return b
}

func at(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestExpireOnce(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	old := seed(t, s, "BK-OLD", t0.Add(-11*time.Minute), "A1")
	live := seed(t, s, "BK-LIVE", t0.Add(-time.Minute), "A2")

	r := reclaimer.New(s, s, nil, nil, reclaimer.Config{Now: at(t0)})

	rep, err := r.ExpireOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, reclaimer.Report{Scanned: 1, Expired: 1}, rep)

	got, err := s.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)
	assert.True(t, got.Deleted)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, t0, *got.DeletedAt)

	got, err = s.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHeld, got.Status)

	// second run has nothing to do
	rep, err = r.ExpireOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, reclaimer.Report{}, rep)
}

func TestExpireOnce_Batches(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	for i, seat := range []string{"B1", "B2", "B3", "B4", "B5"} {
		seed(t, s, "BK-"+seat, t0.Add(-time.Hour+time.Duration(i)*time.Second), seat)
	}

	r := reclaimer.New(s, s, nil, nil, reclaimer.Config{Now: at(t0), BatchSize: 2})

	rep, err := r.ExpireOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Expired)
}

// flakyTx fails every transaction that touches booking id.
type flakyTx struct {
	inner repository.Transactor
	id    int64
}

type flakyRepo struct {
	repository.BookingRepository
	id int64
}

var errFlaky = errors.New("connection reset")

func (r flakyRepo) UpdateIfStatus(ctx context.Context, b domain.Booking, expected domain.Status) error {
	if b.ID == r.id {
		return errFlaky
	}
	return r.BookingRepository.UpdateIfStatus(ctx, b, expected)
}

func (f flakyTx) Do(ctx context.Context, fn repository.TxFunc) error {
	return f.inner.Do(ctx, func(ctx context.Context, repo repository.BookingRepository, after func(repository.AfterCommit)) error {
		return fn(ctx, flakyRepo{BookingRepository: repo, id: f.id}, after)
	})
}

func TestExpireOnce_PartialFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	bad := seed(t, s, "BK-BAD", t0.Add(-time.Hour), "C1")
	good := seed(t, s, "BK-GOOD", t0.Add(-time.Hour+time.Second), "C2")

	r := reclaimer.New(flakyTx{inner: s, id: bad.ID}, s, nil, nil, reclaimer.Config{Now: at(t0), BatchSize: 1})

	rep, err := r.ExpireOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, reclaimer.Report{Scanned: 2, Expired: 1, Failed: 1}, rep)

	got, err := s.Get(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	got, err = s.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHeld, got.Status)
}

func TestExpireOnce_SkipsConfirmedMeanwhile(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	b := seed(t, s, "BK-RACE", t0.Add(-11*time.Minute), "D1")

	// listed as lapsed, but confirmed before the expiry transaction runs
	confirmed := b.Clone()
	confirmed.Status = domain.StatusPendingPayment
	confirmed.HoldExpiresAt = nil
	confirmed.Customer = domain.Customer{FullName: "A", Phone: "0987654321"}
	tx := racingTx{inner: s, before: func() {
		require.NoError(t, s.UpdateIfStatus(ctx, confirmed, domain.StatusHeld))
	}}

	r := reclaimer.New(tx, s, nil, nil, reclaimer.Config{Now: at(t0)})

	rep, err := r.ExpireOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, reclaimer.Report{Scanned: 1, Skipped: 1}, rep)

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, got.Status)
}

type racingTx struct {
	inner  repository.Transactor
	before func()
}

func (r racingTx) Do(ctx context.Context, fn repository.TxFunc) error {
	r.before()
	return r.inner.Do(ctx, fn)
}

func TestPurgeOnce(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	old := seed(t, s, "BK-OLD", t0.Add(-48*time.Hour), "E1")
	recent := seed(t, s, "BK-RECENT", t0.Add(-2*time.Hour), "E2")
	held := seed(t, s, "BK-HELD", t0, "E3")

	expireAt := func(now time.Time) {
		r := reclaimer.New(s, s, nil, nil, reclaimer.Config{Now: at(now)})
		_, err := r.ExpireOnce(ctx)
		require.NoError(t, err)
	}
	expireAt(t0.Add(-47 * time.Hour))
	expireAt(t0.Add(-time.Hour))

	r := reclaimer.New(s, s, nil, nil, reclaimer.Config{Now: at(t0)})
	rep, err := r.PurgeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, reclaimer.Report{Scanned: 1, Purged: 1}, rep)

	_, err = s.Get(ctx, old.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := s.Get(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	got, err = s.Get(ctx, held.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHeld, got.Status)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := memory.New()
	seed(t, s, "BK-OLD", time.Now().Add(-time.Hour), "F1")

	r := reclaimer.New(s, s, nil, nil, reclaimer.Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		lapsed, err := s.ListLapsedHolds(context.Background(), time.Now(), 10)
		return err == nil && len(lapsed) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reclaimer did not stop")
	}
}
