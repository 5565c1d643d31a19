// Package memory is an in-process booking store with the same claim and
// compare-and-set semantics as the postgres repository. Transactions are
// serialized by a single mutex and rolled back from a snapshot.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/repository"
)

type claimKey struct {
	showtime domain.ShowtimeKey
	seat     string
}

type claim struct {
	bookingID int64
	expiresAt *time.Time
}

type state struct {
	seq      int64
	bookings map[int64]domain.Booking
	codes    map[string]int64
	claims   map[claimKey]claim
}

func (s state) copy() state {
	cp := state{
		seq:      s.seq,
		bookings: make(map[int64]domain.Booking, len(s.bookings)),
		codes:    maps.Clone(s.codes),
		claims:   maps.Clone(s.claims),
	}
	for id, b := range s.bookings {
		cp.bookings[id] = b.Clone()
	}
	return cp
}

type Store struct {
	mu sync.Mutex
	st state
}

var (
	_ repository.BookingRepository = (*Store)(nil)
	_ repository.Transactor        = (*Store)(nil)
)

func New() *Store {
	return &Store{st: state{
		bookings: map[int64]domain.Booking{},
		codes:    map[string]int64{},
		claims:   map[claimKey]claim{},
	}}
}

// Do runs fn atomically. Any error restores the state seen on entry.
func (s *Store) Do(ctx context.Context, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var hooks []repository.AfterCommit

	s.mu.Lock()
	snapshot := s.st.copy()
	err := fn(ctx, &txRepo{st: &s.st}, func(h repository.AfterCommit) {
		hooks = append(hooks, h)
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

func (s *Store) locked(ctx context.Context, fn func(r *txRepo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txRepo{st: &s.st})
}

func (s *Store) Insert(ctx context.Context, b *domain.Booking) error {
	return s.Do(ctx, func(ctx context.Context, repo repository.BookingRepository, _ func(repository.AfterCommit)) error {
		return repo.Insert(ctx, b)
	})
}

func (s *Store) Get(ctx context.Context, id int64) (b domain.Booking, err error) {
	err = s.locked(ctx, func(r *txRepo) error {
		b, err = r.Get(ctx, id)
		return err
	})
	return b, err
}

func (s *Store) GetByCode(ctx context.Context, code string) (b domain.Booking, err error) {
	err = s.locked(ctx, func(r *txRepo) error {
		b, err = r.GetByCode(ctx, code)
		return err
	})
	return b, err
}

func (s *Store) ListAtShowtime(ctx context.Context, key domain.ShowtimeKey) (out []domain.Booking, err error) {
	err = s.locked(ctx, func(r *txRepo) error {
		out, err = r.ListAtShowtime(ctx, key)
		return err
	})
	return out, err
}

func (s *Store) ReleaseLapsedClaims(ctx context.Context, key domain.ShowtimeKey, now time.Time) (n int64, err error) {
	err = s.locked(ctx, func(r *txRepo) error {
		n, err = r.ReleaseLapsedClaims(ctx, key, now)
		return err
	})
	return n, err
}

func (s *Store) UpdateIfStatus(ctx context.Context, b domain.Booking, expected domain.Status) error {
	return s.Do(ctx, func(ctx context.Context, repo repository.BookingRepository, _ func(repository.AfterCommit)) error {
		return repo.UpdateIfStatus(ctx, b, expected)
	})
}

func (s *Store) ListLapsedHolds(ctx context.Context, now time.Time, limit int) (out []domain.Booking, err error) {
	err = s.locked(ctx, func(r *txRepo) error {
		out, err = r.ListLapsedHolds(ctx, now, limit)
		return err
	})
	return out, err
}

func (s *Store) ListPurgeable(ctx context.Context, before time.Time, limit int) (out []domain.Booking, err error) {
	err = s.locked(ctx, func(r *txRepo) error {
		out, err = r.ListPurgeable(ctx, before, limit)
		return err
	})
	return out, err
}

func (s *Store) DeleteIfStatus(ctx context.Context, id int64, status domain.Status) error {
	return s.locked(ctx, func(r *txRepo) error {
		return r.DeleteIfStatus(ctx, id, status)
	})
}

// txRepo operates on state owned by the caller's lock.
type txRepo struct {
	st *state
}

func (r *txRepo) Insert(ctx context.Context, b *domain.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, dup := r.st.codes[b.Code]; dup {
		return repository.ErrConflict
	}

	var taken []string
	for _, n := range b.SeatNumbers() {
		if _, ok := r.st.claims[claimKey{b.Showtime, n}]; ok {
			taken = append(taken, n)
		}
	}
	if len(taken) > 0 {
		return &repository.SeatsTakenError{Seats: taken}
	}

	r.st.seq++
	b.ID = r.st.seq
	r.st.bookings[b.ID] = b.Clone()
	r.st.codes[b.Code] = b.ID
	for _, n := range b.SeatNumbers() {
		r.st.claims[claimKey{b.Showtime, n}] = claim{bookingID: b.ID, expiresAt: b.HoldExpiresAt}
	}

	return nil
}

func (r *txRepo) Get(ctx context.Context, id int64) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}
	b, ok := r.st.bookings[id]
	if !ok {
		return domain.Booking{}, repository.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *txRepo) GetByCode(ctx context.Context, code string) (domain.Booking, error) {
	id, ok := r.st.codes[code]
	if !ok {
		return domain.Booking{}, repository.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *txRepo) ListAtShowtime(ctx context.Context, key domain.ShowtimeKey) ([]domain.Booking, error) {
	return r.list(ctx, 0, func(b domain.Booking) bool {
		if b.Showtime != key || b.Deleted {
			return false
		}
		switch b.Status {
		case domain.StatusHeld, domain.StatusPendingPayment, domain.StatusCompleted:
			return true
		}
		return false
	}, func(a, b domain.Booking) bool { return a.ID < b.ID })
}

func (r *txRepo) ReleaseLapsedClaims(ctx context.Context, key domain.ShowtimeKey, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	for k, c := range r.st.claims {
		if k.showtime == key && c.expiresAt != nil && c.expiresAt.Before(now) {
			delete(r.st.claims, k)
			n++
		}
	}
	return n, nil
}

func (r *txRepo) UpdateIfStatus(ctx context.Context, b domain.Booking, expected domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cur, ok := r.st.bookings[b.ID]
	if !ok || cur.Status != expected {
		return repository.ErrStale
	}

	switch {
	case b.Status == domain.StatusCancelled || b.Status == domain.StatusExpired:
		r.dropClaims(b.ID)
	case expected == domain.StatusHeld && b.Status != domain.StatusHeld:
		var live []claimKey
		for k, c := range r.st.claims {
			if c.bookingID == b.ID && c.expiresAt != nil {
				live = append(live, k)
			}
		}
		if len(live) != len(b.Seats) {
			return repository.ErrStale
		}
		for _, k := range live {
			r.st.claims[k] = claim{bookingID: b.ID}
		}
	}

	b.Code = cur.Code
	b.CreatedAt = cur.CreatedAt
	r.st.bookings[b.ID] = b.Clone()
	return nil
}

func (r *txRepo) ListLapsedHolds(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	return r.list(ctx, limit, func(b domain.Booking) bool {
		return !b.Deleted && b.Lapsed(now)
	}, func(a, b domain.Booking) bool { return a.HoldExpiresAt.Before(*b.HoldExpiresAt) })
}

func (r *txRepo) ListPurgeable(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	return r.list(ctx, limit, func(b domain.Booking) bool {
		return b.Status == domain.StatusExpired && b.DeletedAt != nil && b.DeletedAt.Before(before)
	}, func(a, b domain.Booking) bool { return a.DeletedAt.Before(*b.DeletedAt) })
}

func (r *txRepo) DeleteIfStatus(ctx context.Context, id int64, status domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, ok := r.st.bookings[id]
	if !ok || b.Status != status {
		return repository.ErrNotFound
	}
	r.dropClaims(id)
	delete(r.st.codes, b.Code)
	delete(r.st.bookings, id)
	return nil
}

func (r *txRepo) dropClaims(id int64) {
	for k, c := range r.st.claims {
		if c.bookingID == id {
			delete(r.st.claims, k)
		}
	}
}

func (r *txRepo) list(
	ctx context.Context,
	limit int,
	match func(domain.Booking) bool,
	less func(a, b domain.Booking) bool,
) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.Booking
	for _, b := range r.st.bookings {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
