package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/catalog"
	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/repository"
	redisrepo "github.com/kirinyoku/cinema-booking/internal/repository/redis"
	"github.com/kirinyoku/cinema-booking/internal/service/notify"
)

const maxCodeAttempts = 3

type Catalog interface {
	GetShowtimeAndPricing(ctx context.Context, key domain.ShowtimeKey) (*domain.ShowtimePricing, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type Config struct {
	HoldDuration  time.Duration
	StoreTimeout  time.Duration
	SeatsCacheTTL time.Duration
	// Menu prices extras; empty disables menu checks.
	Menu    map[string]domain.Combo
	Now     func() time.Time
	NewCode func(now time.Time) string
}

// Deps are the collaborators of the service. Catalog, Cache, Limiter and
// Notifier may be nil.
type Deps struct {
	Tx       repository.Transactor
	Repo     repository.BookingRepository
	Catalog  Catalog
	Cache    *redisrepo.Cache
	Limiter  RateLimiter
	Notifier *notify.Notifier
	Log      *slog.Logger
}

type Service struct {
	tx       repository.Transactor
	repo     repository.BookingRepository
	catalog  Catalog
	cache    *redisrepo.Cache
	limiter  RateLimiter
	notifier *notify.Notifier
	log      *slog.Logger
	cfg      Config
}

func New(deps Deps, cfg Config) *Service {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = domain.DefaultHoldDuration
	}

	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	if cfg.SeatsCacheTTL <= 0 {
		cfg.SeatsCacheTTL = 5 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewCode == nil {
		cfg.NewCode = domain.NewBookingCode
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		tx:       deps.Tx,
		repo:     deps.Repo,
		catalog:  deps.Catalog,
		cache:    deps.Cache,
		limiter:  deps.Limiter,
		notifier: deps.Notifier,
		log:      log,
		cfg:      cfg,
	}
}

type CreateInput struct {
	UserID        string
	Showtime      domain.ShowtimeKey
	Seats         []domain.Seat
	Extras        map[string]domain.ExtraRequest
	Customer      *domain.Customer
	PaymentMethod string
	// ClientKey identifies the caller for rate limiting.
	ClientKey string
}

// Create places a hold on the requested seats.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: showtime, seats with the prices the client saw, optional extras and customer.
//
// Returns:
//   - domain.Booking: the new held booking.
//   - error: *domain.ValidationError on malformed input or price mismatches.
//   - error: *domain.ConflictError naming every seat held by a live booking.
//   - error: booking.ErrShowtimeNotFound / booking.ErrMovieNotFound from the catalog.
//   - error: *booking.RateLimitedError when the caller exceeded its quota.
//   - error: *domain.StoreUnavailableError on store timeouts.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	const op = "service.booking.Create"

	if err := s.allow(ctx, in.ClientKey); err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
	}

	now := s.cfg.Now()

	b, err := domain.NewBooking(domain.NewBookingParams{
		Code:          s.cfg.NewCode(now),
		UserID:        in.UserID,
		Showtime:      in.Showtime,
		Seats:         in.Seats,
		Customer:      in.Customer,
		PaymentMethod: in.PaymentMethod,
		HoldDuration:  s.cfg.HoldDuration,
	}, now)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.applyPricing(ctx, &b); err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
	}

	if len(in.Extras) > 0 {
		if b, err = domain.AttachExtras(b, in.Extras, s.cfg.Menu, now); err != nil {
			return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
		}
	}

	avail, err := s.checkAvailability(ctx, b.Showtime, b.SeatNumbers())
	if err != nil {
		return domain.Booking{}, s.storeErr(op, err)
	}
	if !avail.Available {
		return domain.Booking{}, fmt.Errorf("%s:%w", op,
			&domain.ConflictError{Showtime: b.Showtime, Seats: avail.ConflictingSeats})
	}

	for attempt := 1; ; attempt++ {
		err = s.insert(ctx, &b)
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		if attempt == maxCodeAttempts {
			return domain.Booking{}, fmt.Errorf("%s:%w", op, ErrCodeExhausted)
		}
		s.log.Warn("booking code collision, retrying", "code", b.Code, "attempt", attempt)
		b.Code = s.cfg.NewCode(s.cfg.Now())
	}
	if err != nil {
		var taken *repository.SeatsTakenError
		if errors.As(err, &taken) {
			return domain.Booking{}, fmt.Errorf("%s:%w", op,
				&domain.ConflictError{Showtime: b.Showtime, Seats: taken.Seats})
		}

		return domain.Booking{}, s.storeErr(op, err)
	}

	s.log.Info("booking held",
		"booking_id", b.ID,
		"booking_code", b.Code,
		"seats", b.SeatNumbers(),
		"hold_expires_at", b.HoldExpiresAt,
	)

	return b, nil
}

func (s *Service) insert(ctx context.Context, b *domain.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	nb := b.Clone()

	err := s.tx.Do(ctx, func(
		ctx context.Context,
		repo repository.BookingRepository,
		after func(repository.AfterCommit),
	) error {
		// lapsed holds give their seats back before we claim them
		if _, err := repo.ReleaseLapsedClaims(ctx, nb.Showtime, s.cfg.Now()); err != nil {
			return err
		}

		if err := repo.Insert(ctx, &nb); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.changed(ctx, domain.EventHeld, nb)
		})

		return nil
	})
	if err != nil {
		return err
	}

	*b = nb
	return nil
}

func (s *Service) applyPricing(ctx context.Context, b *domain.Booking) error {
	if s.catalog == nil {
		return nil
	}

	p, err := s.catalog.GetShowtimeAndPricing(ctx, b.Showtime)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrMovieNotFound):
			return ErrMovieNotFound
		case errors.Is(err, catalog.ErrShowtimeNotFound):
			return ErrShowtimeNotFound
		default:
			return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
	}

	if err := domain.ValidateSeatPrices(b.Seats, p.SeatPrices); err != nil {
		return err
	}

	b.MovieName = p.MovieName
	b.MovieAvatar = p.MovieAvatar
	if p.FormatLabel != "" {
		b.Format = p.FormatLabel
	}

	return nil
}

func (s *Service) allow(ctx context.Context, clientKey string) error {
	if s.limiter == nil || clientKey == "" {
		return nil
	}

	ok, _, retry, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		s.log.Warn("rate limiter unavailable, allowing request", "client", clientKey, "err", err)
		return nil
	}
	if !ok {
		return &RateLimitedError{RetryAfter: retry}
	}

	return nil
}

// AttachExtras replaces the combos of a held or pending booking.
//
// Returns:
//   - error: *domain.InvalidStateError outside held / confirmed_pending_payment.
//   - error: *domain.ExpiredError if the hold lapsed; the booking is stored as expired.
//   - error: *domain.ValidationError on malformed or mispriced combos.
func (s *Service) AttachExtras(ctx context.Context, id int64, extras map[string]domain.ExtraRequest) (domain.Booking, error) {
	return s.transition(ctx, "service.booking.AttachExtras", id, domain.EventExtrasUpdated,
		func(b domain.Booking, now time.Time) (domain.Booking, error) {
			return domain.AttachExtras(b, extras, s.cfg.Menu, now)
		})
}

type ConfirmInput struct {
	Customer      domain.Customer
	PaymentMethod string
}

// Confirm records customer details and moves a live hold to pending payment.
//
// Returns:
//   - error: *domain.InvalidStateError unless the booking is held.
//   - error: *domain.ExpiredError if the hold lapsed; the booking is stored as expired.
//   - error: *domain.ValidationError on missing or malformed customer details.
func (s *Service) Confirm(ctx context.Context, id int64, in ConfirmInput) (domain.Booking, error) {
	return s.transition(ctx, "service.booking.Confirm", id, domain.EventConfirmed,
		func(b domain.Booking, now time.Time) (domain.Booking, error) {
			return domain.Confirm(b, in.Customer, in.PaymentMethod, now)
		})
}

// MarkPaid completes a booking on behalf of the payment collaborator.
func (s *Service) MarkPaid(ctx context.Context, id int64, ref domain.PaymentReference) (domain.Booking, error) {
	return s.transition(ctx, "service.booking.MarkPaid", id, domain.EventPaid,
		func(b domain.Booking, now time.Time) (domain.Booking, error) {
			return domain.MarkPaid(b, ref, now)
		})
}

// Cancel releases the seats of a held or pending booking.
func (s *Service) Cancel(ctx context.Context, id int64) (domain.Booking, error) {
	return s.transition(ctx, "service.booking.Cancel", id, domain.EventCancelled, domain.Cancel)
}

type transitionFunc func(b domain.Booking, now time.Time) (domain.Booking, error)

// transition loads the booking inside a transaction, applies fn and writes the
// result back only if nobody changed the status in between. A lapsed hold is
// committed as expired before the *domain.ExpiredError is returned; a booking
// that is already expired is reported without another write.
func (s *Service) transition(
	ctx context.Context,
	op string,
	id int64,
	event domain.EventType,
	fn transitionFunc,
) (domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var (
		out      domain.Booking
		applyErr error
	)

	err := s.tx.Do(ctx, func(
		ctx context.Context,
		repo repository.BookingRepository,
		after func(repository.AfterCommit),
	) error {
		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}

		next, err := fn(cur, s.cfg.Now())
		ev := event
		if err != nil {
			if !domain.IsExpired(err) {
				return err
			}
			applyErr, ev = err, domain.EventExpired
			if cur.Status == domain.StatusExpired {
				out = cur
				return nil
			}
		}

		if err := repo.UpdateIfStatus(ctx, next, cur.Status); err != nil {
			return err
		}

		out = next
		after(func(ctx context.Context) {
			s.changed(ctx, ev, next)
		})

		return nil
	})

	switch {
	case err == nil && applyErr != nil:
		return out, fmt.Errorf("%s:%w", op, applyErr)
	case err == nil:
		return out, nil
	case errors.Is(err, repository.ErrNotFound):
		return domain.Booking{}, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	case errors.Is(err, repository.ErrStale):
		return domain.Booking{}, s.explainStale(ctx, op, id, fn)
	case domain.IsValidation(err) || domain.IsInvalidState(err):
		return domain.Booking{}, fmt.Errorf("%s:%w", op, err)
	default:
		return domain.Booking{}, s.storeErr(op, err)
	}
}

// explainStale re-reads a booking that changed under a transition and reports
// why the transition can no longer apply.
func (s *Service) explainStale(ctx context.Context, op string, id int64, fn transitionFunc) error {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return s.storeErr(op, err)
	}

	if _, err := fn(cur, s.cfg.Now()); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return fmt.Errorf("%s:%w", op, ErrConcurrentUpdate)
}

// Get returns a booking. A lapsed hold is expired on the way out.
func (s *Service) Get(ctx context.Context, id int64) (domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.load(ctx, id)
	if err != nil {
		return domain.Booking{}, s.notFound(op, err)
	}

	return s.settle(ctx, b), nil
}

// GetByCode looks a booking up by its human-readable code.
func (s *Service) GetByCode(ctx context.Context, code string) (domain.Booking, error) {
	const op = "service.booking.GetByCode"

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	b, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return domain.Booking{}, s.notFound(op, err)
	}

	return s.settle(ctx, b), nil
}

type StatusInfo struct {
	Booking       domain.Booking
	TimeRemaining *time.Duration
}

// Status reports the lifecycle state of a booking and the time left on its hold.
func (s *Service) Status(ctx context.Context, id int64) (StatusInfo, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return StatusInfo{}, err
	}

	return StatusInfo{Booking: b, TimeRemaining: b.TimeRemaining(s.cfg.Now())}, nil
}

func (s *Service) load(ctx context.Context, id int64) (domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	return s.repo.Get(ctx, id)
}

// settle expires b if its hold lapsed. Failures leave b as read; the
// reclaimer will catch up.
func (s *Service) settle(ctx context.Context, b domain.Booking) domain.Booking {
	if !b.Lapsed(s.cfg.Now()) {
		return b
	}

	expired, err := s.transition(ctx, "service.booking.settle", b.ID, domain.EventExpired, domain.Expire)
	if err != nil {
		if !domain.IsInvalidState(err) {
			s.log.Warn("lazy expiry failed", "booking_id", b.ID, "err", err)
		}
		if fresh, gerr := s.load(ctx, b.ID); gerr == nil {
			return fresh
		}
		return b
	}

	return expired
}

// BookedSeats lists the seat numbers currently occupied at a showtime.
// The result may be cached for a few seconds.
func (s *Service) BookedSeats(ctx context.Context, key domain.ShowtimeKey) ([]string, error) {
	const op = "service.booking.BookedSeats"

	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	seats, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyShowtimeSeats(key), s.cfg.SeatsCacheTTL,
		func(ctx context.Context) ([]string, error) {
			ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
			defer cancel()

			bookings, err := s.repo.ListAtShowtime(ctx, key)
			if err != nil {
				return nil, err
			}

			return domain.OccupiedSeats(bookings, s.cfg.Now()), nil
		},
	)
	if err != nil {
		return nil, s.storeErr(op, err)
	}

	return seats, nil
}

// CheckAvailability reports which of seats are occupied at a showtime. It
// always reads the store.
func (s *Service) CheckAvailability(ctx context.Context, key domain.ShowtimeKey, seats []string) (domain.Availability, error) {
	const op = "service.booking.CheckAvailability"

	if err := key.Validate(); err != nil {
		return domain.Availability{}, fmt.Errorf("%s:%w", op, err)
	}
	if len(seats) == 0 {
		return domain.Availability{}, fmt.Errorf("%s:%w", op,
			&domain.ValidationError{Field: "seatNumbers", Problems: []string{"at least one seat is required"}})
	}

	avail, err := s.checkAvailability(ctx, key, seats)
	if err != nil {
		return domain.Availability{}, s.storeErr(op, err)
	}

	return avail, nil
}

func (s *Service) checkAvailability(ctx context.Context, key domain.ShowtimeKey, seats []string) (domain.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	bookings, err := s.repo.ListAtShowtime(ctx, key)
	if err != nil {
		return domain.Availability{}, err
	}

	return domain.CheckAvailability(bookings, seats, s.cfg.Now()), nil
}

func (s *Service) changed(ctx context.Context, t domain.EventType, b domain.Booking) {
	if s.notifier == nil {
		return
	}
	s.notifier.Changed(ctx, t, b, s.cfg.Now())
}

func (s *Service) notFound(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}
	return s.storeErr(op, err)
}

// storeErr turns timeouts and connectivity failures into
// *domain.StoreUnavailableError and wraps everything else with op.
func (s *Service) storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.StoreUnavailableError{Op: op, Err: err}
	}
	return fmt.Errorf("%s:%w", op, err)
}
