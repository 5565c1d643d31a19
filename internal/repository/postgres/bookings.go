package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/repository"
)

const bookingColumns = `id, code, user_id, movie_id, cinema, show_date::text, show_time,
	format, movie_name, movie_avatar, seats, extras,
	seat_subtotal, extras_total, discount, total,
	full_name, phone, email, note, payment_method, payment_status, payment_ref,
	status, is_temporary, hold_expires_at, completed_at, deleted, deleted_at,
	created_at, updated_at`

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

var _ repository.BookingRepository = (*BookingRepo)(nil)

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// inTx runs fn on the bound transaction, or on a fresh READ COMMITTED one
// when the repo is not bound.
func (r *BookingRepo) inTx(ctx context.Context, fn func(db DB) error) error {
	if r.db != nil {
		return fn(r.db)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return translateDBErr(tx.Commit(ctx))
}

// Insert stores a new booking and claims its seats.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - b: the booking to insert; b.ID is set on success.
//
// Returns:
//   - error: *repository.SeatsTakenError naming every seat already claimed.
//   - error: repository.ErrConflict if the booking code already exists.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Insert"

	err := r.inTx(ctx, func(db DB) error {
		return r.insertCore(ctx, db, b)
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (r *BookingRepo) insertCore(ctx context.Context, db DB, b *domain.Booking) error {
	seats, extras, ref, err := encodeJSONColumns(*b)
	if err != nil {
		return err
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO bookings (
			code, user_id, movie_id, cinema, show_date, show_time,
			format, movie_name, movie_avatar, seats, extras,
			seat_subtotal, extras_total, discount, total,
			full_name, phone, email, note, payment_method, payment_status, payment_ref,
			status, is_temporary, hold_expires_at, completed_at, deleted, deleted_at,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
		 RETURNING id`,
		b.Code, b.UserID, b.Showtime.MovieID, b.Showtime.Cinema, b.Showtime.Date, b.Showtime.Time,
		b.Format, b.MovieName, b.MovieAvatar, seats, extras,
		b.SeatSubtotal, b.ExtrasTotal, b.Discount, b.Total,
		b.Customer.FullName, b.Customer.Phone, b.Customer.Email, b.Customer.Note,
		b.PaymentMethod, string(b.PaymentStatus), ref,
		string(b.Status), b.IsTemporary, b.HoldExpiresAt, b.CompletedAt, b.Deleted, b.DeletedAt,
		b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID); err != nil {
		return translateDBErr(err)
	}

	numbers := b.SeatNumbers()
	rows, err := db.Query(ctx,
		`INSERT INTO booking_seats (booking_id, movie_id, cinema, show_date, show_time, seat_number, expires_at)
		 SELECT $1, $2, $3, $4::date, $5, seat, $7
		   FROM unnest($6::text[]) AS seat
		 ON CONFLICT DO NOTHING
		 RETURNING seat_number`,
		b.ID, b.Showtime.MovieID, b.Showtime.Cinema, b.Showtime.Date, b.Showtime.Time, numbers, b.HoldExpiresAt,
	)
	if err != nil {
		return translateDBErr(err)
	}

	defer rows.Close()

	claimed := make(map[string]struct{}, len(numbers))
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return translateDBErr(err)
		}
		claimed[seat] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return translateDBErr(err)
	}

	var taken []string
	for _, n := range numbers {
		if _, ok := claimed[n]; !ok {
			taken = append(taken, n)
		}
	}
	if len(taken) > 0 {
		return &repository.SeatsTakenError{Seats: taken}
	}

	return nil
}

// Get retrieves a booking by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Get(ctx context.Context, id int64) (domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// GetByCode retrieves a booking by its human-readable code.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (domain.Booking, error) {
	const op = "postgres.BookingRepo.GetByCode"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE code = $1`,
		code,
	))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// ListAtShowtime lists the non-deleted bookings of one showtime that may
// occupy seats. Lapsed holds are included; callers apply domain.Occupies.
func (r *BookingRepo) ListAtShowtime(ctx context.Context, key domain.ShowtimeKey) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListAtShowtime"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		   FROM bookings
		  WHERE movie_id = $1 AND cinema = $2 AND show_date = $3::date AND show_time = $4
		    AND deleted = FALSE
		    AND status IN ('held', 'confirmed_pending_payment', 'completed')
		  ORDER BY id`,
		key.MovieID, key.Cinema, key.Date, key.Time,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// ReleaseLapsedClaims drops the seat claims of holds at key whose window
// closed before now.
//
// Returns:
//   - int64: the number of released seat claims.
func (r *BookingRepo) ReleaseLapsedClaims(ctx context.Context, key domain.ShowtimeKey, now time.Time) (int64, error) {
	const op = "postgres.BookingRepo.ReleaseLapsedClaims"

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM booking_seats
		  WHERE movie_id = $1 AND cinema = $2 AND show_date = $3::date AND show_time = $4
		    AND expires_at IS NOT NULL
		    AND expires_at < $5`,
		key.MovieID, key.Cinema, key.Date, key.Time, now,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// UpdateIfStatus writes b only if the stored status is still expected.
//
// Returns:
//   - error: repository.ErrStale if the record moved on, or a hold lost its
//     seat claims to a newer booking.
func (r *BookingRepo) UpdateIfStatus(ctx context.Context, b domain.Booking, expected domain.Status) error {
	const op = "postgres.BookingRepo.UpdateIfStatus"

	err := r.inTx(ctx, func(db DB) error {
		return r.updateIfStatusCore(ctx, db, b, expected)
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (r *BookingRepo) updateIfStatusCore(ctx context.Context, db DB, b domain.Booking, expected domain.Status) error {
	seats, extras, ref, err := encodeJSONColumns(b)
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		    SET seats = $3, extras = $4,
		        seat_subtotal = $5, extras_total = $6, discount = $7, total = $8,
		        full_name = $9, phone = $10, email = $11, note = $12,
		        payment_method = $13, payment_status = $14, payment_ref = $15,
		        status = $16, is_temporary = $17, hold_expires_at = $18, completed_at = $19,
		        deleted = $20, deleted_at = $21, updated_at = $22
		  WHERE id = $1 AND status = $2`,
		b.ID, string(expected), seats, extras,
		b.SeatSubtotal, b.ExtrasTotal, b.Discount, b.Total,
		b.Customer.FullName, b.Customer.Phone, b.Customer.Email, b.Customer.Note,
		b.PaymentMethod, string(b.PaymentStatus), ref,
		string(b.Status), b.IsTemporary, b.HoldExpiresAt, b.CompletedAt,
		b.Deleted, b.DeletedAt, b.UpdatedAt,
	)
	if err != nil {
		return translateDBErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrStale
	}

	switch {
	case b.Status == domain.StatusCancelled || b.Status == domain.StatusExpired:
		if _, err := db.Exec(ctx, `DELETE FROM booking_seats WHERE booking_id = $1`, b.ID); err != nil {
			return translateDBErr(err)
		}
	case expected == domain.StatusHeld && b.Status != domain.StatusHeld:
		tag, err := db.Exec(ctx,
			`UPDATE booking_seats SET expires_at = NULL
			  WHERE booking_id = $1 AND expires_at IS NOT NULL`,
			b.ID,
		)
		if err != nil {
			return translateDBErr(err)
		}
		if int(tag.RowsAffected()) != len(b.Seats) {
			return repository.ErrStale
		}
	}

	return nil
}

// ListLapsedHolds lists held bookings whose hold ended before now, oldest first.
func (r *BookingRepo) ListLapsedHolds(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListLapsedHolds"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		   FROM bookings
		  WHERE status = 'held' AND deleted = FALSE AND hold_expires_at < $1
		  ORDER BY hold_expires_at
		  LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// ListPurgeable lists expired bookings soft-deleted before the given time.
func (r *BookingRepo) ListPurgeable(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListPurgeable"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		   FROM bookings
		  WHERE status = 'expired' AND deleted_at < $1
		  ORDER BY deleted_at
		  LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// DeleteIfStatus permanently removes a booking in the given status.
//
// Returns:
//   - error: repository.ErrNotFound if no such record exists in that status.
func (r *BookingRepo) DeleteIfStatus(ctx context.Context, id int64, status domain.Status) error {
	const op = "postgres.BookingRepo.DeleteIfStatus"

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM bookings WHERE id = $1 AND status = $2`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (domain.Booking, error) {
	var (
		b                     domain.Booking
		seats, extras, ref    []byte
		paymentStatus, status string
	)

	if err := row.Scan(
		&b.ID, &b.Code, &b.UserID,
		&b.Showtime.MovieID, &b.Showtime.Cinema, &b.Showtime.Date, &b.Showtime.Time,
		&b.Format, &b.MovieName, &b.MovieAvatar, &seats, &extras,
		&b.SeatSubtotal, &b.ExtrasTotal, &b.Discount, &b.Total,
		&b.Customer.FullName, &b.Customer.Phone, &b.Customer.Email, &b.Customer.Note,
		&b.PaymentMethod, &paymentStatus, &ref,
		&status, &b.IsTemporary, &b.HoldExpiresAt, &b.CompletedAt, &b.Deleted, &b.DeletedAt,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}

	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	b.Status = domain.Status(status)

	if err := json.Unmarshal(seats, &b.Seats); err != nil {
		return domain.Booking{}, fmt.Errorf("decode seats: %w", err)
	}
	b.Extras = map[string]domain.Extra{}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &b.Extras); err != nil {
			return domain.Booking{}, fmt.Errorf("decode extras: %w", err)
		}
	}
	if len(ref) > 0 {
		var p domain.PaymentReference
		if err := json.Unmarshal(ref, &p); err != nil {
			return domain.Booking{}, fmt.Errorf("decode payment_ref: %w", err)
		}
		b.Payment = &p
	}

	return b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func encodeJSONColumns(b domain.Booking) (seats, extras, ref []byte, err error) {
	if seats, err = json.Marshal(b.Seats); err != nil {
		return nil, nil, nil, fmt.Errorf("encode seats: %w", err)
	}

	ex := b.Extras
	if ex == nil {
		ex = map[string]domain.Extra{}
	}
	if extras, err = json.Marshal(ex); err != nil {
		return nil, nil, nil, fmt.Errorf("encode extras: %w", err)
	}

	if b.Payment != nil {
		if ref, err = json.Marshal(b.Payment); err != nil {
			return nil, nil, nil, fmt.Errorf("encode payment_ref: %w", err)
		}
	}

	return seats, extras, ref, nil
}
