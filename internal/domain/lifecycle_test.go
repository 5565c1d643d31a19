package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)

func showtime() domain.ShowtimeKey {
	return domain.ShowtimeKey{MovieID: "m-1", Cinema: "CGV Vincom", Date: "2025-03-01", Time: "19:30"}
}

func twoSeats() []domain.Seat {
	return []domain.Seat{
		{Number: "A1", Type: domain.SeatStandard, Price: 50000},
		{Number: "A2", Type: domain.SeatStandard, Price: 50000},
	}
}

func newHeld(t *testing.T) domain.Booking {
	t.Helper()
	b, err := domain.NewBooking(domain.NewBookingParams{
		Code:     "BK250301-TEST0001",
		Showtime: showtime(),
		Seats:    twoSeats(),
	}, t0)
	require.NoError(t, err)
	b.ID = 7
	return b
}

func TestNewBooking(t *testing.T) {
	b := newHeld(t)

	assert.Equal(t, domain.StatusHeld, b.Status)
	assert.True(t, b.IsTemporary)
	require.NotNil(t, b.HoldExpiresAt)
	assert.Equal(t, b.CreatedAt.Add(10*time.Minute), *b.HoldExpiresAt)
	assert.Equal(t, int64(100000), b.SeatSubtotal)
	assert.Equal(t, int64(100000), b.Total)
	assert.Equal(t, domain.PaymentUnpaid, b.PaymentStatus)
	assert.Equal(t, "2D", b.Format)
	assert.Empty(t, b.Extras)
}

func TestNewBooking_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		seats []domain.Seat
	}{
		{"empty", nil},
		{"duplicate", []domain.Seat{
			{Number: "A1", Type: domain.SeatStandard, Price: 50000},
			{Number: "A1", Type: domain.SeatStandard, Price: 50000},
		}},
		{"zero price", []domain.Seat{{Number: "A1", Type: domain.SeatStandard, Price: 0}}},
		{"negative price", []domain.Seat{{Number: "A1", Type: domain.SeatVIP, Price: -1}}},
		{"unknown type", []domain.Seat{{Number: "A1", Type: "balcony", Price: 50000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewBooking(domain.NewBookingParams{
				Code:     "BK1",
				Showtime: showtime(),
				Seats:    tt.seats,
			}, t0)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestNewBooking_RejectsBadOptionalPhone(t *testing.T) {
	_, err := domain.NewBooking(domain.NewBookingParams{
		Code:     "BK1",
		Showtime: showtime(),
		Seats:    twoSeats(),
		Customer: &domain.Customer{FullName: "Nguyen Van A", Phone: "12345"},
	}, t0)
	assert.True(t, domain.IsValidation(err))
}

func TestAttachExtras_Idempotent(t *testing.T) {
	b := newHeld(t)
	req := map[string]domain.ExtraRequest{"popcorn": {Quantity: 2, UnitPrice: 45000}}

	once, err := domain.AttachExtras(b, req, domain.DefaultCombos, t0.Add(time.Minute))
	require.NoError(t, err)
	twice, err := domain.AttachExtras(once, req, domain.DefaultCombos, t0.Add(2*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, int64(90000), once.ExtrasTotal)
	assert.Equal(t, int64(190000), once.Total)
	assert.Equal(t, once.ExtrasTotal, twice.ExtrasTotal)
	assert.Equal(t, once.Total, twice.Total)
	assert.Empty(t, b.Extras, "input booking must not be mutated")
}

func TestAttachExtras_ZeroQuantityRemoves(t *testing.T) {
	b := newHeld(t)
	b, err := domain.AttachExtras(b, map[string]domain.ExtraRequest{"coke": {Quantity: 1}}, domain.DefaultCombos, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(135000), b.Total)

	b, err = domain.AttachExtras(b, map[string]domain.ExtraRequest{"coke": {Quantity: 0}}, domain.DefaultCombos, t0)
	require.NoError(t, err)
	assert.Empty(t, b.Extras)
	assert.Equal(t, int64(100000), b.Total)
}

func TestAttachExtras_MenuMismatch(t *testing.T) {
	b := newHeld(t)
	_, err := domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"popcorn": {Quantity: 1, UnitPrice: 1000},
		"caviar":  {Quantity: 1, UnitPrice: 1000},
	}, domain.DefaultCombos, t0)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 2)
}

func TestAttachExtras_QuantityBounds(t *testing.T) {
	b := newHeld(t)

	// 45000 * (2^61+1) wraps to 45000 in int64
	_, err := domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"popcorn": {Quantity: 1<<61 + 1},
	}, domain.DefaultCombos, t0)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "extras", ve.Field)

	_, err = domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"popcorn": {Quantity: domain.MaxComboQuantity + 1},
	}, domain.DefaultCombos, t0)
	assert.True(t, domain.IsValidation(err))

	full, err := domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"popcorn": {Quantity: domain.MaxComboQuantity},
	}, domain.DefaultCombos, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(domain.MaxComboQuantity)*45000, full.Extras["popcorn"].LineTotal)
	assert.Equal(t, full.SeatSubtotal+full.ExtrasTotal, full.Total)
}

func TestAttachExtras_TotalOverflow(t *testing.T) {
	b := newHeld(t)

	_, err := domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"gold": {Quantity: 3, UnitPrice: math.MaxInt64 / 2},
	}, nil, t0)
	assert.True(t, domain.IsValidation(err))

	_, err = domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"gold":   {Quantity: 2, UnitPrice: math.MaxInt64 / 4},
		"silver": {Quantity: 3, UnitPrice: math.MaxInt64 / 4},
	}, nil, t0)
	assert.True(t, domain.IsValidation(err))

	// fits alone, but not on top of the seats
	_, err = domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"gold": {Quantity: 1, UnitPrice: math.MaxInt64 - 1},
	}, nil, t0)
	assert.True(t, domain.IsValidation(err))
}

func TestTransitions_AlreadyExpired(t *testing.T) {
	b := newHeld(t)
	expiredAt := t0.Add(11 * time.Minute)
	e, err := domain.Expire(b, expiredAt)
	require.NoError(t, err)

	later := t0.Add(time.Hour)
	customer := domain.Customer{FullName: "A", Phone: "0987654321"}

	next, err := domain.Confirm(e, customer, "", later)
	var ee *domain.ExpiredError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, int64(7), ee.BookingID)
	assert.Equal(t, expiredAt, ee.ExpiredAt)
	assert.Equal(t, e, next)

	_, err = domain.AttachExtras(e, map[string]domain.ExtraRequest{"coke": {Quantity: 1}}, domain.DefaultCombos, later)
	assert.True(t, domain.IsExpired(err))

	e.Customer = customer
	_, err = domain.MarkPaid(e, domain.PaymentReference{}, later)
	assert.True(t, domain.IsExpired(err))

	_, err = domain.Cancel(e, later)
	assert.True(t, domain.IsInvalidState(err))
}

func TestAttachExtras_WithoutMenuTrustsNameAndPrice(t *testing.T) {
	b := newHeld(t)
	b, err := domain.AttachExtras(b, map[string]domain.ExtraRequest{
		"nachos": {Name: "Nachos", Quantity: 3, UnitPrice: 20000},
	}, nil, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.Extra{Name: "Nachos", Quantity: 3, UnitPrice: 20000, LineTotal: 60000}, b.Extras["nachos"])
}

func TestAttachExtras_TerminalState(t *testing.T) {
	b := newHeld(t)
	cancelled, err := domain.Cancel(b, t0)
	require.NoError(t, err)

	_, err = domain.AttachExtras(cancelled, nil, nil, t0)
	assert.True(t, domain.IsInvalidState(err))
}

func TestConfirm(t *testing.T) {
	b := newHeld(t)

	c, err := domain.Confirm(b, domain.Customer{FullName: "Nguyen Van A", Phone: "0987654321"}, "", t0.Add(5*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingPayment, c.Status)
	assert.Nil(t, c.HoldExpiresAt)
	assert.False(t, c.IsTemporary)
	assert.Equal(t, "cash", c.PaymentMethod)
	assert.Equal(t, "0987654321", c.Customer.Phone)
}

func TestConfirm_Validation(t *testing.T) {
	b := newHeld(t)

	_, err := domain.Confirm(b, domain.Customer{FullName: "A", Phone: "0123456789"}, "", t0)
	assert.True(t, domain.IsValidation(err))

	_, err = domain.Confirm(b, domain.Customer{Phone: "0987654321"}, "", t0)
	assert.True(t, domain.IsValidation(err))
}

func TestConfirm_LapsedHoldExpires(t *testing.T) {
	b := newHeld(t)
	now := t0.Add(11 * time.Minute)

	next, err := domain.Confirm(b, domain.Customer{FullName: "A", Phone: "0987654321"}, "", now)

	var ee *domain.ExpiredError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, int64(7), ee.BookingID)
	assert.Equal(t, domain.StatusExpired, next.Status)
	assert.True(t, next.Deleted)
	assert.Nil(t, next.HoldExpiresAt)
	require.NotNil(t, next.DeletedAt)
	assert.Equal(t, now, *next.DeletedAt)
}

func TestConfirm_NotHeld(t *testing.T) {
	b := newHeld(t)
	c, err := domain.Confirm(b, domain.Customer{FullName: "A", Phone: "0987654321"}, "", t0)
	require.NoError(t, err)

	_, err = domain.Confirm(c, domain.Customer{FullName: "A", Phone: "0987654321"}, "", t0)
	assert.True(t, domain.IsInvalidState(err))
}

func TestMarkPaid(t *testing.T) {
	b := newHeld(t)
	c, err := domain.Confirm(b, domain.Customer{FullName: "A", Phone: "0987654321"}, "", t0)
	require.NoError(t, err)

	ref := domain.PaymentReference{PaymentID: "pay_1", Provider: "vnpay"}
	paid, err := domain.MarkPaid(c, ref, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, paid.Status)
	assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)
	require.NotNil(t, paid.CompletedAt)
	assert.Equal(t, t0.Add(time.Minute), *paid.CompletedAt)
	assert.Equal(t, &ref, paid.Payment)

	_, err = domain.MarkPaid(paid, ref, t0.Add(2*time.Minute))
	assert.True(t, domain.IsInvalidState(err))
}

func TestMarkPaid_FromHold(t *testing.T) {
	b := newHeld(t)

	_, err := domain.MarkPaid(b, domain.PaymentReference{}, t0)
	assert.True(t, domain.IsValidation(err), "a hold without customer details cannot be completed")

	b.Customer = domain.Customer{FullName: "A", Phone: "+84987654321"}
	paid, err := domain.MarkPaid(b, domain.PaymentReference{}, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, paid.Status)
	assert.Nil(t, paid.HoldExpiresAt)

	_, err = domain.MarkPaid(b, domain.PaymentReference{}, t0.Add(time.Hour))
	assert.True(t, domain.IsExpired(err))
}

func TestCancel(t *testing.T) {
	b := newHeld(t)
	c, err := domain.Cancel(b, t0)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, c.Status)
	assert.True(t, c.Deleted)
	assert.NotNil(t, c.DeletedAt)
	assert.Nil(t, c.HoldExpiresAt)

	_, err = domain.Cancel(c, t0)
	assert.True(t, domain.IsInvalidState(err))
}

func TestExpire(t *testing.T) {
	b := newHeld(t)

	_, err := domain.Expire(b, t0.Add(5*time.Minute))
	assert.True(t, domain.IsInvalidState(err), "a live hold cannot be expired")

	e, err := domain.Expire(b, t0.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, e.Status)
	assert.True(t, e.Deleted)

	_, err = domain.Expire(e, t0.Add(12*time.Minute))
	assert.True(t, domain.IsInvalidState(err))
}

func TestTimeRemaining(t *testing.T) {
	b := newHeld(t)

	left := b.TimeRemaining(t0.Add(4 * time.Minute))
	require.NotNil(t, left)
	assert.Equal(t, 6*time.Minute, *left)

	left = b.TimeRemaining(t0.Add(time.Hour))
	require.NotNil(t, left)
	assert.Zero(t, *left)
}

func TestFullScenario(t *testing.T) {
	b := newHeld(t)
	assert.Equal(t, int64(100000), b.SeatSubtotal)
	assert.Equal(t, int64(100000), b.Total)

	b, err := domain.AttachExtras(b, map[string]domain.ExtraRequest{"popcorn": {Quantity: 2, UnitPrice: 45000}}, domain.DefaultCombos, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), b.ExtrasTotal)
	assert.Equal(t, int64(190000), b.Total)

	b, err = domain.Confirm(b, domain.Customer{FullName: "Tran Thi B", Phone: "0987654321"}, "", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, b.Status)
	assert.Nil(t, b.HoldExpiresAt)

	b, err = domain.MarkPaid(b, domain.PaymentReference{PaymentID: "p1"}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, b.Status)
	assert.NotNil(t, b.CompletedAt)
	assert.Equal(t, b.SeatSubtotal+b.ExtrasTotal-b.Discount, b.Total)
}
