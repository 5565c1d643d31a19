package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultHoldDuration is how long a fresh booking keeps its seats.
const DefaultHoldDuration = 10 * time.Minute

// MaxComboQuantity caps a single extras line.
const MaxComboQuantity = 100

// HoldLapsed is the single lazy-expiry predicate: a held booking whose
// expiry is in the past no longer occupies its seats.
func HoldLapsed(status Status, holdExpiresAt *time.Time, now time.Time) bool {
	return status == StatusHeld && holdExpiresAt != nil && now.After(*holdExpiresAt)
}

type NewBookingParams struct {
	Code          string
	UserID        string
	Showtime      ShowtimeKey
	Format        string
	MovieName     string
	MovieAvatar   string
	Seats         []Seat
	Customer      *Customer
	PaymentMethod string
	HoldDuration  time.Duration
}

// NewBooking builds a held booking whose hold ends HoldDuration after now.
func NewBooking(p NewBookingParams, now time.Time) (Booking, error) {
	if err := p.Showtime.Validate(); err != nil {
		return Booking{}, err
	}
	if err := validateSeats(p.Seats); err != nil {
		return Booking{}, err
	}
	if strings.TrimSpace(p.Code) == "" {
		return Booking{}, invalid("code", "booking code is required")
	}

	hold := p.HoldDuration
	if hold <= 0 {
		hold = DefaultHoldDuration
	}
	expires := now.Add(hold)

	b := Booking{
		Code:          p.Code,
		UserID:        p.UserID,
		Showtime:      p.Showtime,
		Format:        p.Format,
		MovieName:     p.MovieName,
		MovieAvatar:   p.MovieAvatar,
		Extras:        map[string]Extra{},
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: PaymentUnpaid,
		Status:        StatusHeld,
		IsTemporary:   true,
		HoldExpiresAt: &expires,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if b.Format == "" {
		b.Format = "2D"
	}

	b.Seats = make([]Seat, len(p.Seats))
	copy(b.Seats, p.Seats)
	for _, s := range b.Seats {
		b.SeatSubtotal += s.Price
	}

	if p.Customer != nil {
		c := *p.Customer
		if c.Phone != "" && !ValidPhone(c.Phone) {
			return Booking{}, invalid("customer", fmt.Sprintf("phone %q is not a valid mobile number", c.Phone))
		}
		if c.Email != "" && !ValidEmail(c.Email) {
			return Booking{}, invalid("customer", fmt.Sprintf("email %q is invalid", c.Email))
		}
		b.Customer = c
	}

	b.recomputeTotal()
	return b, nil
}

// AttachExtras replaces the extras of b. Calling it twice with the same request
// yields the same totals. When menu is non-empty, combos are priced against it.
func AttachExtras(b Booking, req map[string]ExtraRequest, menu map[string]Combo, now time.Time) (Booking, error) {
	if b.Status == StatusExpired {
		return b, alreadyExpired(b)
	}
	if b.Status != StatusHeld && b.Status != StatusPendingPayment {
		return b, &InvalidStateError{BookingID: b.ID, Status: b.Status, Action: "update extras of"}
	}
	if b.Lapsed(now) {
		return expireLapsed(b, now)
	}

	extras, err := PriceExtras(req, menu)
	if err != nil {
		return b, err
	}

	next := b.Clone()
	next.Extras = extras
	next.ExtrasTotal = 0
	for _, e := range extras {
		if next.ExtrasTotal > math.MaxInt64-e.LineTotal {
			return b, invalid("extras", "extras total is out of range")
		}
		next.ExtrasTotal += e.LineTotal
	}
	if next.ExtrasTotal > math.MaxInt64-next.SeatSubtotal {
		return b, invalid("extras", "booking total is out of range")
	}
	next.recomputeTotal()
	if next.Total < 0 {
		return b, invalid("extras", "total would become negative")
	}
	next.UpdatedAt = now
	return next, nil
}

// PriceExtras turns a combo request into priced lines. Zero quantities drop
// the combo.
func PriceExtras(req map[string]ExtraRequest, menu map[string]Combo) (map[string]Extra, error) {
	ids := make([]string, 0, len(req))
	for id := range req {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]Extra, len(req))
	var problems []string
	for _, id := range ids {
		r := req[id]
		if r.Quantity < 0 {
			problems = append(problems, fmt.Sprintf("combo %s has negative quantity %d", id, r.Quantity))
			continue
		}
		if r.Quantity == 0 {
			continue
		}
		if r.Quantity > MaxComboQuantity {
			problems = append(problems, fmt.Sprintf("combo %s quantity %d exceeds %d", id, r.Quantity, MaxComboQuantity))
			continue
		}

		name, price := r.Name, r.UnitPrice
		if len(menu) > 0 {
			c, ok := menu[id]
			if !ok {
				problems = append(problems, fmt.Sprintf("combo %s is not on the menu", id))
				continue
			}
			if r.UnitPrice != 0 && r.UnitPrice != c.Price {
				problems = append(problems, fmt.Sprintf("combo %s: expected price %d, got %d", id, c.Price, r.UnitPrice))
				continue
			}
			price = c.Price
			if name == "" {
				name = c.Name
			}
		}
		if price <= 0 {
			problems = append(problems, fmt.Sprintf("combo %s has non-positive price %d", id, price))
			continue
		}
		if price > math.MaxInt64/int64(r.Quantity) {
			problems = append(problems, fmt.Sprintf("combo %s line total is out of range", id))
			continue
		}
		if name == "" {
			name = id
		}

		out[id] = Extra{
			Name:      name,
			Quantity:  r.Quantity,
			UnitPrice: price,
			LineTotal: price * int64(r.Quantity),
		}
	}
	if len(problems) > 0 {
		return nil, invalid("extras", problems...)
	}
	return out, nil
}

// Confirm attaches customer details and moves a live hold to pending payment.
// A lapsed hold is returned in the expired state together with an *ExpiredError.
func Confirm(b Booking, c Customer, paymentMethod string, now time.Time) (Booking, error) {
	if b.Status == StatusExpired {
		return b, alreadyExpired(b)
	}
	if b.Status != StatusHeld {
		return b, &InvalidStateError{BookingID: b.ID, Status: b.Status, Action: "confirm"}
	}
	if b.Lapsed(now) {
		return expireLapsed(b, now)
	}
	if err := validateCustomer(c); err != nil {
		return b, err
	}

	next := b.Clone()
	next.Customer = c
	if paymentMethod != "" {
		next.PaymentMethod = paymentMethod
	}
	if next.PaymentMethod == "" {
		next.PaymentMethod = "cash"
	}
	next.Status = StatusPendingPayment
	next.IsTemporary = false
	next.HoldExpiresAt = nil
	next.UpdatedAt = now
	return next, nil
}

// MarkPaid completes a booking. Besides confirmed_pending_payment it accepts a
// live hold that already carries valid customer details.
func MarkPaid(b Booking, ref PaymentReference, now time.Time) (Booking, error) {
	switch b.Status {
	case StatusPendingPayment:
	case StatusHeld:
		if b.Lapsed(now) {
			return expireLapsed(b, now)
		}
		if err := validateCustomer(b.Customer); err != nil {
			return b, err
		}
	case StatusExpired:
		return b, alreadyExpired(b)
	default:
		return b, &InvalidStateError{BookingID: b.ID, Status: b.Status, Action: "mark paid"}
	}

	next := b.Clone()
	next.PaymentStatus = PaymentPaid
	next.Payment = &ref
	next.Status = StatusCompleted
	next.IsTemporary = false
	next.HoldExpiresAt = nil
	if next.CompletedAt == nil {
		t := now
		next.CompletedAt = &t
	}
	next.UpdatedAt = now
	return next, nil
}

func Cancel(b Booking, now time.Time) (Booking, error) {
	if b.Status != StatusHeld && b.Status != StatusPendingPayment {
		return b, &InvalidStateError{BookingID: b.ID, Status: b.Status, Action: "cancel"}
	}

	next := b.Clone()
	next.Status = StatusCancelled
	next.IsTemporary = false
	next.HoldExpiresAt = nil
	next.Deleted = true
	next.DeletedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Expire terminalizes a lapsed hold. It is never exposed to customers.
func Expire(b Booking, now time.Time) (Booking, error) {
	if !b.Lapsed(now) {
		return b, &InvalidStateError{BookingID: b.ID, Status: b.Status, Action: "expire"}
	}

	next := b.Clone()
	next.Status = StatusExpired
	next.IsTemporary = false
	next.HoldExpiresAt = nil
	next.Deleted = true
	next.DeletedAt = &now
	next.UpdatedAt = now
	return next, nil
}

func expireLapsed(b Booking, now time.Time) (Booking, error) {
	expiredAt := *b.HoldExpiresAt
	next, err := Expire(b, now)
	if err != nil {
		return b, err
	}
	return next, &ExpiredError{BookingID: b.ID, ExpiredAt: expiredAt}
}

// alreadyExpired reports a hold that was terminalized earlier, by the
// reclaimer or by a previous request.
func alreadyExpired(b Booking) *ExpiredError {
	at := b.UpdatedAt
	if b.DeletedAt != nil {
		at = *b.DeletedAt
	}
	return &ExpiredError{BookingID: b.ID, ExpiredAt: at}
}

func (b *Booking) recomputeTotal() {
	b.Total = b.SeatSubtotal + b.ExtrasTotal - b.Discount
}
