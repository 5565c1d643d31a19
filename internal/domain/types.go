package domain

import (
	"maps"
	"slices"
	"time"
)

type Status string

const (
	StatusHeld           Status = "held"
	StatusPendingPayment Status = "confirmed_pending_payment"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

// Terminal reports whether no further transitions are legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type SeatType string

const (
	SeatStandard SeatType = "standard"
	SeatVIP      SeatType = "vip"
	SeatCouple   SeatType = "couple"
)

func (t SeatType) Valid() bool {
	switch t {
	case SeatStandard, SeatVIP, SeatCouple:
		return true
	}
	return false
}

// ShowtimeKey identifies one screening; it is the unit of seat contention.
type ShowtimeKey struct {
	MovieID string `json:"movieId"`
	Cinema  string `json:"cinema"`
	Date    string `json:"date"` // YYYY-MM-DD
	Time    string `json:"time"` // HH:MM
}

type Seat struct {
	Number string   `json:"seatNumber"`
	Type   SeatType `json:"type"`
	Price  int64    `json:"price"`
}

type Extra struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"price"`
	LineTotal int64  `json:"totalPrice"`
}

// ExtraRequest is a client-supplied line of the combo selection.
type ExtraRequest struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"price"`
}

// Combo is a menu entry extras are priced against.
type Combo struct {
	ID    string
	Name  string
	Price int64
}

// DefaultCombos is the concession menu used when none is configured.
var DefaultCombos = map[string]Combo{
	"popcorn":  {ID: "popcorn", Name: "Popcorn (L)", Price: 45000},
	"coke":     {ID: "coke", Name: "Soft drink (L)", Price: 35000},
	"hotdog":   {ID: "hotdog", Name: "Hotdog", Price: 30000},
	"water":    {ID: "water", Name: "Mineral water", Price: 15000},
	"comboset": {ID: "comboset", Name: "Combo set", Price: 95000},
}

type Customer struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Note     string `json:"note"`
}

// PaymentReference is opaque metadata handed over by the payment collaborator.
type PaymentReference struct {
	PaymentID   string `json:"paymentId"`
	PaymentCode string `json:"paymentCode"`
	Provider    string `json:"provider"`
}

type Booking struct {
	ID     int64
	Code   string
	UserID string

	Showtime    ShowtimeKey
	Format      string
	MovieName   string
	MovieAvatar string

	Seats  []Seat
	Extras map[string]Extra

	SeatSubtotal int64
	ExtrasTotal  int64
	Discount     int64
	Total        int64

	Customer      Customer
	PaymentMethod string
	PaymentStatus PaymentStatus
	Payment       *PaymentReference

	Status        Status
	IsTemporary   bool
	HoldExpiresAt *time.Time
	CompletedAt   *time.Time
	Deleted       bool
	DeletedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SeatNumbers returns the booking's seat numbers in booking order.
func (b Booking) SeatNumbers() []string {
	out := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		out = append(out, s.Number)
	}
	return out
}

// Lapsed reports whether b is a hold whose window has passed at now.
func (b Booking) Lapsed(now time.Time) bool {
	return HoldLapsed(b.Status, b.HoldExpiresAt, now)
}

// TimeRemaining returns how long the hold has left, or nil outside the held state.
func (b Booking) TimeRemaining(now time.Time) *time.Duration {
	if b.Status != StatusHeld || b.HoldExpiresAt == nil {
		return nil
	}
	d := b.HoldExpiresAt.Sub(now)
	if d < 0 {
		d = 0
	}
	return &d
}

// Clone returns a deep copy of b.
func (b Booking) Clone() Booking {
	cp := b
	cp.Seats = slices.Clone(b.Seats)
	cp.Extras = maps.Clone(b.Extras)
	if cp.Extras == nil {
		cp.Extras = map[string]Extra{}
	}
	cp.HoldExpiresAt = cloneTime(b.HoldExpiresAt)
	cp.CompletedAt = cloneTime(b.CompletedAt)
	cp.DeletedAt = cloneTime(b.DeletedAt)
	if b.Payment != nil {
		p := *b.Payment
		cp.Payment = &p
	}
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ShowtimePricing is what the catalog knows about one screening.
type ShowtimePricing struct {
	MovieName   string
	MovieAvatar string
	FormatLabel string
	SeatPrices  map[SeatType]int64
}
