package httpgin

import (
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
)

type SeatInput struct {
	SeatNumber string `json:"seatNumber" binding:"required"`
	Type       string `json:"type" binding:"required,oneof=standard vip couple"`
	Price      int64  `json:"price" binding:"required,gt=0"`
}

type ComboInput struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity" binding:"gte=0,max=100"`
	Price    int64  `json:"price" binding:"gte=0"`
}

type CreateBookingRequest struct {
	MovieID       string                `json:"movieId" binding:"required"`
	Cinema        string                `json:"cinema" binding:"required"`
	ShowtimeDate  string                `json:"showtimeDate" binding:"required"`
	ShowtimeTime  string                `json:"showtimeTime" binding:"required"`
	Seats         []SeatInput           `json:"seats" binding:"required,min=1,dive"`
	Combos        map[string]ComboInput `json:"combos" binding:"omitempty,dive"`
	UserID        string                `json:"userId"`
	FullName      string                `json:"fullName"`
	Phone         string                `json:"phone" binding:"omitempty,vnphone"`
	Email         string                `json:"email" binding:"omitempty,email"`
	Note          string                `json:"note"`
	PaymentMethod string                `json:"paymentMethod"`
}

type UpdateCombosRequest struct {
	Combos map[string]ComboInput `json:"combos" binding:"omitempty,dive"`
}

type ConfirmBookingRequest struct {
	FullName      string `json:"fullName" binding:"required"`
	Phone         string `json:"phone" binding:"required,vnphone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Note          string `json:"note"`
	PaymentMethod string `json:"paymentMethod"`
}

type PaymentCompletedRequest struct {
	PaymentID   string `json:"paymentId"`
	PaymentCode string `json:"paymentCode"`
	Provider    string `json:"provider"`
}

type ShowtimeQuery struct {
	MovieID string `form:"movieId" binding:"required"`
	Cinema  string `form:"cinema" binding:"required"`
	Date    string `form:"date" binding:"required"`
	Time    string `form:"time" binding:"required"`
}

type AvailabilityRequest struct {
	MovieID      string   `json:"movieId" binding:"required"`
	Cinema       string   `json:"cinema" binding:"required"`
	ShowtimeDate string   `json:"showtimeDate" binding:"required"`
	ShowtimeTime string   `json:"showtimeTime" binding:"required"`
	SeatNumbers  []string `json:"seatNumbers" binding:"required,min=1,dive,required"`
}

type ErrorResponse struct {
	Error            string   `json:"error"`
	Code             string   `json:"code,omitempty"`
	Details          []string `json:"details,omitempty"`
	UnavailableSeats []string `json:"unavailableSeats,omitempty"`
}

type BookingResponse struct {
	ID             int64                    `json:"id"`
	BookingCode    string                   `json:"bookingCode"`
	UserID         string                   `json:"userId,omitempty"`
	MovieID        string                   `json:"movieId"`
	MovieName      string                   `json:"movieName"`
	MovieAvatar    string                   `json:"movieAvatar,omitempty"`
	Cinema         string                   `json:"cinema"`
	ShowtimeDate   string                   `json:"showtimeDate"`
	ShowtimeTime   string                   `json:"showtimeTime"`
	ShowtimeFormat string                   `json:"showtimeFormat"`
	Seats          []domain.Seat            `json:"seats"`
	Combos         map[string]domain.Extra  `json:"combos"`
	SubTotal       int64                    `json:"subTotal"`
	ComboTotal     int64                    `json:"comboTotal"`
	Discount       int64                    `json:"discount"`
	Total          int64                    `json:"total"`
	FullName       string                   `json:"fullName,omitempty"`
	Phone          string                   `json:"phone,omitempty"`
	Email          string                   `json:"email,omitempty"`
	Note           string                   `json:"note,omitempty"`
	PaymentMethod  string                   `json:"paymentMethod,omitempty"`
	PaymentStatus  domain.PaymentStatus     `json:"paymentStatus"`
	Payment        *domain.PaymentReference `json:"payment,omitempty"`
	Status         domain.Status            `json:"status"`
	IsTemporary    bool                     `json:"isTemporary"`
	ExpiresAt      *time.Time               `json:"expiresAt,omitempty"`
	CompletedAt    *time.Time               `json:"completedAt,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

type StatusResponse struct {
	ID            int64                `json:"id"`
	BookingCode   string               `json:"bookingCode"`
	Status        domain.Status        `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	IsTemporary   bool                 `json:"isTemporary"`
	ExpiresAt     *time.Time           `json:"expiresAt,omitempty"`
	// TimeRemaining is in whole seconds and only present while held.
	TimeRemaining *int64 `json:"timeRemaining,omitempty"`
	Expired       bool   `json:"expired"`
}

type BookedSeatsResponse struct {
	MovieID     string   `json:"movieId"`
	Cinema      string   `json:"cinema"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	BookedSeats []string `json:"bookedSeats"`
}

func toBookingResponse(b domain.Booking) BookingResponse {
	combos := b.Extras
	if combos == nil {
		combos = map[string]domain.Extra{}
	}

	return BookingResponse{
		ID:             b.ID,
		BookingCode:    b.Code,
		UserID:         b.UserID,
		MovieID:        b.Showtime.MovieID,
		MovieName:      b.MovieName,
		MovieAvatar:    b.MovieAvatar,
		Cinema:         b.Showtime.Cinema,
		ShowtimeDate:   b.Showtime.Date,
		ShowtimeTime:   b.Showtime.Time,
		ShowtimeFormat: b.Format,
		Seats:          b.Seats,
		Combos:         combos,
		SubTotal:       b.SeatSubtotal,
		ComboTotal:     b.ExtrasTotal,
		Discount:       b.Discount,
		Total:          b.Total,
		FullName:       b.Customer.FullName,
		Phone:          b.Customer.Phone,
		Email:          b.Customer.Email,
		Note:           b.Customer.Note,
		PaymentMethod:  b.PaymentMethod,
		PaymentStatus:  b.PaymentStatus,
		Payment:        b.Payment,
		Status:         b.Status,
		IsTemporary:    b.IsTemporary,
		ExpiresAt:      b.HoldExpiresAt,
		CompletedAt:    b.CompletedAt,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func toSeats(in []SeatInput) []domain.Seat {
	out := make([]domain.Seat, 0, len(in))
	for _, s := range in {
		out = append(out, domain.Seat{
			Number: s.SeatNumber,
			Type:   domain.SeatType(s.Type),
			Price:  s.Price,
		})
	}
	return out
}

func toExtraRequests(in map[string]ComboInput) map[string]domain.ExtraRequest {
	out := make(map[string]domain.ExtraRequest, len(in))
	for id, c := range in {
		out[id] = domain.ExtraRequest{Name: c.Name, Quantity: c.Quantity, UnitPrice: c.Price}
	}
	return out
}

func showtimeKey(movieID, cinema, date, tm string) (domain.ShowtimeKey, error) {
	d, err := domain.ParseShowDate(date)
	if err != nil {
		return domain.ShowtimeKey{}, err
	}
	return domain.ShowtimeKey{MovieID: movieID, Cinema: cinema, Date: d, Time: tm}, nil
}
