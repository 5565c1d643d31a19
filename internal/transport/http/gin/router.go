package httpgin

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinema-booking/internal/domain"
	redisrepo "github.com/kirinyoku/cinema-booking/internal/repository/redis"
	"github.com/kirinyoku/cinema-booking/internal/service"
	"github.com/kirinyoku/cinema-booking/internal/service/booking"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Options struct {
	// Idem enables Idempotency-Key handling on booking creation.
	Idem *redisrepo.IdempotencyStore
	// Hub feeds the seat stream. A private hub is created when nil.
	Hub          *SeatHub
	ServiceToken string

	StreamHeartbeat time.Duration
	StreamRefresh   time.Duration
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	registerValidators()

	if opts.Hub == nil {
		opts.Hub = NewSeatHub()
	}
	if opts.StreamHeartbeat <= 0 {
		opts.StreamHeartbeat = 15 * time.Second
	}
	if opts.StreamRefresh <= 0 {
		opts.StreamRefresh = 30 * time.Second
	}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	bookings := api.Group("/bookings")
	{
		bookings.POST("", handleCreateBooking(svcs, opts.Idem, logger))
		bookings.GET("/by-code/:code", handleGetBookingByCode(svcs))
		bookings.GET("/:id", handleGetBooking(svcs))
		bookings.GET("/:id/status", handleBookingStatus(svcs))
		bookings.PUT("/:id/extras", handleAttachExtras(svcs))
		bookings.POST("/:id/confirm", handleConfirmBooking(svcs))
		bookings.POST("/:id/payment", ServiceAuth(opts.ServiceToken, logger), handlePaymentCompleted(svcs))
		bookings.DELETE("/:id", handleCancelBooking(svcs))
	}

	showtimes := api.Group("/showtimes")
	{
		showtimes.GET("/seats", handleBookedSeats(svcs))
		showtimes.POST("/availability", handleCheckAvailability(svcs))
		showtimes.GET("/seats/stream", handleSeatStream(svcs, opts.Hub, opts.StreamHeartbeat, opts.StreamRefresh))
	}

	return r
}

// @Summary  Hold seats for a showtime
// @Description Creates a temporary booking holding the seats. Repeating a request with the same Idempotency-Key replays the first response.
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    Idempotency-Key header string false "client retry key"
// @Param    req body CreateBookingRequest true "payload"
// @Success  201 {object} BookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "movie or showtime not found"
// @Failure  409 {object} ErrorResponse "seats unavailable / idempotency key in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse
// @Router   /api/bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}

		key, err := showtimeKey(req.MovieID, req.Cinema, req.ShowtimeDate, req.ShowtimeTime)
		if err != nil {
			respondErr(c, err)
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader(headerIdemKey))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			storageKey := redisrepo.KeyIdemCreate(idemKey)

			state, payload, err := idem.Begin(ctx, storageKey)
			switch {
			case err != nil:
				// redis trouble must not block bookings
				logger.Warn("idempotency unavailable", "err", err)
			case state == redisrepo.IdemDone:
				c.Header(headerIdemKey, idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			case state == redisrepo.IdemInFlight:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{
					Error: "a request with this idempotency key is in progress",
					Code:  "idempotency_in_progress",
				})
				return
			default:
				idemStorageKey = storageKey
			}
		}

		in := booking.CreateInput{
			UserID:        req.UserID,
			Showtime:      key,
			Seats:         toSeats(req.Seats),
			Extras:        toExtraRequests(req.Combos),
			PaymentMethod: req.PaymentMethod,
			ClientKey:     "ip:" + c.ClientIP(),
		}
		if req.FullName != "" || req.Phone != "" || req.Email != "" || req.Note != "" {
			in.Customer = &domain.Customer{
				FullName: req.FullName,
				Phone:    req.Phone,
				Email:    req.Email,
				Note:     req.Note,
			}
		}

		b, err := svcs.Booking.Create(ctx, in)
		if err != nil {
			if idemStorageKey != "" {
				if rerr := idem.Release(context.WithoutCancel(ctx), idemStorageKey); rerr != nil {
					logger.Warn("release idempotency key", "err", rerr)
				}
			}
			respondErr(c, err)
			return
		}

		resp := toBookingResponse(b)

		if idemStorageKey != "" {
			if payload, err := json.Marshal(resp); err == nil {
				if err := idem.Save(context.WithoutCancel(ctx), idemStorageKey, string(payload)); err != nil {
					logger.Warn("save idempotent response", "err", err)
				}
			}
			c.Header(headerIdemKey, idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get booking
// @Tags     bookings
// @Produce  json
// @Param    id path int true "Booking ID"
// @Success  200 {object} BookingResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		b, err := svcs.Booking.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Get booking by its code
// @Tags     bookings
// @Produce  json
// @Param    code path string true "Booking code"
// @Success  200 {object} BookingResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/bookings/by-code/{code} [get]
func handleGetBookingByCode(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Booking.GetByCode(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Booking status
// @Description Lifecycle state and the seconds left on a hold. A lapsed hold is reported as expired.
// @Tags     bookings
// @Produce  json
// @Param    id path int true "Booking ID"
// @Success  200 {object} StatusResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/bookings/{id}/status [get]
func handleBookingStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		info, err := svcs.Booking.Status(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		b := info.Booking
		resp := StatusResponse{
			ID:            b.ID,
			BookingCode:   b.Code,
			Status:        b.Status,
			PaymentStatus: b.PaymentStatus,
			IsTemporary:   b.IsTemporary,
			ExpiresAt:     b.HoldExpiresAt,
			Expired:       b.Status == domain.StatusExpired,
		}
		if info.TimeRemaining != nil {
			secs := int64(math.Ceil(info.TimeRemaining.Seconds()))
			resp.TimeRemaining = &secs
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Replace the combo selection of a held booking
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    id  path int true "Booking ID"
// @Param    req body UpdateCombosRequest true "payload"
// @Success  200 {object} BookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  410 {object} ErrorResponse "hold expired"
// @Router   /api/bookings/{id}/extras [put]
func handleAttachExtras(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req UpdateCombosRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}

		b, err := svcs.Booking.AttachExtras(c.Request.Context(), id, toExtraRequests(req.Combos))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Confirm a held booking
// @Description Records customer details and moves the booking to pending payment.
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    id  path int true "Booking ID"
// @Param    req body ConfirmBookingRequest true "payload"
// @Success  200 {object} BookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Failure  410 {object} ErrorResponse "hold expired"
// @Router   /api/bookings/{id}/confirm [post]
func handleConfirmBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req ConfirmBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}

		b, err := svcs.Booking.Confirm(c.Request.Context(), id, booking.ConfirmInput{
			Customer: domain.Customer{
				FullName: req.FullName,
				Phone:    req.Phone,
				Email:    req.Email,
				Note:     req.Note,
			},
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Payment completed callback
// @Description Called by the payment service. Requires X-Service-Token.
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    X-Service-Token header string true "service token"
// @Param    id  path int true "Booking ID"
// @Param    req body PaymentCompletedRequest true "payload"
// @Success  200 {object} BookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/bookings/{id}/payment [post]
func handlePaymentCompleted(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req PaymentCompletedRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				bindErr(c, err)
				return
			}
		}

		b, err := svcs.Booking.MarkPaid(c.Request.Context(), id, domain.PaymentReference{
			PaymentID:   req.PaymentID,
			PaymentCode: req.PaymentCode,
			Provider:    req.Provider,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Cancel a booking
// @Description Releases the seats of a held or pending booking.
// @Tags     bookings
// @Produce  json
// @Param    id path int true "Booking ID"
// @Success  200 {object} BookingResponse
// @Failure  400 {object} ErrorResponse "already completed, cancelled or expired"
// @Failure  404 {object} ErrorResponse
// @Router   /api/bookings/{id} [delete]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		b, err := svcs.Booking.Cancel(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Booked seats of a showtime
// @Tags     showtimes
// @Produce  json
// @Param    movieId query string true "Movie ID"
// @Param    cinema  query string true "Cinema"
// @Param    date    query string true "Date (YYYY-MM-DD)"
// @Param    time    query string true "Time (HH:MM)"
// @Success  200 {object} BookedSeatsResponse
// @Success  304 "not modified"
// @Failure  400 {object} ErrorResponse
// @Router   /api/showtimes/seats [get]
func handleBookedSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q ShowtimeQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			bindErr(c, err)
			return
		}

		key, err := showtimeKey(q.MovieID, q.Cinema, q.Date, q.Time)
		if err != nil {
			respondErr(c, err)
			return
		}

		seats, err := svcs.Booking.BookedSeats(c.Request.Context(), key)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, BookedSeatsResponse{
			MovieID:     key.MovieID,
			Cinema:      key.Cinema,
			Date:        key.Date,
			Time:        key.Time,
			BookedSeats: seats,
		}, "no-cache")
	}
}

// @Summary  Check whether seats are free
// @Tags     showtimes
// @Accept   json
// @Produce  json
// @Param    req body AvailabilityRequest true "payload"
// @Success  200 {object} domain.Availability
// @Failure  400 {object} ErrorResponse
// @Router   /api/showtimes/availability [post]
func handleCheckAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AvailabilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindErr(c, err)
			return
		}

		key, err := showtimeKey(req.MovieID, req.Cinema, req.ShowtimeDate, req.ShowtimeTime)
		if err != nil {
			respondErr(c, err)
			return
		}

		avail, err := svcs.Booking.CheckAvailability(c.Request.Context(), key, req.SeatNumbers)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, avail)
	}
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
