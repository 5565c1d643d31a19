package httpgin

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/service"
)

// SeatHub wakes up the seat streams watching a showtime. Each subscriber
// has a one-slot buffer, so bursts of changes collapse into one refresh.
type SeatHub struct {
	mu     sync.Mutex
	subs   map[domain.ShowtimeKey]map[chan struct{}]struct{}
	closed bool
}

func NewSeatHub() *SeatHub {
	return &SeatHub{subs: make(map[domain.ShowtimeKey]map[chan struct{}]struct{})}
}

// Notify tells every stream on k that its seats changed. It never blocks.
func (h *SeatHub) Notify(k domain.ShowtimeKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[k] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close ends every open stream. Register it with http.Server.RegisterOnShutdown.
func (h *SeatHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for _, chans := range h.subs {
		for ch := range chans {
			close(ch)
		}
	}
	h.subs = make(map[domain.ShowtimeKey]map[chan struct{}]struct{})
}

// subscribe returns a channel that receives a value after every change on k
// and is closed when the hub shuts down.
func (h *SeatHub) subscribe(k domain.ShowtimeKey) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.subs[k] == nil {
		h.subs[k] = make(map[chan struct{}]struct{})
	}
	h.subs[k][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(h.subs[k], ch)
		if len(h.subs[k]) == 0 {
			delete(h.subs, k)
		}
	}
}

func (h *SeatHub) watchers(k domain.ShowtimeKey) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[k])
}

// @Summary  Stream booked seats of a showtime (SSE)
// @Description Emits a "seats" event with the booked seats on connect, on every change and periodically. "ping" events keep the connection alive.
// @Tags     showtimes
// @Produce  text/event-stream
// @Param    movieId query string true "Movie ID"
// @Param    cinema  query string true "Cinema"
// @Param    date    query string true "Date (YYYY-MM-DD)"
// @Param    time    query string true "Time (HH:MM)"
// @Success  200 {object} BookedSeatsResponse
// @Failure  400 {object} ErrorResponse
// @Router   /api/showtimes/seats/stream [get]
func handleSeatStream(svcs *service.Services, hub *SeatHub, heartbeat, refresh time.Duration) gin.HandlerFunc {
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

		ctx := c.Request.Context()

		// the first snapshot doubles as validation, before the stream is committed
		seats, err := svcs.Booking.BookedSeats(ctx, key)
		if err != nil {
			respondErr(c, err)
			return
		}

		updates, unsubscribe := hub.subscribe(key)
		defer unsubscribe()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		emit := func(seats []string) {
			c.SSEvent("seats", BookedSeatsResponse{
				MovieID:     key.MovieID,
				Cinema:      key.Cinema,
				Date:        key.Date,
				Time:        key.Time,
				BookedSeats: seats,
			})
		}
		resend := func() {
			seats, err := svcs.Booking.BookedSeats(ctx, key)
			if err != nil {
				c.SSEvent("error", ErrorResponse{Error: "seat list temporarily unavailable", Code: "unavailable"})
				return
			}
			emit(seats)
		}

		emit(seats)
		c.Writer.Flush()

		ping := time.NewTicker(heartbeat)
		defer ping.Stop()

		// holds lapse without any write, so re-read now and then
		tick := time.NewTicker(refresh)
		defer tick.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case _, ok := <-updates:
				if !ok {
					return false
				}
				resend()
			case <-tick.C:
				resend()
			case now := <-ping.C:
				c.SSEvent("ping", now.Unix())
			}
			return true
		})
	}
}
