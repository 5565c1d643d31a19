// Package notify fans a committed booking change out to the showtime cache,
// the cross-instance pub/sub channel and the lifecycle event stream.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	redisrepo "github.com/kirinyoku/cinema-booking/internal/repository/redis"
)

const hookTimeout = 3 * time.Second

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.BookingEvent) error
}

// Notifier is safe to use with any of its collaborators nil.
type Notifier struct {
	cache  *redisrepo.Cache
	pubsub *redisrepo.ShowtimePubSub
	events EventPublisher
	local  func(domain.ShowtimeKey)
	log    *slog.Logger
}

func New(
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowtimePubSub,
	events EventPublisher,
	log *slog.Logger,
) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{cache: cache, pubsub: pubsub, events: events, log: log}
}

// OnLocalChange registers fn to be called in-process for every change. Used
// when there is no pub/sub channel to deliver changes back to this instance.
func (n *Notifier) OnLocalChange(fn func(domain.ShowtimeKey)) {
	n.local = fn
}

// Changed reports a committed change of b. Failures are logged only: the
// booking is already durable.
func (n *Notifier) Changed(ctx context.Context, t domain.EventType, b domain.Booking, at time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()

	log := n.log.With("booking_id", b.ID, "booking_code", b.Code, "event", string(t))

	if err := n.cache.InvalidateShowtime(ctx, b.Showtime); err != nil {
		log.Warn("invalidate showtime cache", "err", err)
	}

	if err := n.pubsub.PublishShowtimeChanged(ctx, b.Showtime); err != nil {
		log.Warn("publish showtime changed", "err", err)
	}

	if n.local != nil {
		n.local(b.Showtime)
	}

	if n.events != nil {
		if err := n.events.Publish(ctx, domain.NewBookingEvent(t, b, at)); err != nil {
			log.Warn("publish booking event", "err", err)
		}
	}
}
