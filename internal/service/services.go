package service

import (
	"log/slog"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/repository"
	redis "github.com/kirinyoku/cinema-booking/internal/repository/redis"
	"github.com/kirinyoku/cinema-booking/internal/service/booking"
	"github.com/kirinyoku/cinema-booking/internal/service/notify"
	"github.com/kirinyoku/cinema-booking/internal/service/reclaimer"
)

type Services struct {
	Booking   *booking.Service
	Reclaimer *reclaimer.Reclaimer
}

type Config struct {
	Booking   booking.Config
	Reclaimer reclaimer.Config
}

// Infra bundles the stores and collaborators services are built on. Every
// field except Tx and Repo may be nil.
type Infra struct {
	Tx      repository.Transactor
	Repo    repository.BookingRepository
	Catalog booking.Catalog
	Cache   *redis.Cache
	PubSub  *redis.ShowtimePubSub
	Limiter booking.RateLimiter
	Events  notify.EventPublisher

	// OnShowtimeChanged, if set, is told about every committed change.
	OnShowtimeChanged func(domain.ShowtimeKey)
}

func NewServices(infra Infra, log *slog.Logger, cfg Config) *Services {
	n := notify.New(infra.Cache, infra.PubSub, infra.Events, log)
	if infra.OnShowtimeChanged != nil {
		n.OnLocalChange(infra.OnShowtimeChanged)
	}

	return &Services{
		Booking: booking.New(booking.Deps{
			Tx:       infra.Tx,
			Repo:     infra.Repo,
			Catalog:  infra.Catalog,
			Cache:    infra.Cache,
			Limiter:  infra.Limiter,
			Notifier: n,
			Log:      log,
		}, cfg.Booking),
		Reclaimer: reclaimer.New(infra.Tx, infra.Repo, n, log, cfg.Reclaimer),
	}
}
