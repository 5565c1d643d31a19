package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/cinema-booking/internal/catalog"
	"github.com/kirinyoku/cinema-booking/internal/config"
	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/events/kafka"
	"github.com/kirinyoku/cinema-booking/internal/postgres"
	"github.com/kirinyoku/cinema-booking/internal/redis"
	postgresrepo "github.com/kirinyoku/cinema-booking/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/cinema-booking/internal/repository/redis"
	"github.com/kirinyoku/cinema-booking/internal/service"
	"github.com/kirinyoku/cinema-booking/internal/service/booking"
	"github.com/kirinyoku/cinema-booking/internal/service/reclaimer"
	httpgin "github.com/kirinyoku/cinema-booking/internal/transport/http/gin"
	"github.com/kirinyoku/cinema-booking/internal/uow"
)

const (
	idempotencyTTL  = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	hub        *httpgin.SeatHub

	pool   *pgxpool.Pool
	rdb    *goredis.Client
	pubsub *redisrepo.ShowtimePubSub
	events *kafka.Publisher
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgCfg := postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Name,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.MaxConns,
	}

	if cfg.Postgres.MigrateOnStart {
		if err := postgres.Migrate(pgCfg.DSN(), logger); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	pgxPool, err := postgres.New(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, pool: pgxPool, hub: httpgin.NewSeatHub()}

	store := postgresrepo.NewStore(pgxPool)
	infra := service.Infra{
		Tx:   uow.NewUoW(store),
		Repo: store.Bookings(),
	}

	var (
		cache *redisrepo.Cache
		idem  *redisrepo.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		a.rdb, err = redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		cache = redisrepo.New(a.rdb)
		a.pubsub = redisrepo.NewShowtimePubSub(a.rdb)
		idem = redisrepo.NewIdempotencyStore(a.rdb, idempotencyTTL, 30*time.Second)

		infra.Cache = cache
		infra.PubSub = a.pubsub
		if cfg.Redis.RateLimitPerMinute > 0 {
			infra.Limiter = redisrepo.NewSlidingWindowLimiter(a.rdb, "create", cfg.Redis.RateLimitPerMinute, time.Minute)
		}
	} else {
		logger.Warn("REDIS_ADDR is not set, running without cache, rate limits and idempotency keys")
		infra.OnShowtimeChanged = a.hub.Notify
	}

	infra.Catalog = catalog.New(catalog.Config{
		BaseURL:      cfg.Catalog.URL,
		ServiceToken: cfg.Server.ServiceToken,
		Timeout:      cfg.Catalog.Timeout,
	}, cache)

	if len(cfg.Kafka.Brokers) > 0 {
		a.events = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		infra.Events = a.events
	}

	a.services = service.NewServices(infra, logger, service.Config{
		Booking: booking.Config{
			HoldDuration: cfg.Booking.HoldDuration,
			StoreTimeout: cfg.Booking.StoreTimeout,
			Menu:         domain.DefaultCombos,
		},
		Reclaimer: reclaimer.Config{
			Interval:      cfg.Reclaimer.Interval,
			PurgeInterval: cfg.Reclaimer.PurgeInterval,
			Retention:     cfg.Reclaimer.Retention,
			StoreTimeout:  cfg.Booking.StoreTimeout,
		},
	})

	router := httpgin.NewRouter(a.services, httpgin.Options{
		Idem:         idem,
		Hub:          a.hub,
		ServiceToken: cfg.Server.ServiceToken,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.httpServer.RegisterOnShutdown(a.hub.Close)

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.services.Reclaimer.Run(gCtx)
	})

	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(_ context.Context, k domain.ShowtimeKey) {
				a.hub.Notify(k)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("showtime subscription: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close releases the connections held by the app. Run calls it on exit.
func (a *App) Close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("close kafka writer", "err", err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("close redis", "err", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
