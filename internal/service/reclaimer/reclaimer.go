// Package reclaimer turns lapsed holds into expired bookings and purges
// expired bookings once their retention period is over.
package reclaimer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/repository"
	"github.com/kirinyoku/cinema-booking/internal/service/notify"
)

type Config struct {
	Interval      time.Duration
	PurgeInterval time.Duration
	Retention     time.Duration
	BatchSize     int
	StoreTimeout  time.Duration
	Now           func() time.Time
}

// Report summarises one sweep.
type Report struct {
	Scanned int
	Expired int
	Purged  int
	Skipped int
	Failed  int
}

func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("scanned", r.Scanned),
		slog.Int("expired", r.Expired),
		slog.Int("purged", r.Purged),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
	)
}

type Reclaimer struct {
	tx       repository.Transactor
	repo     repository.BookingRepository
	notifier *notify.Notifier
	log      *slog.Logger
	cfg      Config
}

func New(
	tx repository.Transactor,
	repo repository.BookingRepository,
	notifier *notify.Notifier,
	log *slog.Logger,
	cfg Config,
) *Reclaimer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = time.Hour
	}

	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if log == nil {
		log = slog.Default()
	}

	return &Reclaimer{
		tx:       tx,
		repo:     repo,
		notifier: notifier,
		log:      log.With("component", "reclaimer"),
		cfg:      cfg,
	}
}

// Run sweeps on every tick until ctx is cancelled. It returns nil on
// cancellation.
func (r *Reclaimer) Run(ctx context.Context) error {
	expireTicker := time.NewTicker(r.cfg.Interval)
	defer expireTicker.Stop()

	purgeTicker := time.NewTicker(r.cfg.PurgeInterval)
	defer purgeTicker.Stop()

	r.log.Info("reclaimer started",
		"interval", r.cfg.Interval,
		"purge_interval", r.cfg.PurgeInterval,
		"retention", r.cfg.Retention,
	)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reclaimer stopped")
			return nil
		case <-expireTicker.C:
			rep, err := r.ExpireOnce(ctx)
			r.logSweep("expire sweep", rep, err)
		case <-purgeTicker.C:
			rep, err := r.PurgeOnce(ctx)
			r.logSweep("purge sweep", rep, err)
		}
	}
}

func (r *Reclaimer) logSweep(msg string, rep Report, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		r.log.Error(msg, "report", rep, "err", err)
		return
	}
	if rep.Scanned > 0 {
		r.log.Info(msg, "report", rep)
	}
}

// ExpireOnce expires every hold that lapsed before now. Records that changed
// meanwhile are skipped; other per-record failures are counted and the sweep
// goes on.
//
// Returns:
//   - Report: per-sweep counters.
//   - error: only if listing lapsed holds fails.
func (r *Reclaimer) ExpireOnce(ctx context.Context) (Report, error) {
	const op = "service.reclaimer.ExpireOnce"

	var rep Report
	now := r.cfg.Now()
	failed := make(map[int64]struct{})

	for {
		limit := r.cfg.BatchSize + len(failed)
		batch, err := r.listLapsed(ctx, now, limit)
		if err != nil {
			return rep, fmt.Errorf("%s:%w", op, err)
		}

		progressed := false
		for _, b := range batch {
			if _, seen := failed[b.ID]; seen {
				continue
			}
			rep.Scanned++
			progressed = true

			switch err := r.expire(ctx, b.ID, now); {
			case err == nil:
				rep.Expired++
			case errors.Is(err, repository.ErrStale),
				errors.Is(err, repository.ErrNotFound),
				domain.IsInvalidState(err):
				rep.Skipped++
			default:
				rep.Failed++
				failed[b.ID] = struct{}{}
				r.log.Warn("expire booking", "booking_id", b.ID, "err", err)
			}
		}

		if !progressed || len(batch) < limit {
			return rep, nil
		}
	}
}

func (r *Reclaimer) listLapsed(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	return r.repo.ListLapsedHolds(ctx, now, limit)
}

func (r *Reclaimer) expire(ctx context.Context, id int64, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	return r.tx.Do(ctx, func(
		ctx context.Context,
		repo repository.BookingRepository,
		after func(repository.AfterCommit),
	) error {
		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}

		next, err := domain.Expire(cur, now)
		if err != nil {
			return err
		}

		if err := repo.UpdateIfStatus(ctx, next, cur.Status); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			if r.notifier != nil {
				r.notifier.Changed(ctx, domain.EventExpired, next, now)
			}
		})

		return nil
	})
}

// PurgeOnce permanently deletes expired bookings soft-deleted more than
// Retention ago, one record at a time.
func (r *Reclaimer) PurgeOnce(ctx context.Context) (Report, error) {
	const op = "service.reclaimer.PurgeOnce"

	var rep Report
	now := r.cfg.Now()
	before := now.Add(-r.cfg.Retention)
	failed := make(map[int64]struct{})

	for {
		limit := r.cfg.BatchSize + len(failed)
		batch, err := r.listPurgeable(ctx, before, limit)
		if err != nil {
			return rep, fmt.Errorf("%s:%w", op, err)
		}

		progressed := false
		for _, b := range batch {
			if _, seen := failed[b.ID]; seen {
				continue
			}
			rep.Scanned++
			progressed = true

			switch err := r.purge(ctx, b, now); {
			case err == nil:
				rep.Purged++
			case errors.Is(err, repository.ErrNotFound):
				rep.Skipped++
			default:
				rep.Failed++
				failed[b.ID] = struct{}{}
				r.log.Warn("purge booking", "booking_id", b.ID, "err", err)
			}
		}

		if !progressed || len(batch) < limit {
			return rep, nil
		}
	}
}

func (r *Reclaimer) listPurgeable(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	return r.repo.ListPurgeable(ctx, before, limit)
}

func (r *Reclaimer) purge(ctx context.Context, b domain.Booking, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	if err := r.repo.DeleteIfStatus(ctx, b.ID, domain.StatusExpired); err != nil {
		return err
	}

	if r.notifier != nil {
		r.notifier.Changed(ctx, domain.EventPurged, b, now)
	}

	return nil
}
