package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/cinema-booking/internal/repository"
	postgres "github.com/kirinyoku/cinema-booking/internal/repository/postgres"
)

// UoW represents a unit of work over the booking store.
type UoW struct {
	store *postgres.Store
	repo  *postgres.BookingRepo
}

var _ repository.Transactor = (*UoW)(nil)

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store, repo: store.Bookings()}
}

// Do runs fn inside a READ COMMITTED transaction. Seat claims rely on
// row-level conflicts, so concurrent creations see ON CONFLICT instead of
// serialization failures. After a successful commit it executes all
// after-commit hooks.
func (u *UoW) Do(ctx context.Context, fn repository.TxFunc) error {
	return u.DoWithOpts(ctx, &pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) DoWithOpts(ctx context.Context, opts *pgx.TxOptions, fn repository.TxFunc) error {
	var hooks []repository.AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		return fn(ctx, u.repo.With(tx), func(h repository.AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
