package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
	postgresrepo "github.com/kirinyoku/ceylontix/internal/repository/postgres"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

type PendingRepo interface {
	Create(ctx context.Context, res domain.Reservation) error
	Get(ctx context.Context, orderID string) (*domain.Reservation, error)
	Delete(ctx context.Context, orderID string) (bool, error)
}

type BookingRepo interface {
	Create(ctx context.Context, b domain.Booking) (bool, error)
	Get(ctx context.Context, orderID string) (*domain.Booking, error)
}

type EventRepo interface {
	Create(ctx context.Context, e domain.Event) error
	Get(ctx context.Context, id string) (*domain.Event, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Event, error)
	UpdateTiers(ctx context.Context, eventID string, tiers []domain.Tier) error
}

// Tx gives access to repositories bound to one transaction.
type Tx interface {
	Pending() PendingRepo
	Bookings() BookingRepo
	Events() EventRepo
}

// Work is the body of a unit of work. Hooks registered through after run
// only once the transaction has committed.
type Work func(ctx context.Context, tx Tx, after func(AfterCommit)) error

// Runner executes units of work atomically. An abort caused by concurrent
// access is reported as repository.ErrTxConflict.
type Runner interface {
	Do(ctx context.Context, fn Work) error
}

// UoW represents a unit of work on the Postgres store.
type UoW struct {
	store *postgresrepo.Store
}

func NewUoW(store *postgresrepo.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(ctx context.Context, fn Work) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) DoWithOpts(ctx context.Context, opts *pgx.TxOptions, fn Work) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, db postgresrepo.DB) error {
		return fn(ctx, pgTx{store: u.store, db: db}, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		if postgresrepo.IsRetryable(err) && !errors.Is(err, repository.ErrTxConflict) {
			return fmt.Errorf("%w: %w", repository.ErrTxConflict, err)
		}
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

type pgTx struct {
	store *postgresrepo.Store
	db    postgresrepo.DB
}

func (t pgTx) Pending() PendingRepo  { return t.store.Pending().With(t.db) }
func (t pgTx) Bookings() BookingRepo { return t.store.Bookings().With(t.db) }
func (t pgTx) Events() EventRepo     { return t.store.Events().With(t.db) }
