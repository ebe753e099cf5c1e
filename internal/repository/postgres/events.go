package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
)

// EventRepo owns the events table. Each row keeps its ordered tier list in
// the ticket_tiers JSONB column; that column is the inventory ledger.
type EventRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EventRepo) With(db DB) *EventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts an event with its tiers.
//
// Returns:
//   - error: repository.ErrConflict if the event id already exists.
func (r *EventRepo) Create(ctx context.Context, e domain.Event) error {
	const op = "postgresrepo.EventRepo.Create"

	db := r.handle()

	tiers := e.Tiers
	if tiers == nil {
		tiers = []domain.Tier{}
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO events(id, name, ticket_tiers, created_at)
		 VALUES ($1, $2, $3, $4)`,
		e.ID, e.Name, tiers, e.CreatedAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get reads an event without locking it.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *EventRepo) Get(ctx context.Context, id string) (*domain.Event, error) {
	return r.get(ctx, "postgresrepo.EventRepo.Get", id, false)
}

// GetForUpdate reads an event and holds a row lock on it until the
// surrounding transaction ends, serializing tier decrements per event.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *EventRepo) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.get(ctx, "postgresrepo.EventRepo.GetForUpdate", id, true)
}

func (r *EventRepo) get(ctx context.Context, op, id string, lock bool) (*domain.Event, error) {
	db := r.handle()

	q := `SELECT id, name, ticket_tiers, created_at FROM events WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	var e domain.Event
	if err := db.QueryRow(ctx, q, id).Scan(&e.ID, &e.Name, &e.Tiers, &e.CreatedAt); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

// UpdateTiers replaces the tier list of an event.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *EventRepo) UpdateTiers(ctx context.Context, eventID string, tiers []domain.Tier) error {
	const op = "postgresrepo.EventRepo.UpdateTiers"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE events SET ticket_tiers = $2 WHERE id = $1`,
		eventID, tiers,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
