package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/ceylontix/internal/domain"
)

// PendingRepo stores reservations awaiting a payment notification in the
// pending_bookings table.
type PendingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PendingRepo) With(db DB) *PendingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PendingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a pending reservation.
//
// Returns:
//   - error: repository.ErrConflict if the order id is already taken.
func (r *PendingRepo) Create(ctx context.Context, res domain.Reservation) error {
	const op = "postgresrepo.PendingRepo.Create"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO pending_bookings(
		 	order_id, event_id, event_name, tier_name, quantity,
		 	user_email, user_name, total_cents, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		res.OrderID, res.EventID, res.EventName, res.TierName, res.Quantity,
		res.UserEmail, res.UserName, res.TotalCents, res.Currency,
		string(domain.BookingPending), res.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get reads a pending reservation and locks its row until the surrounding
// transaction ends.
//
// Returns:
//   - error: repository.ErrNotFound if no reservation exists for orderID.
func (r *PendingRepo) Get(ctx context.Context, orderID string) (*domain.Reservation, error) {
	const op = "postgresrepo.PendingRepo.Get"

	db := r.handle()

	var res domain.Reservation
	var status string
	err := db.QueryRow(ctx,
		`SELECT order_id, event_id, event_name, tier_name, quantity,
		        user_email, user_name, total_cents, currency, status, created_at
		 FROM pending_bookings
		 WHERE order_id = $1
		 FOR UPDATE`,
		orderID,
	).Scan(
		&res.OrderID, &res.EventID, &res.EventName, &res.TierName, &res.Quantity,
		&res.UserEmail, &res.UserName, &res.TotalCents, &res.Currency, &status, &res.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	res.Status = domain.BookingStatus(status)

	return &res, nil
}

// Delete removes a pending reservation and reports whether one existed.
func (r *PendingRepo) Delete(ctx context.Context, orderID string) (bool, error) {
	const op = "postgresrepo.PendingRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM pending_bookings WHERE order_id = $1`, orderID)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() > 0, nil
}
