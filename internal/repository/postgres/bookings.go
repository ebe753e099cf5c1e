package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/ceylontix/internal/domain"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create writes a confirmed booking keyed by its order id. An existing
// booking with the same key is left untouched and reported as not inserted.
func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (bool, error) {
	const op = "postgresrepo.BookingRepo.Create"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`INSERT INTO bookings(
		 	order_id, event_id, event_name, tier_name, quantity,
		 	user_email, user_name, total_cents, currency, status,
		 	created_at, confirmed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (order_id) DO NOTHING`,
		b.OrderID, b.EventID, b.EventName, b.TierName, b.Quantity,
		b.UserEmail, b.UserName, b.TotalCents, b.Currency,
		string(domain.BookingConfirmed), b.CreatedAt, b.ConfirmedAt,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Get returns the confirmed booking for orderID.
//
// Returns:
//   - error: repository.ErrNotFound if the order has no booking.
func (r *BookingRepo) Get(ctx context.Context, orderID string) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	db := r.handle()

	var b domain.Booking
	var status string
	err := db.QueryRow(ctx,
		`SELECT order_id, event_id, event_name, tier_name, quantity,
		        user_email, user_name, total_cents, currency, status,
		        created_at, confirmed_at
		 FROM bookings WHERE order_id = $1`,
		orderID,
	).Scan(
		&b.OrderID, &b.EventID, &b.EventName, &b.TierName, &b.Quantity,
		&b.UserEmail, &b.UserName, &b.TotalCents, &b.Currency, &status,
		&b.CreatedAt, &b.ConfirmedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	b.Status = domain.BookingStatus(status)

	return &b, nil
}
