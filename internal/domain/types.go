package domain

import (
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
)

// Tier is a named ticket category of an event. Quantity is the number of
// tickets still available and never goes below zero.
type Tier struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tiers     []Tier    `json:"ticket_tiers"`
	CreatedAt time.Time `json:"created_at"`
}

// TierIndex returns the position of the named tier or -1.
func (e *Event) TierIndex(name string) int {
	for i := range e.Tiers {
		if e.Tiers[i].Name == name {
			return i
		}
	}
	return -1
}

// Reservation is a tentative ticket hold created before the payer is
// redirected to the gateway. It is keyed by the order id.
type Reservation struct {
	OrderID    string        `json:"order_id"`
	EventID    string        `json:"event_id"`
	EventName  string        `json:"event_name"`
	TierName   string        `json:"tier_name"`
	Quantity   int           `json:"quantity"`
	UserEmail  string        `json:"user_email"`
	UserName   string        `json:"user_name"`
	TotalCents int64         `json:"total_cents"`
	Currency   string        `json:"currency"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Booking is the immutable confirmed form of a reservation. It reuses the
// reservation's order id as its key.
type Booking struct {
	Reservation
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (r Reservation) Confirm(at time.Time) Booking {
	r.Status = BookingConfirmed
	return Booking{Reservation: r, ConfirmedAt: at}
}
