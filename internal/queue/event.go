// Package queue publishes booking events for downstream consumers such as
// the confirmation email sender.
package queue

import (
	"time"

	"github.com/kirinyoku/ceylontix/internal/domain"
)

const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent carries everything the email sender renders, so it
// never has to read the booking store.
type BookingConfirmedEvent struct {
	BookingID   string `json:"booking_id"`
	EventID     string `json:"event_id"`
	EventName   string `json:"event_name"`
	TierName    string `json:"tier_name"`
	Quantity    int    `json:"quantity"`
	UserEmail   string `json:"user_email"`
	UserName    string `json:"user_name"`
	TotalCents  int64  `json:"total_cents"`
	Currency    string `json:"currency"`
	ConfirmedAt string `json:"confirmed_at"`
}

func NewBookingConfirmedEvent(b domain.Booking) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID:   b.OrderID,
		EventID:     b.EventID,
		EventName:   b.EventName,
		TierName:    b.TierName,
		Quantity:    b.Quantity,
		UserEmail:   b.UserEmail,
		UserName:    b.UserName,
		TotalCents:  b.TotalCents,
		Currency:    b.Currency,
		ConfirmedAt: b.ConfirmedAt.UTC().Format(time.RFC3339),
	}
}
