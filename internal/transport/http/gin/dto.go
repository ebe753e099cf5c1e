package httpgin

import (
	"encoding/json"

	"github.com/kirinyoku/ceylontix/internal/domain"
)

type HashRequest struct {
	MerchantID string      `json:"merchant_id"`
	OrderID    string      `json:"order_id" binding:"required"`
	Amount     json.Number `json:"amount" binding:"required"`
	Currency   string      `json:"currency" binding:"required"`
}

type CheckoutRequest struct {
	OrderID   string `json:"order_id"`
	EventID   string `json:"event_id" binding:"required"`
	TierName  string `json:"tier" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UserEmail string `json:"email" binding:"required,email"`
	UserName  string `json:"name"`
}

type CreateEventRequest struct {
	ID    string      `json:"id"`
	Name  string      `json:"name" binding:"required"`
	Tiers []TierInput `json:"ticket_tiers" binding:"required,min=1,dive"`
}

type TierInput struct {
	Name       string `json:"name" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"gte=0"`
	Quantity   int    `json:"quantity" binding:"gte=0"`
}

type RestockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RestockResponse struct {
	EventID   string `json:"event_id"`
	Tier      string `json:"tier"`
	Remaining int    `json:"remaining"`
}

func (r CreateEventRequest) tiers() []domain.Tier {
	out := make([]domain.Tier, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		out = append(out, domain.Tier{
			Name:       t.Name,
			PriceCents: t.PriceCents,
			Quantity:   t.Quantity,
		})
	}
	return out
}
