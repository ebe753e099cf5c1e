package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/payhere"
	"github.com/kirinyoku/ceylontix/internal/repository"
	redisrepo "github.com/kirinyoku/ceylontix/internal/repository/redis"
	"github.com/kirinyoku/ceylontix/internal/service/booking"
	"github.com/kirinyoku/ceylontix/internal/uow"
)

type Limiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

type Config struct {
	Currency    string
	CheckoutURL string
	NotifyURL   string
	ReturnURL   string
	CancelURL   string
}

// Service authenticates gateway traffic and hands verified notifications to
// the booking commit engine.
type Service struct {
	signer   *payhere.Signer
	bookings *booking.Service
	uow      uow.Runner
	limiter  Limiter
	logger   *slog.Logger
	cfg      Config
}

func New(
	signer *payhere.Signer,
	bookings *booking.Service,
	runner uow.Runner,
	limiter Limiter,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "LKR"
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		signer:   signer,
		bookings: bookings,
		uow:      runner,
		limiter:  limiter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Notify reconciles one gateway notification.
//
// Parameters:
//   - ctx: request-scoped context.
//   - n: the parsed notification.
//
// Returns:
//   - booking.Result: the terminal state reached.
//   - error: payhere.ErrSecretNotConfigured, payhere.ErrSignatureMismatch, or
//     an error from booking.Service.Confirm.
func (s *Service) Notify(ctx context.Context, n payhere.Notification) (booking.Result, error) {
	const op = "service.payment.Notify"

	if err := s.signer.Verify(n); err != nil {
		var mismatch *payhere.SignatureMismatchError
		switch {
		case errors.As(err, &mismatch):
			s.logger.Error("payhere signature mismatch",
				"order_id", mismatch.OrderID,
				"expected", mismatch.Expected,
				"received", mismatch.Received,
			)
		case errors.Is(err, payhere.ErrSecretNotConfigured):
			s.logger.Error("payhere secret is not configured")
		}
		return booking.Result{}, fmt.Errorf("%s:%w", op, err)
	}

	if !n.Succeeded() {
		res, err := s.bookings.Discard(ctx, n.OrderID)
		if err != nil {
			s.logger.Error("discard pending booking", "order_id", n.OrderID, "status_code", n.StatusCode, "error", err)
			return booking.Result{}, nil
		}
		s.logger.Info("payment not completed, pending booking discarded",
			"order_id", n.OrderID,
			"status_code", n.StatusCode,
			"outcome", res.Outcome,
		)
		return res, nil
	}

	res, err := s.bookings.Confirm(ctx, n.OrderID)
	if err != nil {
		s.logger.Error("booking transaction failed", "order_id", n.OrderID, "attempts", res.Attempts, "error", err)
		return res, fmt.Errorf("%s:%w", op, err)
	}

	if res.Booking != nil {
		s.warnOnMismatch(n, res.Booking)
	}

	s.logger.Info("payment notification processed", "order_id", n.OrderID, "outcome", res.Outcome)

	return res, nil
}

func (s *Service) warnOnMismatch(n payhere.Notification, b *domain.Booking) {
	paid, err := parseAmountCents(n.Amount)
	if err != nil || paid != b.TotalCents || !strings.EqualFold(n.Currency, b.Currency) {
		s.logger.Warn("paid amount differs from booking total",
			"order_id", b.OrderID,
			"paid", n.Amount+" "+n.Currency,
			"expected", payhere.FormatAmount(b.TotalCents)+" "+b.Currency,
		)
	}
}

type HashRequest struct {
	MerchantID string
	OrderID    string
	Amount     string
	Currency   string
}

type HashResponse struct {
	Hash       string `json:"hash"`
	MerchantID string `json:"merchant_id"`
}

// Hash exposes the checkout digest to a trusted client. The merchant id
// defaults to the configured one and the amount is normalized to two
// decimals.
//
// Returns:
//   - error: payhere.ErrSecretNotConfigured if the secret is missing.
//   - error: ErrInvalidAmount if the amount is not a decimal.
func (s *Service) Hash(req HashRequest) (HashResponse, error) {
	const op = "service.payment.Hash"

	merchantID := req.MerchantID
	if merchantID == "" {
		merchantID = s.signer.MerchantID
	}

	cents, err := parseAmountCents(req.Amount)
	if err != nil {
		return HashResponse{}, fmt.Errorf("%s:%w", op, err)
	}

	hash, err := s.signer.CheckoutHash(merchantID, req.OrderID, payhere.FormatAmount(cents), req.Currency)
	if err != nil {
		return HashResponse{}, fmt.Errorf("%s:%w", op, err)
	}

	return HashResponse{Hash: hash, MerchantID: merchantID}, nil
}

type CheckoutRequest struct {
	OrderID   string
	EventID   string
	TierName  string
	Quantity  int
	UserEmail string
	UserName  string
}

// CheckoutResponse is the form the browser posts to the gateway.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url,omitempty"`
	MerchantID  string `json:"merchant_id"`
	OrderID     string `json:"order_id"`
	Items       string `json:"items"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Hash        string `json:"hash"`
	NotifyURL   string `json:"notify_url,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	Email       string `json:"email"`
}

// Checkout prices the requested tickets, stores the pending reservation and
// returns the signed gateway payload. Inventory is only checked here; it is
// taken when the payment notification commits.
//
// Parameters:
//   - ctx: request-scoped context.
//   - req: the checkout request.
//   - rlKey: rate limit key of the caller, empty to skip limiting.
//
// Returns:
//   - *CheckoutResponse: the payload to post to the gateway.
//   - error: payhere.ErrSecretNotConfigured, ErrEventNotFound,
//     ErrTierNotFound, ErrSoldOut, ErrOrderExists or RateLimitedError.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest, rlKey string) (*CheckoutResponse, error) {
	const op = "service.payment.Checkout"

	if !s.signer.Configured() {
		return nil, fmt.Errorf("%s:%w", op, payhere.ErrSecretNotConfigured)
	}

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%s:%w: quantity must be positive", op, ErrInvalidRequest)
	}

	if s.limiter != nil && rlKey != "" {
		d, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = uuid.NewString()
	}

	var res domain.Reservation

	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		event, err := tx.Events().Get(ctx, req.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		idx := event.TierIndex(req.TierName)
		if idx < 0 {
			return ErrTierNotFound
		}

		tier := event.Tiers[idx]
		if tier.Quantity < req.Quantity {
			return ErrSoldOut
		}

		if _, err := tx.Bookings().Get(ctx, orderID); err == nil {
			return ErrOrderExists
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		res = domain.Reservation{
			OrderID:    orderID,
			EventID:    event.ID,
			EventName:  event.Name,
			TierName:   tier.Name,
			Quantity:   req.Quantity,
			UserEmail:  req.UserEmail,
			UserName:   req.UserName,
			TotalCents: tier.PriceCents * int64(req.Quantity),
			Currency:   s.cfg.Currency,
			Status:     domain.BookingPending,
			CreatedAt:  time.Now().UTC(),
		}

		if err := tx.Pending().Create(ctx, res); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrOrderExists
			}
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	amount := payhere.FormatAmount(res.TotalCents)

	hash, err := s.signer.CheckoutHash(s.signer.MerchantID, res.OrderID, amount, res.Currency)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("checkout created",
		"order_id", res.OrderID,
		"event_id", res.EventID,
		"tier", res.TierName,
		"quantity", res.Quantity,
	)

	return &CheckoutResponse{
		CheckoutURL: s.cfg.CheckoutURL,
		MerchantID:  s.signer.MerchantID,
		OrderID:     res.OrderID,
		Items:       fmt.Sprintf("%s - %s x%d", res.EventName, res.TierName, res.Quantity),
		Amount:      amount,
		Currency:    res.Currency,
		Hash:        hash,
		NotifyURL:   s.cfg.NotifyURL,
		ReturnURL:   s.cfg.ReturnURL,
		CancelURL:   s.cfg.CancelURL,
		FirstName:   res.UserName,
		Email:       res.UserEmail,
	}, nil
}
