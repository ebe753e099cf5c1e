package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
	"github.com/kirinyoku/ceylontix/internal/uow"
)

// Outcome is the terminal state a notification drove an order to.
type Outcome string

const (
	OutcomeConfirmed       Outcome = "confirmed"
	OutcomeDiscarded       Outcome = "discarded"
	OutcomeAlreadyResolved Outcome = "already_resolved"
)

type Result struct {
	Outcome  Outcome
	Booking  *domain.Booking
	Attempts int
}

type EventInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID string) error
}

type EventPublisher interface {
	PublishEventChanged(ctx context.Context, eventID string) error
}

type ConfirmationPublisher interface {
	PublishBookingConfirmed(ctx context.Context, b domain.Booking) error
}

type Config struct {
	// MaxAttempts bounds how often a unit of work aborted by a write
	// conflict is replayed.
	MaxAttempts  int
	RetryBackoff time.Duration
	HookTimeout  time.Duration
}

// Service is the booking commit engine. It moves a pending reservation to
// exactly one terminal state per order id.
type Service struct {
	uow      uow.Runner
	cache    EventInvalidator
	pubsub   EventPublisher
	notifier ConfirmationPublisher
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

func New(
	runner uow.Runner,
	cache EventInvalidator,
	pubsub EventPublisher,
	notifier ConfirmationPublisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 20 * time.Millisecond
	}

	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = 5 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		uow:      runner,
		cache:    cache,
		pubsub:   pubsub,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Confirm commits the paid reservation for orderID: it writes the confirmed
// booking, decrements the tier and deletes the pending reservation in one
// unit of work.
//
// Parameters:
//   - ctx: request-scoped context.
//   - orderID: order id of the pending reservation.
//
// Returns:
//   - Result: OutcomeConfirmed, or OutcomeAlreadyResolved when no pending
//     reservation exists any more.
//   - error: ErrEventNotFound, ErrTierNotFound or ErrInsufficientTickets
//     (all ErrReconciliationConflict); the reservation stays pending.
//   - error: ErrRetriesExhausted if every attempt hit a write conflict.
func (s *Service) Confirm(ctx context.Context, orderID string) (Result, error) {
	const op = "service.booking.Confirm"

	var res Result

	attempts, err := s.withRetry(ctx, op, func() error {
		res = Result{}
		return s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx, after func(uow.AfterCommit)) error {
			return s.confirmTx(ctx, tx, after, orderID, &res)
		})
	})
	if err != nil {
		return Result{Attempts: attempts}, err
	}

	res.Attempts = attempts

	return res, nil
}

func (s *Service) confirmTx(
	ctx context.Context,
	tx uow.Tx,
	after func(uow.AfterCommit),
	orderID string,
	res *Result,
) error {
	pending, err := tx.Pending().Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			res.Outcome = OutcomeAlreadyResolved
			return nil
		}
		return err
	}

	// A booking under this key means the order was confirmed before; the
	// pending record is stale and inventory was already taken.
	if _, err := tx.Bookings().Get(ctx, orderID); err == nil {
		if _, err := tx.Pending().Delete(ctx, orderID); err != nil {
			return err
		}
		res.Outcome = OutcomeAlreadyResolved
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if pending.Quantity <= 0 {
		return fmt.Errorf("%w: order %s has quantity %d", ErrReconciliationConflict, orderID, pending.Quantity)
	}

	event, err := tx.Events().GetForUpdate(ctx, pending.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, pending.EventID)
		}
		return err
	}

	idx := event.TierIndex(pending.TierName)
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", ErrTierNotFound, pending.EventID, pending.TierName)
	}

	tier := &event.Tiers[idx]
	if tier.Quantity < pending.Quantity {
		return fmt.Errorf("%w: %s/%s has %d, order %s wants %d",
			ErrInsufficientTickets, event.ID, tier.Name, tier.Quantity, orderID, pending.Quantity)
	}

	b := pending.Confirm(s.now().UTC())

	created, err := tx.Bookings().Create(ctx, b)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("booking %s appeared concurrently: %w", orderID, repository.ErrTxConflict)
	}

	tier.Quantity -= pending.Quantity
	remaining := tier.Quantity

	if err := tx.Events().UpdateTiers(ctx, event.ID, event.Tiers); err != nil {
		return err
	}

	if _, err := tx.Pending().Delete(ctx, orderID); err != nil {
		return err
	}

	res.Outcome = OutcomeConfirmed
	res.Booking = &b

	after(func(ctx context.Context) {
		s.logger.Info("booking confirmed",
			"order_id", b.OrderID,
			"event_id", b.EventID,
			"tier", b.TierName,
			"quantity", b.Quantity,
			"remaining", remaining,
		)
		s.afterConfirm(ctx, b)
	})

	return nil
}

// Discard retires the pending reservation of a failed or cancelled payment.
// Inventory and bookings are never touched.
//
// Returns:
//   - Result: OutcomeDiscarded, or OutcomeAlreadyResolved if nothing was
//     pending.
func (s *Service) Discard(ctx context.Context, orderID string) (Result, error) {
	const op = "service.booking.Discard"

	var res Result

	attempts, err := s.withRetry(ctx, op, func() error {
		res = Result{}
		return s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
			deleted, err := tx.Pending().Delete(ctx, orderID)
			if err != nil {
				return err
			}

			res.Outcome = OutcomeAlreadyResolved
			if deleted {
				res.Outcome = OutcomeDiscarded
			}

			return nil
		})
	})
	if err != nil {
		return Result{Attempts: attempts}, err
	}

	res.Attempts = attempts

	return res, nil
}

// withRetry runs fn until it succeeds, fails with anything other than a
// write conflict, or MaxAttempts is reached. fn must start its unit of work
// from scratch every time.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) (int, error) {
	var err error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return attempt, nil
		}

		if !errors.Is(err, repository.ErrTxConflict) {
			return attempt, fmt.Errorf("%s:%w", op, err)
		}

		s.logger.Warn("write conflict, retrying",
			"op", op,
			"attempt", attempt,
			"error", err,
		)

		if attempt == s.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("%s:%w", op, ctx.Err())
		case <-time.After(time.Duration(attempt) * s.cfg.RetryBackoff):
		}
	}

	return s.cfg.MaxAttempts, fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, s.cfg.MaxAttempts, err)
}

func (s *Service) afterConfirm(ctx context.Context, b domain.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HookTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.InvalidateEvent(ctx, b.EventID); err != nil {
			s.logger.Warn("invalidate event cache", "event_id", b.EventID, "error", err)
		}
	}

	if s.pubsub != nil {
		if err := s.pubsub.PublishEventChanged(ctx, b.EventID); err != nil {
			s.logger.Warn("publish event changed", "event_id", b.EventID, "error", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PublishBookingConfirmed(ctx, b); err != nil {
			s.logger.Error("publish booking confirmed", "order_id", b.OrderID, "error", err)
		}
	}
}
