package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
	"github.com/kirinyoku/ceylontix/internal/service/booking"
	"github.com/kirinyoku/ceylontix/internal/uow"
)

type Service struct {
	uow    uow.Runner
	cache  booking.EventInvalidator
	pubsub booking.EventPublisher
}

func New(runner uow.Runner, cache booking.EventInvalidator, pubsub booking.EventPublisher) *Service {
	return &Service{
		uow:    runner,
		cache:  cache,
		pubsub: pubsub,
	}
}

// CreateEvent stores a new event with its ordered ticket tiers. An empty id
// gets a generated one.
//
// Returns:
//   - *domain.Event: the stored event.
//   - error: admin.ErrInvalidTiers if a tier is unnamed, duplicated or has a
//     negative price or quantity.
//   - error: admin.ErrEventConflict if the id is taken.
func (s *Service) CreateEvent(ctx context.Context, id, name string, tiers []domain.Tier) (*domain.Event, error) {
	const op = "service.admin.CreateEvent"

	if err := validateTiers(tiers); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if id == "" {
		id = uuid.NewString()
	}

	e := domain.Event{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Tiers:     tiers,
		CreatedAt: time.Now().UTC(),
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		if err := tx.Events().Create(ctx, e); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEventConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &e, nil
}

// Restock adds delta (which may be negative) to a tier's remaining
// quantity and returns the new quantity.
//
// Returns:
//   - error: admin.ErrEventNotFound, admin.ErrTierNotFound.
//   - error: admin.ErrNegativeStock if the result would be below zero.
func (s *Service) Restock(ctx context.Context, eventID, tierName string, delta int) (int, error) {
	const op = "service.admin.Restock"

	var remaining int

	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx, after func(uow.AfterCommit)) error {
		e, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		idx := e.TierIndex(tierName)
		if idx < 0 {
			return ErrTierNotFound
		}

		next := e.Tiers[idx].Quantity + delta
		if next < 0 {
			return ErrNegativeStock
		}
		e.Tiers[idx].Quantity = next
		remaining = next

		if err := tx.Events().UpdateTiers(ctx, e.ID, e.Tiers); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateEvent(ctx, eventID)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishEventChanged(ctx, eventID)
			}
		})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return remaining, nil
}

func validateTiers(tiers []domain.Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: at least one tier is required", ErrInvalidTiers)
	}

	seen := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: tier name is required", ErrInvalidTiers)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: duplicate tier %q", ErrInvalidTiers, t.Name)
		}
		if t.PriceCents < 0 || t.Quantity < 0 {
			return fmt.Errorf("%w: tier %q has a negative price or quantity", ErrInvalidTiers, t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	return nil
}
