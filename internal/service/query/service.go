package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
	redisrepo "github.com/kirinyoku/ceylontix/internal/repository/redis"
	"github.com/kirinyoku/ceylontix/internal/uow"
)

type Config struct {
	EventTTL time.Duration
}

type Service struct {
	uow   uow.Runner
	cache *redisrepo.Cache
	cfg   Config
}

// New builds the read side. cache may be nil, in which case every read goes
// to the store.
func New(runner uow.Runner, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = 15 * time.Second
	}

	return &Service{
		uow:   runner,
		cache: cache,
		cfg:   cfg,
	}
}

// GetEvent returns an event with its remaining tier quantities. Cached
// copies are dropped whenever a booking commits against the event.
//
// Returns:
//   - *domain.Event: the event.
//   - error: query.ErrEventNotFound if the event does not exist.
func (s *Service) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	load := func(ctx context.Context) (domain.Event, error) {
		var e domain.Event
		err := s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
			ev, err := tx.Events().Get(ctx, id)
			if err != nil {
				return err
			}
			e = *ev
			return nil
		})
		return e, err
	}

	var (
		e   domain.Event
		err error
	)
	if s.cache != nil {
		e, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyEvent(id), s.cfg.EventTTL, load)
	} else {
		e, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &e, nil
}

// GetBooking returns the confirmed booking for an order id.
//
// Returns:
//   - error: query.ErrBookingNotFound if the order has not been confirmed.
func (s *Service) GetBooking(ctx context.Context, orderID string) (*domain.Booking, error) {
	const op = "service.query.GetBooking"

	var b *domain.Booking
	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		var err error
		b, err = tx.Bookings().Get(ctx, orderID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}
