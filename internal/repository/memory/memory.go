// Package memory is an in-process implementation of the unit-of-work store.
// Units of work run one at a time against a private copy of the data that
// replaces the shared copy on commit, so every transaction is serializable.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
	"github.com/kirinyoku/ceylontix/internal/uow"
)

type state struct {
	events   map[string]domain.Event
	pending  map[string]domain.Reservation
	bookings map[string]domain.Booking
}

func (s *state) clone() *state {
	cp := &state{
		events:   make(map[string]domain.Event, len(s.events)),
		pending:  make(map[string]domain.Reservation, len(s.pending)),
		bookings: make(map[string]domain.Booking, len(s.bookings)),
	}
	for k, v := range s.events {
		cp.events[k] = copyEvent(v)
	}
	for k, v := range s.pending {
		cp.pending[k] = v
	}
	for k, v := range s.bookings {
		cp.bookings[k] = v
	}
	return cp
}

type Store struct {
	mu          sync.Mutex
	data        *state
	failCommits int
}

func New() *Store {
	return &Store{
		data: &state{
			events:   map[string]domain.Event{},
			pending:  map[string]domain.Reservation{},
			bookings: map[string]domain.Booking{},
		},
	}
}

// FailNextCommits makes the next n commits abort with
// repository.ErrTxConflict after their work has run.
func (s *Store) FailNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommits = n
}

// Do implements uow.Runner.
func (s *Store) Do(ctx context.Context, fn uow.Work) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var hooks []uow.AfterCommit

	s.mu.Lock()
	work := s.data.clone()
	err := fn(ctx, tx{st: work}, func(h uow.AfterCommit) {
		hooks = append(hooks, h)
	})
	if err == nil && s.failCommits > 0 {
		s.failCommits--
		err = fmt.Errorf("memory: commit: %w", repository.ErrTxConflict)
	}
	if err == nil {
		s.data = work
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

type tx struct {
	st *state
}

func (t tx) Pending() uow.PendingRepo  { return pendingRepo(t) }
func (t tx) Bookings() uow.BookingRepo { return bookingRepo(t) }
func (t tx) Events() uow.EventRepo     { return eventRepo(t) }

type pendingRepo tx

func (r pendingRepo) Create(_ context.Context, res domain.Reservation) error {
	if _, ok := r.st.pending[res.OrderID]; ok {
		return fmt.Errorf("memory.PendingRepo.Create:%w", repository.ErrConflict)
	}
	res.Status = domain.BookingPending
	r.st.pending[res.OrderID] = res
	return nil
}

func (r pendingRepo) Get(_ context.Context, orderID string) (*domain.Reservation, error) {
	res, ok := r.st.pending[orderID]
	if !ok {
		return nil, fmt.Errorf("memory.PendingRepo.Get:%w", repository.ErrNotFound)
	}
	return &res, nil
}

func (r pendingRepo) Delete(_ context.Context, orderID string) (bool, error) {
	if _, ok := r.st.pending[orderID]; !ok {
		return false, nil
	}
	delete(r.st.pending, orderID)
	return true, nil
}

type bookingRepo tx

func (r bookingRepo) Create(_ context.Context, b domain.Booking) (bool, error) {
	if _, ok := r.st.bookings[b.OrderID]; ok {
		return false, nil
	}
	b.Status = domain.BookingConfirmed
	r.st.bookings[b.OrderID] = b
	return true, nil
}

func (r bookingRepo) Get(_ context.Context, orderID string) (*domain.Booking, error) {
	b, ok := r.st.bookings[orderID]
	if !ok {
		return nil, fmt.Errorf("memory.BookingRepo.Get:%w", repository.ErrNotFound)
	}
	return &b, nil
}

type eventRepo tx

func (r eventRepo) Create(_ context.Context, e domain.Event) error {
	if _, ok := r.st.events[e.ID]; ok {
		return fmt.Errorf("memory.EventRepo.Create:%w", repository.ErrConflict)
	}
	r.st.events[e.ID] = copyEvent(e)
	return nil
}

func (r eventRepo) Get(_ context.Context, id string) (*domain.Event, error) {
	e, ok := r.st.events[id]
	if !ok {
		return nil, fmt.Errorf("memory.EventRepo.Get:%w", repository.ErrNotFound)
	}
	cp := copyEvent(e)
	return &cp, nil
}

func (r eventRepo) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.Get(ctx, id)
}

func (r eventRepo) UpdateTiers(_ context.Context, eventID string, tiers []domain.Tier) error {
	e, ok := r.st.events[eventID]
	if !ok {
		return fmt.Errorf("memory.EventRepo.UpdateTiers:%w", repository.ErrNotFound)
	}
	e.Tiers = append([]domain.Tier(nil), tiers...)
	r.st.events[eventID] = e
	return nil
}

func copyEvent(e domain.Event) domain.Event {
	e.Tiers = append([]domain.Tier(nil), e.Tiers...)
	return e
}
