package booking_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
	"github.com/kirinyoku/ceylontix/internal/repository/memory"
	"github.com/kirinyoku/ceylontix/internal/service/booking"
	"github.com/kirinyoku/ceylontix/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockHooks struct {
	mock.Mock
}

func (m *mockHooks) InvalidateEvent(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *mockHooks) PublishEventChanged(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *mockHooks) PublishBookingConfirmed(ctx context.Context, b domain.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func reservation(orderID string, qty int) domain.Reservation {
	return domain.Reservation{
		OrderID:    orderID,
		EventID:    "EVT1",
		EventName:  "Colombo Jazz",
		TierName:   "VIP",
		Quantity:   qty,
		UserEmail:  "buyer@example.com",
		UserName:   "Buyer",
		TotalCents: int64(qty) * 500000,
		Currency:   "LKR",
		CreatedAt:  time.Now().UTC(),
	}
}

func seed(t *testing.T, s *memory.Store, vipQty int, pending ...domain.Reservation) {
	t.Helper()

	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		if err := tx.Events().Create(ctx, domain.Event{
			ID:   "EVT1",
			Name: "Colombo Jazz",
			Tiers: []domain.Tier{
				{Name: "General", PriceCents: 150000, Quantity: 100},
				{Name: "VIP", PriceCents: 500000, Quantity: vipQty},
			},
		}); err != nil {
			return err
		}
		for _, r := range pending {
			if err := tx.Pending().Create(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func tierQuantity(t *testing.T, s *memory.Store, name string) int {
	t.Helper()

	qty := -1
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		e, err := tx.Events().Get(ctx, "EVT1")
		if err != nil {
			return err
		}
		qty = e.Tiers[e.TierIndex(name)].Quantity
		return nil
	}))
	return qty
}

func pendingExists(t *testing.T, s *memory.Store, orderID string) bool {
	t.Helper()

	exists := false
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		_, err := tx.Pending().Get(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		exists = err == nil
		return err
	}))
	return exists
}

func countBookings(t *testing.T, s *memory.Store, orderIDs ...string) int {
	t.Helper()

	n := 0
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		for _, id := range orderIDs {
			if _, err := tx.Bookings().Get(ctx, id); err == nil {
				n++
			}
		}
		return nil
	}))
	return n
}

func TestConfirm_DecrementsTierAndRetiresReservation(t *testing.T) {
	store := memory.New()
	seed(t, store, 5, reservation("ORD1", 2))

	hooks := &mockHooks{}
	hooks.On("InvalidateEvent", mock.Anything, "EVT1").Return(nil).Once()
	hooks.On("PublishEventChanged", mock.Anything, "EVT1").Return(nil).Once()
	hooks.On("PublishBookingConfirmed", mock.Anything, mock.MatchedBy(func(b domain.Booking) bool {
		return b.OrderID == "ORD1" && b.Status == domain.BookingConfirmed && b.Quantity == 2
	})).Return(nil).Once()

	svc := booking.New(store, hooks, hooks, hooks, discard, booking.Config{})

	res, err := svc.Confirm(context.Background(), "ORD1")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeConfirmed, res.Outcome)
	require.NotNil(t, res.Booking)
	assert.Equal(t, "ORD1", res.Booking.OrderID)
	assert.False(t, res.Booking.ConfirmedAt.IsZero())

	assert.Equal(t, 3, tierQuantity(t, store, "VIP"))
	assert.Equal(t, 100, tierQuantity(t, store, "General"))
	assert.False(t, pendingExists(t, store, "ORD1"))
	assert.Equal(t, 1, countBookings(t, store, "ORD1"))

	hooks.AssertExpectations(t)
}

func TestConfirm_InsufficientInventoryLeavesStateUntouched(t *testing.T) {
	store := memory.New()
	seed(t, store, 1, reservation("ORD1", 2))

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{})

	_, err := svc.Confirm(context.Background(), "ORD1")
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrInsufficientTickets)
	assert.ErrorIs(t, err, booking.ErrReconciliationConflict)

	assert.Equal(t, 1, tierQuantity(t, store, "VIP"))
	assert.True(t, pendingExists(t, store, "ORD1"))
	assert.Equal(t, 0, countBookings(t, store, "ORD1"))
}

func TestConfirm_IsIdempotent(t *testing.T) {
	store := memory.New()
	seed(t, store, 5, reservation("ORD1", 2))

	hooks := &mockHooks{}
	hooks.On("InvalidateEvent", mock.Anything, "EVT1").Return(nil).Once()
	hooks.On("PublishEventChanged", mock.Anything, "EVT1").Return(nil).Once()
	hooks.On("PublishBookingConfirmed", mock.Anything, mock.Anything).Return(nil).Once()

	svc := booking.New(store, hooks, hooks, hooks, discard, booking.Config{})

	outcomes := map[booking.Outcome]int{}
	for i := 0; i < 5; i++ {
		res, err := svc.Confirm(context.Background(), "ORD1")
		require.NoError(t, err)
		outcomes[res.Outcome]++
	}

	assert.Equal(t, 1, outcomes[booking.OutcomeConfirmed])
	assert.Equal(t, 4, outcomes[booking.OutcomeAlreadyResolved])
	assert.Equal(t, 3, tierQuantity(t, store, "VIP"))
	assert.Equal(t, 1, countBookings(t, store, "ORD1"))
	hooks.AssertExpectations(t)
}

func TestConfirm_ConcurrentCommitsNeverOversell(t *testing.T) {
	const (
		available = 5
		perOrder  = 2
		orders    = 6
	)

	var pending []domain.Reservation
	var ids []string
	for i := 0; i < orders; i++ {
		id := fmt.Sprintf("ORD%d", i)
		ids = append(ids, id)
		pending = append(pending, reservation(id, perOrder))
	}

	store := memory.New()
	seed(t, store, available, pending...)

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
		conflicts int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := svc.Confirm(context.Background(), id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && res.Outcome == booking.OutcomeConfirmed:
				confirmed++
			case errors.Is(err, booking.ErrReconciliationConflict):
				conflicts++
			default:
				t.Errorf("unexpected result for %s: %v %v", id, res.Outcome, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, available/perOrder, confirmed)
	assert.Equal(t, orders-available/perOrder, conflicts)
	assert.Equal(t, available%perOrder, tierQuantity(t, store, "VIP"))
	assert.Equal(t, confirmed, countBookings(t, store, ids...))

	stillPending := 0
	for _, id := range ids {
		if pendingExists(t, store, id) {
			stillPending++
		}
	}
	assert.Equal(t, conflicts, stillPending)
}

func TestConfirm_MissingEventOrTier(t *testing.T) {
	store := memory.New()
	orphan := reservation("ORD-EVT", 1)
	orphan.EventID = "NOPE"
	noTier := reservation("ORD-TIER", 1)
	noTier.TierName = "Balcony"
	seed(t, store, 5, orphan, noTier)

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{})

	_, err := svc.Confirm(context.Background(), "ORD-EVT")
	assert.ErrorIs(t, err, booking.ErrEventNotFound)
	assert.ErrorIs(t, err, booking.ErrReconciliationConflict)

	_, err = svc.Confirm(context.Background(), "ORD-TIER")
	assert.ErrorIs(t, err, booking.ErrTierNotFound)

	assert.True(t, pendingExists(t, store, "ORD-EVT"))
	assert.True(t, pendingExists(t, store, "ORD-TIER"))
	assert.Equal(t, 5, tierQuantity(t, store, "VIP"))
}

func TestConfirm_UnknownOrderIsAlreadyResolved(t *testing.T) {
	store := memory.New()
	seed(t, store, 5)

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{})

	res, err := svc.Confirm(context.Background(), "GHOST")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeAlreadyResolved, res.Outcome)
	assert.Nil(t, res.Booking)
}

func TestConfirm_StalePendingForExistingBooking(t *testing.T) {
	store := memory.New()
	seed(t, store, 5)

	require.NoError(t, store.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		r := reservation("ORD1", 2)
		if _, err := tx.Bookings().Create(ctx, r.Confirm(time.Now())); err != nil {
			return err
		}
		return tx.Pending().Create(ctx, r)
	}))

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{})

	res, err := svc.Confirm(context.Background(), "ORD1")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeAlreadyResolved, res.Outcome)
	assert.False(t, pendingExists(t, store, "ORD1"))
	assert.Equal(t, 5, tierQuantity(t, store, "VIP"))
}

func TestConfirm_RetriesWholeUnitOnWriteConflict(t *testing.T) {
	store := memory.New()
	seed(t, store, 5, reservation("ORD1", 2))
	store.FailNextCommits(2)

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{MaxAttempts: 3, RetryBackoff: time.Millisecond})

	res, err := svc.Confirm(context.Background(), "ORD1")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, tierQuantity(t, store, "VIP"))
}

func TestConfirm_RetriesAreBounded(t *testing.T) {
	store := memory.New()
	seed(t, store, 5, reservation("ORD1", 2))
	store.FailNextCommits(10)

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{MaxAttempts: 3, RetryBackoff: time.Millisecond})

	res, err := svc.Confirm(context.Background(), "ORD1")
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrRetriesExhausted)
	assert.ErrorIs(t, err, repository.ErrTxConflict)
	assert.Equal(t, 3, res.Attempts)

	store.FailNextCommits(0)
	assert.True(t, pendingExists(t, store, "ORD1"))
	assert.Equal(t, 5, tierQuantity(t, store, "VIP"))
}

func TestConfirm_HookFailureDoesNotFailCommit(t *testing.T) {
	store := memory.New()
	seed(t, store, 5, reservation("ORD1", 1))

	hooks := &mockHooks{}
	hooks.On("InvalidateEvent", mock.Anything, "EVT1").Return(errors.New("redis down"))
	hooks.On("PublishEventChanged", mock.Anything, "EVT1").Return(errors.New("redis down"))
	hooks.On("PublishBookingConfirmed", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := booking.New(store, hooks, hooks, hooks, discard, booking.Config{})

	res, err := svc.Confirm(context.Background(), "ORD1")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 4, tierQuantity(t, store, "VIP"))
}

func TestDiscard(t *testing.T) {
	store := memory.New()
	seed(t, store, 5, reservation("ORD1", 2))

	svc := booking.New(store, nil, nil, nil, discard, booking.Config{})

	res, err := svc.Discard(context.Background(), "ORD1")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeDiscarded, res.Outcome)
	assert.False(t, pendingExists(t, store, "ORD1"))
	assert.Equal(t, 5, tierQuantity(t, store, "VIP"))
	assert.Equal(t, 0, countBookings(t, store, "ORD1"))

	res, err = svc.Discard(context.Background(), "ORD1")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeAlreadyResolved, res.Outcome)

	// A late success for a discarded order resolves without booking.
	res, err = svc.Confirm(context.Background(), "ORD1")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeAlreadyResolved, res.Outcome)
	assert.Equal(t, 5, tierQuantity(t, store, "VIP"))
}
