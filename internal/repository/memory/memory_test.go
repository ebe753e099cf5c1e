package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/repository"
	"github.com/kirinyoku/ceylontix/internal/repository/memory"
	"github.com/kirinyoku/ceylontix/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ uow.Runner = (*memory.Store)(nil)

func TestDo_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	boom := errors.New("boom")
	hookRan := false
	err := s.Do(ctx, func(ctx context.Context, tx uow.Tx, after func(uow.AfterCommit)) error {
		require.NoError(t, tx.Events().Create(ctx, domain.Event{ID: "EVT1"}))
		after(func(context.Context) { hookRan = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	err = s.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		_, err := tx.Events().Get(ctx, "EVT1")
		return err
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDo_InjectedConflictDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.FailNextCommits(1)

	create := func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		return tx.Pending().Create(ctx, domain.Reservation{OrderID: "ORD1", Quantity: 1})
	}

	assert.ErrorIs(t, s.Do(ctx, create), repository.ErrTxConflict)
	assert.NoError(t, s.Do(ctx, create))
	assert.ErrorIs(t, s.Do(ctx, create), repository.ErrConflict)
}

func TestDo_TierSlicesAreNotShared(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	tiers := []domain.Tier{{Name: "VIP", Quantity: 5}}
	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		return tx.Events().Create(ctx, domain.Event{ID: "EVT1", Tiers: tiers})
	}))
	tiers[0].Quantity = 0

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		e, err := tx.Events().Get(ctx, "EVT1")
		require.NoError(t, err)
		assert.Equal(t, 5, e.Tiers[0].Quantity)
		e.Tiers[0].Quantity = 1
		return nil
	}))

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		e, err := tx.Events().Get(ctx, "EVT1")
		require.NoError(t, err)
		assert.Equal(t, 5, e.Tiers[0].Quantity)
		return nil
	}))
}

func TestBookingCreateIsNoopOnExistingKey(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var first, second bool
	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		var err error
		first, err = tx.Bookings().Create(ctx, domain.Booking{Reservation: domain.Reservation{OrderID: "ORD1", Quantity: 2}})
		if err != nil {
			return err
		}
		second, err = tx.Bookings().Create(ctx, domain.Booking{Reservation: domain.Reservation{OrderID: "ORD1", Quantity: 9}})
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)
}
