package payment_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirinyoku/ceylontix/internal/domain"
	"github.com/kirinyoku/ceylontix/internal/payhere"
	"github.com/kirinyoku/ceylontix/internal/repository"
	"github.com/kirinyoku/ceylontix/internal/repository/memory"
	redisrepo "github.com/kirinyoku/ceylontix/internal/repository/redis"
	"github.com/kirinyoku/ceylontix/internal/service/booking"
	"github.com/kirinyoku/ceylontix/internal/service/payment"
	"github.com/kirinyoku/ceylontix/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	merchant = "1211149"
	secret   = "secret123"
)

type fixture struct {
	store  *memory.Store
	signer *payhere.Signer
	svc    *payment.Service
	logs   *bytes.Buffer
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	return redisrepo.Decision{Allowed: false, Count: 11, RetryAfter: 30 * time.Second}, nil
}

func newFixture(t *testing.T, secret string, vipQty int, limiter payment.Limiter) *fixture {
	t.Helper()

	store := memory.New()
	require.NoError(t, store.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		return tx.Events().Create(ctx, domain.Event{
			ID:    "EVT1",
			Name:  "Colombo Jazz",
			Tiers: []domain.Tier{{Name: "VIP", PriceCents: 50000, Quantity: vipQty}},
		})
	}))

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	signer := payhere.NewSigner(merchant, secret)
	bookings := booking.New(store, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), booking.Config{})

	return &fixture{
		store:  store,
		signer: signer,
		svc:    payment.New(signer, bookings, store, limiter, logger, payment.Config{}),
		logs:   logs,
	}
}

func (f *fixture) addPending(t *testing.T, orderID string, qty int) {
	t.Helper()
	require.NoError(t, f.store.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		return tx.Pending().Create(ctx, domain.Reservation{
			OrderID:    orderID,
			EventID:    "EVT1",
			TierName:   "VIP",
			Quantity:   qty,
			UserEmail:  "buyer@example.com",
			TotalCents: int64(qty) * 50000,
			Currency:   "LKR",
		})
	}))
}

func (f *fixture) vip(t *testing.T) int {
	t.Helper()
	qty := -1
	require.NoError(t, f.store.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		e, err := tx.Events().Get(ctx, "EVT1")
		if err == nil {
			qty = e.Tiers[0].Quantity
		}
		return err
	}))
	return qty
}

func (f *fixture) pending(t *testing.T, orderID string) bool {
	t.Helper()
	found := false
	require.NoError(t, f.store.Do(context.Background(), func(ctx context.Context, tx uow.Tx, _ func(uow.AfterCommit)) error {
		_, err := tx.Pending().Get(ctx, orderID)
		found = err == nil
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}))
	return found
}

func (f *fixture) signed(t *testing.T, orderID, amount, status string) payhere.Notification {
	t.Helper()
	n := payhere.Notification{
		MerchantID: merchant,
		OrderID:    orderID,
		Amount:     amount,
		Currency:   "LKR",
		StatusCode: status,
	}
	sig, err := f.signer.NotificationSignature(n)
	require.NoError(t, err)
	n.Signature = sig
	return n
}

func TestNotify_SuccessCommits(t *testing.T) {
	f := newFixture(t, secret, 5, nil)
	f.addPending(t, "ORD1", 2)

	res, err := f.svc.Notify(context.Background(), f.signed(t, "ORD1", "1000.00", "2"))
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 3, f.vip(t))
	assert.False(t, f.pending(t, "ORD1"))
	assert.NotContains(t, f.logs.String(), "paid amount differs")
}

func TestNotify_AmountMismatchIsLogged(t *testing.T) {
	f := newFixture(t, secret, 5, nil)
	f.addPending(t, "ORD1", 2)

	res, err := f.svc.Notify(context.Background(), f.signed(t, "ORD1", "1.00", "2"))
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeConfirmed, res.Outcome)
	assert.Contains(t, f.logs.String(), "paid amount differs")
}

func TestNotify_SignatureMismatchMutatesNothing(t *testing.T) {
	f := newFixture(t, secret, 5, nil)
	f.addPending(t, "ORD1", 2)

	n := f.signed(t, "ORD1", "1000.00", "2")
	genuine := n.Signature
	n.Amount = "9000.00"

	_, err := f.svc.Notify(context.Background(), n)
	require.ErrorIs(t, err, payhere.ErrSignatureMismatch)

	assert.Equal(t, 5, f.vip(t))
	assert.True(t, f.pending(t, "ORD1"))

	logged := f.logs.String()
	assert.Contains(t, logged, "payhere signature mismatch")
	assert.Contains(t, logged, "order_id=ORD1")
	assert.Contains(t, logged, genuine)
	assert.NotContains(t, logged, secret)
}

func TestNotify_MissingSecretIsConfigurationFault(t *testing.T) {
	f := newFixture(t, "", 5, nil)
	f.addPending(t, "ORD1", 2)

	_, err := f.svc.Notify(context.Background(), payhere.Notification{
		MerchantID: merchant, OrderID: "ORD1", Amount: "1000.00",
		Currency: "LKR", StatusCode: "2", Signature: "ABC",
	})
	assert.ErrorIs(t, err, payhere.ErrSecretNotConfigured)
	assert.NotErrorIs(t, err, payhere.ErrSignatureMismatch)
	assert.True(t, f.pending(t, "ORD1"))
}

func TestNotify_FailureStatusDiscards(t *testing.T) {
	f := newFixture(t, secret, 5, nil)
	f.addPending(t, "ORD1", 2)

	res, err := f.svc.Notify(context.Background(), f.signed(t, "ORD1", "1000.00", "-1"))
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeDiscarded, res.Outcome)
	assert.False(t, f.pending(t, "ORD1"))
	assert.Equal(t, 5, f.vip(t))

	res, err = f.svc.Notify(context.Background(), f.signed(t, "ORD1", "1000.00", "-1"))
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeAlreadyResolved, res.Outcome)
}

func TestNotify_InsufficientInventory(t *testing.T) {
	f := newFixture(t, secret, 1, nil)
	f.addPending(t, "ORD1", 2)

	_, err := f.svc.Notify(context.Background(), f.signed(t, "ORD1", "1000.00", "2"))
	require.ErrorIs(t, err, booking.ErrReconciliationConflict)
	assert.Equal(t, 1, f.vip(t))
	assert.True(t, f.pending(t, "ORD1"))
}

func TestCheckout_RoundTripsThroughNotify(t *testing.T) {
	f := newFixture(t, secret, 5, nil)

	resp, err := f.svc.Checkout(context.Background(), payment.CheckoutRequest{
		EventID:   "EVT1",
		TierName:  "VIP",
		Quantity:  2,
		UserEmail: "buyer@example.com",
		UserName:  "Buyer",
	}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "1000.00", resp.Amount)
	assert.Equal(t, "LKR", resp.Currency)
	assert.Equal(t, merchant, resp.MerchantID)
	assert.True(t, f.pending(t, resp.OrderID))
	assert.Equal(t, 5, f.vip(t), "checkout must not take inventory")

	want, err := f.signer.CheckoutHash(merchant, resp.OrderID, resp.Amount, resp.Currency)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Hash)

	res, err := f.svc.Notify(context.Background(), f.signed(t, resp.OrderID, resp.Amount, "2"))
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 3, f.vip(t))
}

func TestCheckout_Rejections(t *testing.T) {
	f := newFixture(t, secret, 1, nil)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, payment.CheckoutRequest{EventID: "NOPE", TierName: "VIP", Quantity: 1}, "")
	assert.ErrorIs(t, err, payment.ErrEventNotFound)

	_, err = f.svc.Checkout(ctx, payment.CheckoutRequest{EventID: "EVT1", TierName: "Balcony", Quantity: 1}, "")
	assert.ErrorIs(t, err, payment.ErrTierNotFound)

	_, err = f.svc.Checkout(ctx, payment.CheckoutRequest{EventID: "EVT1", TierName: "VIP", Quantity: 2}, "")
	assert.ErrorIs(t, err, payment.ErrSoldOut)

	_, err = f.svc.Checkout(ctx, payment.CheckoutRequest{EventID: "EVT1", TierName: "VIP", Quantity: 0}, "")
	assert.ErrorIs(t, err, payment.ErrInvalidRequest)

	_, err = f.svc.Checkout(ctx, payment.CheckoutRequest{OrderID: "ORD9", EventID: "EVT1", TierName: "VIP", Quantity: 1}, "")
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, payment.CheckoutRequest{OrderID: "ORD9", EventID: "EVT1", TierName: "VIP", Quantity: 1}, "")
	assert.ErrorIs(t, err, payment.ErrOrderExists)
}

func TestCheckout_RateLimited(t *testing.T) {
	f := newFixture(t, secret, 5, denyLimiter{})

	_, err := f.svc.Checkout(context.Background(), payment.CheckoutRequest{EventID: "EVT1", TierName: "VIP", Quantity: 1}, "ip:1.2.3.4")

	var rl payment.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
}

func TestCheckout_MissingSecret(t *testing.T) {
	f := newFixture(t, "", 5, nil)

	_, err := f.svc.Checkout(context.Background(), payment.CheckoutRequest{EventID: "EVT1", TierName: "VIP", Quantity: 1}, "")
	assert.ErrorIs(t, err, payhere.ErrSecretNotConfigured)
}

func TestHash(t *testing.T) {
	f := newFixture(t, secret, 5, nil)

	resp, err := f.svc.Hash(payment.HashRequest{OrderID: "ORD1", Amount: "1000", Currency: "LKR"})
	require.NoError(t, err)
	assert.Equal(t, merchant, resp.MerchantID)
	assert.Equal(t, "06F2B7C8E6E47023116C1E2314ABE37C", resp.Hash)

	_, err = f.svc.Hash(payment.HashRequest{OrderID: "ORD1", Amount: "ten", Currency: "LKR"})
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	_, err = newFixture(t, "", 5, nil).svc.Hash(payment.HashRequest{OrderID: "ORD1", Amount: "1", Currency: "LKR"})
	assert.ErrorIs(t, err, payhere.ErrSecretNotConfigured)
}
