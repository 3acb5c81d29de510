package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/types"
)

func newCreatedTx(id, orderID string) *models.Transaction {
	return &models.Transaction{
		ID:             id,
		UserID:         "u1",
		PlanID:         "p1",
		ChannelID:      "c1",
		Amount:         49900,
		Currency:       "INR",
		ProviderID:     types.PaymentProviderRazorpay,
		GatewayOrderID: orderID,
		Status:         types.TransactionStatusCreated,
		Action:         types.OrderActionNew,
	}
}

func TestMemoryMarkCapturedOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateTransaction(ctx, newCreatedTx("t1", "order_1")))

	var applied int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outcome, err := m.MarkCaptured(ctx, "order_1", "pay_first", time.Now())
			assert.NoError(t, err)
			if outcome == CaptureApplied {
				atomic.AddInt32(&applied, 1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), applied)

	got, outcome, err := m.MarkCaptured(ctx, "order_1", "pay_second", time.Now())
	require.NoError(t, err)
	require.Equal(t, CaptureDuplicate, outcome)
	require.Equal(t, "pay_first", *got.GatewayPaymentID)
}

func TestMemoryFailedIsTerminal(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateTransaction(ctx, newCreatedTx("t1", "order_1")))

	tx, changed, err := m.MarkFailed(ctx, "order_1", "pay_x")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, types.TransactionStatusFailed, tx.Status)

	_, changed, err = m.MarkFailed(ctx, "order_1", "")
	require.NoError(t, err)
	require.False(t, changed)

	_, outcome, err := m.MarkCaptured(ctx, "order_1", "pay_y", time.Now())
	require.NoError(t, err)
	require.Equal(t, CaptureOnFailed, outcome)

	_, _, err = m.MarkCaptured(ctx, "unknown", "pay_y", time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySaveActivationLinksOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateTransaction(ctx, newCreatedTx("t1", "order_1")))

	first := &Activation{
		TransactionID: "t1",
		Subscription:  &models.Subscription{ID: "s1", UserID: "u1", Status: types.SubscriptionStatusKYC},
		InviteLink:    &models.InviteLink{ID: "l1", URL: "https://t.me/+a", SubscriptionID: "s1"},
	}
	require.NoError(t, m.SaveActivation(ctx, first))

	second := &Activation{
		TransactionID: "t1",
		Subscription:  &models.Subscription{ID: "s2", UserID: "u1", Status: types.SubscriptionStatusKYC},
	}
	require.ErrorIs(t, m.SaveActivation(ctx, second), ErrAlreadyProvisioned)

	require.Len(t, m.Subscriptions(), 1)
	require.Len(t, m.InviteLinks(), 1)
	require.Equal(t, "s1", *m.Transaction("t1").SubscriptionID)
}

func TestMemoryUpdateSubscriptionVersioned(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.PutSubscription(&models.Subscription{ID: "s1", Status: types.SubscriptionStatusActive, Version: 3})

	sub, err := m.GetSubscription(ctx, "s1")
	require.NoError(t, err)
	sub.EndDate = time.Now().AddDate(0, 0, 30)
	require.NoError(t, m.UpdateSubscription(ctx, sub, 3))
	require.Equal(t, int64(4), sub.Version)

	stale := sub.Clone()
	require.ErrorIs(t, m.UpdateSubscription(ctx, stale, 3), ErrConcurrentUpdate)

	_, changed, err := m.RevokeSubscription(ctx, "s1")
	require.NoError(t, err)
	require.True(t, changed)
	_, changed, err = m.RevokeSubscription(ctx, "s1")
	require.NoError(t, err)
	require.False(t, changed)

	latest, err := m.GetSubscription(ctx, "s1")
	require.NoError(t, err)
	require.ErrorIs(t, m.UpdateSubscription(ctx, latest, latest.Version), ErrConcurrentUpdate)
}

func TestMemoryFindPendingTransaction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	plain := newCreatedTx("t1", "order_1")
	targeted := newCreatedTx("t2", "order_2")
	target := "s9"
	targeted.TargetSubscriptionID = &target
	targeted.Action = types.OrderActionUpgrade
	require.NoError(t, m.CreateTransaction(ctx, plain))
	require.NoError(t, m.CreateTransaction(ctx, targeted))

	got, err := m.FindPendingTransaction(ctx, "u1", "p1", "")
	require.NoError(t, err)
	require.Equal(t, "order_1", got.GatewayOrderID)

	got, err = m.FindPendingTransaction(ctx, "u1", "p1", "s9")
	require.NoError(t, err)
	require.Equal(t, "order_2", got.GatewayOrderID)

	_, err = m.FindPendingTransaction(ctx, "u2", "p1", "")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, m.CreateTransaction(ctx, newCreatedTx("t3", "order_1")), ErrDuplicateOrder)
}

func TestMemoryListUnprovisioned(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateTransaction(ctx, newCreatedTx("t1", "order_1")))
	require.NoError(t, m.CreateTransaction(ctx, newCreatedTx("t2", "order_2")))
	_, _, err := m.MarkCaptured(ctx, "order_1", "pay_1", time.Now())
	require.NoError(t, err)

	out, err := m.ListUnprovisioned(ctx, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "t1", out[0].ID)
}

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	price := int64(39900)
	err := SeedCatalog(ctx, m, config.CatalogConfig{
		Channels: []*types.CatalogChannel{{ID: "c1", TelegramChatID: "-1001", CouponCode: "SAVE10", CouponDiscount: 10}},
		Plans:    []*types.CatalogPlan{{ID: "p1", ChannelID: "c1", MarkupPrice: 49900, DiscountedPrice: &price, ValidityDays: 30}},
	})
	require.NoError(t, err)

	ch, err := m.GetChannel(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ch.HasCoupon("SAVE10"))

	p, err := m.GetPlan(ctx, "p1")
	require.NoError(t, err)
	require.True(t, p.IsActive)
	require.Equal(t, int64(39900), p.BasePrice())
}

func TestMemoryUserReads(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.PutSubscription(&models.Subscription{ID: "s1", UserID: "u1", EndDate: now.AddDate(0, 0, 5)})
	m.PutSubscription(&models.Subscription{ID: "s2", UserID: "u1", EndDate: now.AddDate(0, 0, 30)})
	m.PutSubscription(&models.Subscription{ID: "s3", UserID: "u2", EndDate: now.AddDate(0, 0, 60)})

	subs, err := m.ListSubscriptionsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, "s2", subs[0].ID)
	require.Equal(t, "s1", subs[1].ID)

	for i, id := range []string{"t1", "t2", "t3"} {
		tx := newCreatedTx(id, "order_"+id)
		tx.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, m.CreateTransaction(ctx, tx))
	}
	other := newCreatedTx("t4", "order_t4")
	other.UserID = "u2"
	require.NoError(t, m.CreateTransaction(ctx, other))

	txs, err := m.ListTransactionsForUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, "t3", txs[0].ID)
	require.Equal(t, "t2", txs[1].ID)

	all, err := m.ListTransactionsForUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	got, err := m.GetTransaction(ctx, "t4")
	require.NoError(t, err)
	require.Equal(t, "u2", got.UserID)
	_, err = m.GetTransaction(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
