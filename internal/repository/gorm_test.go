package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/platform/db"
	"github.com/fatflowers/tgpass/pkg/gormlog"
	"github.com/fatflowers/tgpass/pkg/types"
)

const (
	gPlan    = "01900000-0000-7000-8000-0000000000a1"
	gChannel = "01900000-0000-7000-8000-0000000000c1"
	gSub1    = "01900000-0000-7000-9000-000000000001"
	gSub2    = "01900000-0000-7000-9000-000000000002"
	gLink1   = "01900000-0000-7000-a000-000000000001"
	gLink2   = "01900000-0000-7000-a000-000000000002"
	gTx1     = "01900000-0000-7000-b000-000000000001"
	gTx2     = "01900000-0000-7000-b000-000000000002"
	gTx3     = "01900000-0000-7000-b000-000000000003"
)

// newSQLite returns the gorm repository over a private in-memory database
// with the production schema.
func newSQLite(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlog.New(log, "warn", time.Second),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(log, gdb))
	return NewGorm(gdb), gdb
}

func gormTx(id, orderID string) *models.Transaction {
	return &models.Transaction{
		ID:             id,
		UserID:         "u1",
		PlanID:         gPlan,
		ChannelID:      gChannel,
		Amount:         49900,
		Currency:       "INR",
		ProviderID:     types.PaymentProviderRazorpay,
		GatewayOrderID: orderID,
		Status:         types.TransactionStatusCreated,
		Action:         types.OrderActionNew,
	}
}

func gormSub(id string, version int64, end time.Time) *models.Subscription {
	return &models.Subscription{
		ID:        id,
		UserID:    "u1",
		PlanID:    gPlan,
		ChannelID: gChannel,
		StartDate: end.AddDate(0, 0, -30),
		EndDate:   end,
		Status:    types.SubscriptionStatusActive,
		Version:   version,
	}
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func TestGormPing(t *testing.T) {
	repo, _ := newSQLite(t)
	require.NoError(t, repo.Ping(context.Background()))
}

func TestGormCaptureOnlyFromCreated(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLite(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateTransaction(ctx, gormTx(gTx1, "order_1")))
	require.ErrorIs(t, repo.CreateTransaction(ctx, gormTx(gTx2, "order_1")), ErrDuplicateOrder)

	got, outcome, err := repo.MarkCaptured(ctx, "order_1", "pay_first", at)
	require.NoError(t, err)
	require.Equal(t, CaptureApplied, outcome)
	require.Equal(t, types.TransactionStatusCaptured, got.Status)
	require.Equal(t, "pay_first", *got.GatewayPaymentID)
	require.NotNil(t, got.CapturedAt)

	got, outcome, err = repo.MarkCaptured(ctx, "order_1", "pay_second", at.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, CaptureDuplicate, outcome)
	require.Equal(t, "pay_first", *got.GatewayPaymentID)
	require.True(t, got.CapturedAt.Equal(at))

	got, changed, err := repo.MarkFailed(ctx, "order_1", "pay_third")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, types.TransactionStatusCaptured, got.Status)
	require.Equal(t, "pay_first", *got.GatewayPaymentID)

	_, _, err = repo.MarkCaptured(ctx, "order_unknown", "pay_x", at)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormFailedIsTerminal(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLite(t)
	require.NoError(t, repo.CreateTransaction(ctx, gormTx(gTx1, "order_1")))

	got, changed, err := repo.MarkFailed(ctx, "order_1", "pay_failed")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, types.TransactionStatusFailed, got.Status)

	_, changed, err = repo.MarkFailed(ctx, "order_1", "")
	require.NoError(t, err)
	require.False(t, changed)

	got, outcome, err := repo.MarkCaptured(ctx, "order_1", "pay_late", time.Now())
	require.NoError(t, err)
	require.Equal(t, CaptureOnFailed, outcome)
	require.Equal(t, types.TransactionStatusFailed, got.Status)
	require.Equal(t, "pay_failed", *got.GatewayPaymentID)
	require.Nil(t, got.CapturedAt)
}

func TestGormUpdateSubscriptionVersioned(t *testing.T) {
	ctx := context.Background()
	repo, gdb := newSQLite(t)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Create(gormSub(gSub1, 3, end)).Error)

	sub, err := repo.GetSubscription(ctx, gSub1)
	require.NoError(t, err)
	sub.EndDate = end.AddDate(0, 0, 30)
	require.NoError(t, repo.UpdateSubscription(ctx, sub, 3))
	require.Equal(t, int64(4), sub.Version)

	stale := sub.Clone()
	stale.EndDate = end.AddDate(0, 0, 90)
	require.ErrorIs(t, repo.UpdateSubscription(ctx, stale, 3), ErrConcurrentUpdate)

	stored, err := repo.GetSubscription(ctx, gSub1)
	require.NoError(t, err)
	require.Equal(t, int64(4), stored.Version)
	require.True(t, stored.EndDate.Equal(end.AddDate(0, 0, 30)))

	revoked, changed, err := repo.RevokeSubscription(ctx, gSub1)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, types.SubscriptionStatusRevoked, revoked.Status)
	require.Equal(t, int64(5), revoked.Version)

	again, changed, err := repo.RevokeSubscription(ctx, gSub1)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, int64(5), again.Version)

	// the version matches but the row is revoked
	again.Status = types.SubscriptionStatusActive
	require.ErrorIs(t, repo.UpdateSubscription(ctx, again, again.Version), ErrConcurrentUpdate)
	stored, err = repo.GetSubscription(ctx, gSub1)
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusRevoked, stored.Status)

	_, _, err = repo.RevokeSubscription(ctx, gSub2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormSaveActivationRollsBackWhenLinked(t *testing.T) {
	ctx := context.Background()
	repo, gdb := newSQLite(t)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateTransaction(ctx, gormTx(gTx1, "order_1")))

	first := &Activation{
		TransactionID: gTx1,
		Subscription:  gormSub(gSub1, 0, end),
		InviteLink:    &models.InviteLink{ID: gLink1, URL: "https://t.me/+a", ChannelID: gChannel, SubscriptionID: gSub1},
	}
	require.NoError(t, repo.SaveActivation(ctx, first))

	second := &Activation{
		TransactionID: gTx1,
		Subscription:  gormSub(gSub2, 0, end),
		InviteLink:    &models.InviteLink{ID: gLink2, URL: "https://t.me/+b", ChannelID: gChannel, SubscriptionID: gSub2},
	}
	require.ErrorIs(t, repo.SaveActivation(ctx, second), ErrAlreadyProvisioned)

	_, err := repo.GetSubscription(ctx, gSub2)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, int64(1), countRows(t, gdb, &models.Subscription{}))
	require.Equal(t, int64(1), countRows(t, gdb, &models.InviteLink{}))

	tx, err := repo.GetTransaction(ctx, gTx1)
	require.NoError(t, err)
	require.Equal(t, gSub1, *tx.SubscriptionID)

	_, err = repo.GetTransaction(ctx, gTx2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormSaveActivationUpgradeGuards(t *testing.T) {
	ctx := context.Background()
	repo, gdb := newSQLite(t)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Create(gormSub(gSub1, 2, end)).Error)
	require.NoError(t, repo.CreateTransaction(ctx, gormTx(gTx1, "order_1")))

	upgraded := gormSub(gSub1, 2, end.AddDate(0, 0, 90))
	stale := &Activation{TransactionID: gTx1, Subscription: upgraded.Clone(), Existing: true, ExpectedVersion: 1}
	require.ErrorIs(t, repo.SaveActivation(ctx, stale), ErrConcurrentUpdate)
	tx, err := repo.GetTransaction(ctx, gTx1)
	require.NoError(t, err)
	require.Nil(t, tx.SubscriptionID)

	ok := &Activation{TransactionID: gTx1, Subscription: upgraded.Clone(), Existing: true, ExpectedVersion: 2}
	require.NoError(t, repo.SaveActivation(ctx, ok))
	require.Equal(t, int64(3), ok.Subscription.Version)

	// already linked: the subscription write is rolled back with the link
	replay := gormSub(gSub1, 3, end.AddDate(0, 0, 180))
	err = repo.SaveActivation(ctx, &Activation{TransactionID: gTx1, Subscription: replay, Existing: true, ExpectedVersion: 3})
	require.ErrorIs(t, err, ErrAlreadyProvisioned)

	stored, err := repo.GetSubscription(ctx, gSub1)
	require.NoError(t, err)
	require.Equal(t, int64(3), stored.Version)
	require.True(t, stored.EndDate.Equal(end.AddDate(0, 0, 90)))
}

func TestGormPendingAndUnprovisioned(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLite(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	plain := gormTx(gTx1, "order_1")
	plain.CreatedAt = base
	targeted := gormTx(gTx2, "order_2")
	target := gSub1
	targeted.TargetSubscriptionID = &target
	targeted.Action = types.OrderActionUpgrade
	targeted.CreatedAt = base.Add(time.Minute)
	other := gormTx(gTx3, "order_3")
	other.UserID = "u2"
	other.CreatedAt = base.Add(2 * time.Minute)
	for _, tx := range []*models.Transaction{plain, targeted, other} {
		require.NoError(t, repo.CreateTransaction(ctx, tx))
	}

	got, err := repo.FindPendingTransaction(ctx, "u1", gPlan, "")
	require.NoError(t, err)
	require.Equal(t, gTx1, got.ID)
	got, err = repo.FindPendingTransaction(ctx, "u1", gPlan, gSub1)
	require.NoError(t, err)
	require.Equal(t, gTx2, got.ID)
	_, err = repo.FindPendingTransaction(ctx, "u1", gPlan, gSub2)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = repo.MarkCaptured(ctx, "order_2", "pay_2", base.Add(time.Hour))
	require.NoError(t, err)
	_, _, err = repo.MarkCaptured(ctx, "order_1", "pay_1", base.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = repo.FindPendingTransaction(ctx, "u1", gPlan, "")
	require.ErrorIs(t, err, ErrNotFound)

	pending, err := repo.ListUnprovisioned(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, gTx2, pending[0].ID)
	require.Equal(t, gTx1, pending[1].ID)

	history, err := repo.ListTransactionsForUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, gTx2, history[0].ID)
	limited, err := repo.ListTransactionsForUser(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestGormListSubscriptionsForUser(t *testing.T) {
	ctx := context.Background()
	repo, gdb := newSQLite(t)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Create(gormSub(gSub1, 0, end)).Error)
	require.NoError(t, gdb.Create(gormSub(gSub2, 0, end.AddDate(0, 0, 30))).Error)
	foreign := gormSub("01900000-0000-7000-9000-000000000003", 0, end)
	foreign.UserID = "u2"
	require.NoError(t, gdb.Create(foreign).Error)

	subs, err := repo.ListSubscriptionsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, gSub2, subs[0].ID)
	require.Equal(t, gSub1, subs[1].ID)

	none, err := repo.ListSubscriptionsForUser(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, none)
}
