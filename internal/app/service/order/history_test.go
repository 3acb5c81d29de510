package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/tool"
	"github.com/fatflowers/tgpass/pkg/types"
)

func (f *fixture) seedTx(t *testing.T, userID string, created time.Time) string {
	t.Helper()
	id := tool.GenerateUUIDV7()
	require.NoError(t, f.repo.CreateTransaction(context.Background(), &models.Transaction{
		ID:             id,
		UserID:         userID,
		PlanID:         planP30,
		ChannelID:      "c1",
		Amount:         39900,
		Currency:       "INR",
		ProviderID:     types.PaymentProviderRazorpay,
		GatewayOrderID: "order_" + id,
		Status:         types.TransactionStatusCreated,
		Action:         types.OrderActionNew,
		CreatedAt:      created,
	}))
	return id
}

func TestHistoryNewestFirstAndClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, f.seedTx(t, "u1", base.Add(time.Duration(i)*time.Hour)))
	}
	f.seedTx(t, "u2", base.Add(10*time.Hour))

	txs, err := f.svc.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Equal(t, ids[2], txs[0].ID)
	require.Equal(t, ids[0], txs[2].ID)

	txs, err = f.svc.History(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	txs, err = f.svc.History(ctx, "u1", MaxHistoryLimit+1)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	txs, err = f.svc.History(ctx, "nobody", 0)
	require.NoError(t, err)
	require.NotNil(t, txs)
	require.Empty(t, txs)

	_, err = f.svc.History(ctx, "", 0)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seedTx(t, "u1", time.Now())

	tx, err := f.svc.GetTransaction(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "u1", tx.UserID)

	_, err = f.svc.GetTransaction(ctx, "t1")
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Equal(t, "invalid_id", apperr.ReasonOf(err))

	_, err = f.svc.GetTransaction(ctx, tool.GenerateUUIDV7())
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, "transaction_not_found", apperr.ReasonOf(err))
}
