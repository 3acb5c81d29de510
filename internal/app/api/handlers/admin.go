package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/pkg/response"
	"github.com/fatflowers/tgpass/pkg/types"
)

type UnprovisionedTransaction struct {
	ID                   string            `json:"id"`
	UserID               string            `json:"user_id"`
	PlanID               string            `json:"plan_id"`
	ChannelID            string            `json:"channel_id"`
	Amount               int64             `json:"amount"`
	Currency             string            `json:"currency"`
	GatewayOrderID       string            `json:"gateway_order_id"`
	GatewayPaymentID     string            `json:"gateway_payment_id"`
	Action               types.OrderAction `json:"action"`
	TargetSubscriptionID string            `json:"target_subscription_id,omitempty"`
	CapturedAt           *time.Time        `json:"captured_at"`
}

func toUnprovisioned(t *models.Transaction, _ int) *UnprovisionedTransaction {
	return &UnprovisionedTransaction{
		ID:                   t.ID,
		UserID:               t.UserID,
		PlanID:               t.PlanID,
		ChannelID:            t.ChannelID,
		Amount:               t.Amount,
		Currency:             t.Currency,
		GatewayOrderID:       t.GatewayOrderID,
		GatewayPaymentID:     lo.FromPtr(t.GatewayPaymentID),
		Action:               t.Action,
		TargetSubscriptionID: t.TargetID(),
		CapturedAt:           t.CapturedAt,
	}
}

// @Summary      List Unprovisioned Transactions (Admin)
// @Description  Lists captured payments whose activation failed and need manual reconciliation, oldest first.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Max rows (default and cap 100)"
// @Success      200  {object}  handlers.RespUnprovisioned
// @Router       /api/v1/admin/transactions/unprovisioned [get]
func ApiListUnprovisioned(proc WebhookProcessor, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := queryLimit(c)
		if !ok {
			return
		}
		txs, err := proc.ListUnprovisioned(c.Request.Context(), limit)
		if err != nil {
			writeError(c, log, "unprovisioned_list_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(lo.Map(txs, toUnprovisioned)))
	}
}
