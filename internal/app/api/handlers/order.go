package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/service/order"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/response"
	"github.com/fatflowers/tgpass/pkg/types"
)

type CreateOrderRequest struct {
	PlanID     string `json:"plan_id"`
	CouponCode string `json:"coupon_code"`
}

type UpgradeSubscriptionRequest struct {
	PlanID string `json:"plan_id"`
	// Action is "upgrade" (default) or "renew".
	Action     types.OrderAction `json:"action"`
	CouponCode string            `json:"coupon_code"`
}

// @Summary      Create Order
// @Description  Creates a gateway order for a new subscription, or returns the caller's pending order for the same plan.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateOrderRequest true "Order request"
// @Success      200  {object}  handlers.RespOrder
// @Router       /api/v1/orders [post]
func ApiCreateOrder(svc OrderInitiator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.Initiate(c.Request.Context(), &order.InitiateRequest{
			UserID:     callerID(c),
			PlanID:     req.PlanID,
			Action:     types.OrderActionNew,
			CouponCode: req.CouponCode,
		})
		if err != nil {
			writeError(c, log, "order_create_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Upgrade or Renew Subscription
// @Description  Creates a gateway order that upgrades or renews the subscription once paid.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                     true "Subscription ID"
// @Param        request body UpgradeSubscriptionRequest true "Upgrade request"
// @Success      200  {object}  handlers.RespOrder
// @Router       /api/v1/subscriptions/{id}/upgrade [post]
func ApiUpgradeSubscription(svc OrderInitiator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpgradeSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if req.Action == "" {
			req.Action = types.OrderActionUpgrade
		}
		if !req.Action.NeedsTarget() {
			writeError(c, log, "order_upgrade_failed", apperr.Validation("invalid_action", "action must be upgrade or renew"))
			return
		}
		res, err := svc.Initiate(c.Request.Context(), &order.InitiateRequest{
			UserID:               callerID(c),
			PlanID:               req.PlanID,
			Action:               req.Action,
			TargetSubscriptionID: c.Param("id"),
			CouponCode:           req.CouponCode,
		})
		if err != nil {
			writeError(c, log, "order_upgrade_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}
