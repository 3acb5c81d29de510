package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/api/middleware"
	"github.com/fatflowers/tgpass/internal/app/service/authz"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/response"
)

type ExtendRequest struct {
	Days int `json:"days"`
}

type BulkExtendRequest struct {
	IDs  []string `json:"ids"`
	Days int      `json:"days"`
}

// @Summary      List My Subscriptions
// @Description  Returns the caller's subscriptions, latest end date first, each with its current status.
// @Tags         Subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSubscriptions
// @Router       /api/v1/subscriptions [get]
func ApiListMySubscriptions(svc SubscriptionOperator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := svc.ListForUser(c.Request.Context(), callerID(c))
		if err != nil {
			writeError(c, log, "subscription_list_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

// @Summary      Get Subscription
// @Description  Returns a subscription with its current status. Subscriptions of other users are reported as not found.
// @Tags         Subscription
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Subscription ID"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscriptions/{id} [get]
func ApiGetSubscription(svc SubscriptionOperator, a authz.Authorizer, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err == nil {
			p := middleware.PrincipalFrom(c)
			if p == nil || (sub.UserID != p.UserID && !a.Can(p.Role, authz.PermExtendSubscription)) {
				err = apperr.NotFound("subscription_not_found", "Subscription not found.")
			}
		}
		if err != nil {
			writeError(c, log, "subscription_get_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Extend Subscription (Admin)
// @Description  Pushes the end date by the given days from the later of the current end date and now. Expired subscriptions become active.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string        true "Subscription ID"
// @Param        request body ExtendRequest true "Days to add"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/subscriptions/{id}/extend [put]
func ApiExtendSubscription(svc SubscriptionOperator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExtendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		sub, err := svc.Extend(c.Request.Context(), adminActor(c), c.Param("id"), req.Days)
		if err != nil {
			writeError(c, log, "subscription_extend_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Bulk Extend Subscriptions (Admin)
// @Description  Extends each subscription independently and reports per-id results.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BulkExtendRequest true "IDs and days"
// @Success      200  {object}  handlers.RespBulkExtend
// @Router       /api/v1/admin/subscriptions/extend/bulk [put]
func ApiBulkExtendSubscriptions(svc SubscriptionOperator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BulkExtendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		res, err := svc.BulkExtend(c.Request.Context(), adminActor(c), req.IDs, req.Days)
		if err != nil {
			writeError(c, log, "subscription_bulk_extend_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Revoke Subscription (Admin)
// @Description  Revokes a subscription and removes the member from the channel on a best-effort basis. Revoking twice succeeds.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Subscription ID"
// @Success      200  {object}  handlers.RespRevoke
// @Router       /api/v1/admin/subscriptions/{id}/revoke [put]
func ApiRevokeSubscription(svc SubscriptionOperator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Revoke(c.Request.Context(), adminActor(c), c.Param("id"))
		if err != nil {
			writeError(c, log, "subscription_revoke_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}
