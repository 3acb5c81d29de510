package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/tgpass/internal/app/api/middleware"
	"github.com/fatflowers/tgpass/internal/app/service/authz"
)

// RegisterUserRoutes mounts the caller-facing routes. r must already run the
// auth middleware.
func RegisterUserRoutes(r gin.IRouter, orders OrderInitiator, subs SubscriptionOperator, txs TransactionReader, a authz.Authorizer, log *zap.SugaredLogger) {
	r.POST("/orders", mw.RequirePermission(a, authz.PermCreateOrder), ApiCreateOrder(orders, log))
	r.POST("/subscriptions/:id/upgrade", mw.RequirePermission(a, authz.PermUpgradeSubscription), ApiUpgradeSubscription(orders, log))
	r.GET("/subscriptions", mw.RequirePermission(a, authz.PermReadSubscription), ApiListMySubscriptions(subs, log))
	r.GET("/subscriptions/:id", mw.RequirePermission(a, authz.PermReadSubscription), ApiGetSubscription(subs, a, log))
	r.GET("/transactions", mw.RequirePermission(a, authz.PermReadOwnTransaction), ApiListMyTransactions(txs, log))
	r.GET("/transactions/:id", mw.RequirePermission(a, authz.PermReadOwnTransaction), ApiGetTransaction(txs, a, log))
}

// RegisterAdminRoutes mounts operator routes under r.
func RegisterAdminRoutes(r gin.IRouter, subs SubscriptionOperator, proc WebhookProcessor, a authz.Authorizer, log *zap.SugaredLogger) {
	r.PUT("/subscriptions/extend/bulk", mw.RequirePermission(a, authz.PermExtendSubscription), ApiBulkExtendSubscriptions(subs, log))
	r.PUT("/subscriptions/:id/extend", mw.RequirePermission(a, authz.PermExtendSubscription), ApiExtendSubscription(subs, log))
	r.PUT("/subscriptions/:id/revoke", mw.RequirePermission(a, authz.PermRevokeSubscription), ApiRevokeSubscription(subs, log))
	r.GET("/transactions/unprovisioned", mw.RequirePermission(a, authz.PermReadTransaction), ApiListUnprovisioned(proc, log))
}

// RegisterWebhookRoutes mounts gateway callbacks. They are authenticated by signature only.
func RegisterWebhookRoutes(r gin.IRouter, secret string, proc WebhookProcessor, log *zap.SugaredLogger) {
	r.POST("/razorpay", ApiRazorpayWebhook(secret, proc, log))
}
