package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/api/middleware"
	"github.com/fatflowers/tgpass/internal/app/service/audit"
	"github.com/fatflowers/tgpass/internal/app/service/lifecycle"
	"github.com/fatflowers/tgpass/internal/app/service/order"
	"github.com/fatflowers/tgpass/internal/app/service/reconciler"
	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/logctx"
	"github.com/fatflowers/tgpass/pkg/response"
)

type OrderInitiator interface {
	Initiate(ctx context.Context, req *order.InitiateRequest) (*order.OrderResult, error)
}

type SubscriptionOperator interface {
	Get(ctx context.Context, id string) (*models.Subscription, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Subscription, error)
	Extend(ctx context.Context, actor audit.Actor, id string, days int) (*models.Subscription, error)
	BulkExtend(ctx context.Context, actor audit.Actor, ids []string, days int) (*lifecycle.BulkResult, error)
	Revoke(ctx context.Context, actor audit.Actor, id string) (*lifecycle.RevokeResult, error)
}

type TransactionReader interface {
	History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
}

type WebhookProcessor interface {
	HandleEvent(ctx context.Context, ev *reconciler.Event) error
	ListUnprovisioned(ctx context.Context, limit int) ([]*models.Transaction, error)
}

// writeError answers with the failure envelope. Business failures keep HTTP 200.
func writeError(c *gin.Context, log *zap.SugaredLogger, event string, err error) {
	l := logctx.FromGin(c, log)
	if k := apperr.KindOf(err); k == apperr.KindInternal || k == apperr.KindUpstream {
		l.Errorw(event, "err", err)
	} else {
		l.Infow(event, "err", err)
	}
	c.JSON(http.StatusOK, response.FromError(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusOK, response.ErrorMsgT(response.APIResponseCodeBadRequest, err.Error(), &response.ErrorData{Reason: "invalid_body"}))
}

// queryLimit reads an optional non-negative ?limit. On a bad value it has
// already answered and returns false.
func queryLimit(c *gin.Context) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.JSON(http.StatusOK, response.ErrorMsgT(response.APIResponseCodeBadRequest, "invalid limit", &response.ErrorData{Reason: "invalid_limit"}))
		return 0, false
	}
	return n, true
}

func callerID(c *gin.Context) string {
	if p := middleware.PrincipalFrom(c); p != nil {
		return p.UserID
	}
	return ""
}

func adminActor(c *gin.Context) audit.Actor {
	return audit.AdminActor(callerID(c))
}
