package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/service/reconciler"
	"github.com/fatflowers/tgpass/internal/platform/razorpay"
	"github.com/fatflowers/tgpass/pkg/logctx"
)

const maxWebhookBody = 1 << 20

// @Summary      Razorpay Webhook
// @Description  Receives Razorpay payment events. The raw body must be signed with the webhook secret in X-Razorpay-Signature. Every verified delivery is acknowledged.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        X-Razorpay-Signature header string true "HMAC-SHA256 hex of the body"
// @Param        payload body object true "Razorpay event"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/webhooks/razorpay [post]
func ApiRazorpayWebhook(secret string, proc WebhookProcessor, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logctx.FromGin(c, log)
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			l.Warnw("webhook_razorpay_read_failed", "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"status": "invalid body"})
			return
		}
		if err := razorpay.VerifySignature(secret, body, c.GetHeader(razorpay.SignatureHeader)); err != nil {
			if errors.Is(err, razorpay.ErrMissingSecret) {
				l.Errorw("webhook_razorpay_secret_missing")
			} else {
				l.Warnw("webhook_razorpay_bad_signature", "err", err)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"status": "invalid signature"})
			return
		}

		env, err := razorpay.ParseWebhook(body)
		if err != nil {
			l.Errorw("webhook_razorpay_parse_failed", "err", err)
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		l.Infow("webhook_razorpay_received", "event", env.Event)

		ev := reconciler.EventFromWebhook(env, body, logctx.TraceID(c.Request.Context()))
		// the gateway may hang up before provisioning ends
		if err := proc.HandleEvent(context.WithoutCancel(c.Request.Context()), ev); err != nil {
			l.Errorw("webhook_razorpay_handle_error", "event", env.Event, "order_id", ev.OrderID, "err", err)
		} else {
			l.Infow("webhook_razorpay_handled", "event", env.Event, "order_id", ev.OrderID)
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
