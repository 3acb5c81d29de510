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

// @Summary      List My Transactions
// @Description  Returns the caller's payment history, newest first.
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Max rows (default 50, cap 100)"
// @Success      200  {object}  handlers.RespTransactions
// @Router       /api/v1/transactions [get]
func ApiListMyTransactions(svc TransactionReader, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := queryLimit(c)
		if !ok {
			return
		}
		txs, err := svc.History(c.Request.Context(), callerID(c), limit)
		if err != nil {
			writeError(c, log, "transaction_list_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(txs))
	}
}

// @Summary      Get Transaction
// @Description  Returns one transaction. Transactions of other users are reported as not found unless the caller may read all transactions.
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Transaction ID"
// @Success      200  {object}  handlers.RespTransaction
// @Router       /api/v1/transactions/{id} [get]
func ApiGetTransaction(svc TransactionReader, a authz.Authorizer, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := svc.GetTransaction(c.Request.Context(), c.Param("id"))
		if err == nil {
			p := middleware.PrincipalFrom(c)
			if p == nil || (tx.UserID != p.UserID && !a.Can(p.Role, authz.PermReadTransaction)) {
				err = apperr.NotFound("transaction_not_found", "transaction not found")
			}
		}
		if err != nil {
			writeError(c, log, "transaction_get_failed", err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(tx))
	}
}
