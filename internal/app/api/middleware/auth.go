package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/app/service/authz"
	"github.com/fatflowers/tgpass/pkg/logctx"
	"github.com/fatflowers/tgpass/pkg/response"
)

const principalKey = "principal"

// TokenParser turns a bearer token into a principal.
type TokenParser interface {
	Parse(token string) (*authz.Principal, error)
}

// AuthMiddleware authenticates the bearer token and stores the principal in
// gin.Context. user_id is added to the request logger.
func AuthMiddleware(p TokenParser, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		principal, err := p.Parse(token)
		if err != nil {
			logctx.FromGin(c, base).Infow("auth_rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		c.Set(principalKey, principal)
		logctx.Set(c, logctx.KeyUserID, principal.UserID)
		logctx.Set(c, logctx.KeyLogger, logctx.FromGin(c, base).With("user_id", principal.UserID))
		c.Next()
	}
}

// RequirePermission rejects callers whose role lacks perm.
func RequirePermission(a authz.Authorizer, perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil || !a.Can(p.Role, perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, nil))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated caller, or nil.
func PrincipalFrom(c *gin.Context) *authz.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*authz.Principal); ok {
			return p
		}
	}
	return nil
}
