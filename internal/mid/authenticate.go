package mid

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/internal/errs"
)

const claimsKey = "claims"

// Authenticate verifies the bearer token and stores its claims on the context.
func Authenticate(a *auth.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.VerifyToken(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			_ = c.Error(errs.Newf(http.StatusUnauthorized, "verifyToken: %s", err))
			c.Abort()
			return
		}

		if claims.Subject == "" {
			_ = c.Error(errs.Newf(http.StatusUnauthorized, "token has no subject"))
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(auth.SetClaims(c.Request.Context(), claims))

		c.Next()
	}
}
