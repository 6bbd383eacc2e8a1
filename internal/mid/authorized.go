package mid

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/internal/errs"
)

// Authorized lets the request through when the claims hold one of roles.
func Authorized(a *auth.Auth, roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		val, ok := c.Get(claimsKey)
		if !ok {
			_ = c.Error(errs.Newf(http.StatusUnauthorized, "%s", http.StatusText(http.StatusUnauthorized)))
			c.Abort()
			return
		}

		claims, ok := val.(auth.Claims)
		if !ok {
			_ = c.Error(errs.Newf(http.StatusUnauthorized, "%s", http.StatusText(http.StatusUnauthorized)))
			c.Abort()
			return
		}

		if err := a.Authorized(claims, roleSet); err != nil {
			_ = c.Error(errs.Newf(http.StatusForbidden, "%s", err))
			c.Abort()
			return
		}

		c.Next()
	}
}
