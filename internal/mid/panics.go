package mid

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/metrics"
)

// Panic turns a panic into a 500 error handled by the Error middleware.
func Panic(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				m.AddPanic()

				trace := debug.Stack()
				_ = c.Error(errs.Newf(http.StatusInternalServerError, "PANIC [%v] TRACE[%s]", rec, string(trace)))
				c.Abort()
			}
		}()

		c.Next()
	}
}
