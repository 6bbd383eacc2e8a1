package mid

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/metrics"
)

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()

		c.Next()

		if len(c.Errors) > 0 {
			m.AddError()
		}

		m.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(startedAt))
	}
}
