package mid

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/pkg/logger"
)

func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()

		//full path with queries
		p := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			p = p + "?" + c.Request.URL.RawQuery
		}

		log.Info(c.Request.Context(), "request started", "method", c.Request.Method, "path", p, "remoteAddr", c.ClientIP())

		c.Next()

		log.Info(c.Request.Context(), "request completed",
			"method", c.Request.Method,
			"path", p,
			"remoteAddr", c.ClientIP(),
			"statusCode", c.Writer.Status(),
			"took", time.Since(startedAt),
		)
	}
}
