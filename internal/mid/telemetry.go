package mid

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry opens a server span per request, named after the matched route so
// /v1/users/1 and /v1/users/2 land under the same operation.
func Telemetry(tracer trace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracer.Start(
			c.Request.Context(),
			"http "+c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("http.client_ip", c.ClientIP()),
			),
		)
		defer span.End()

		if span.SpanContext().HasTraceID() {
			ctx = telemetry.SetTraceID(ctx, span.SpanContext().TraceID().String())
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			var appErr *errs.Error
			if errors.As(err, &appErr) {
				span.SetAttributes(
					attribute.Int("app.error.code", appErr.Code),
					attribute.String("app.error.message", appErr.Message),
				)
				if len(appErr.Fields) > 0 {
					span.SetAttributes(attribute.Int("app.error.fields", len(appErr.Fields)))
				}
			}

			span.RecordError(err)
		}

		//client errors are the caller's problem, the span only fails on 5xx.
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
