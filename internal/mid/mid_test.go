package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/metrics"
	"github.com/hamidoujand/usersadmin/internal/mid"
	"github.com/hamidoujand/usersadmin/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type payload struct {
	Street   string `json:"street" binding:"required"`
	PostCode string `json:"postCode" binding:"required,postcode"`
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	log := logger.New(io.Discard, logger.LevelInfo, "mid_test", func(ctx context.Context) string { return "" })

	r := gin.New()
	r.Use(mid.Error(log), mid.Panic(metrics.New()))

	r.GET("/not-found", func(c *gin.Context) {
		_ = c.Error(errs.Newf(http.StatusNotFound, "user %d not found", 7))
	})

	r.GET("/internal", func(c *gin.Context) {
		_ = c.Error(errs.Newf(http.StatusInternalServerError, "dial tcp 10.0.0.1:5432: refused"))
	})

	r.GET("/unknown", func(c *gin.Context) {
		_ = c.Error(errors.New("something odd"))
	})

	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	r.POST("/bind", func(c *gin.Context) {
		var p payload
		if err := c.ShouldBindJSON(&p); err != nil {
			_ = c.Error(errs.FromBinding(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	return r
}

func do(r *gin.Engine, method string, path string, body string) (int, errs.Error) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, rd))

	var appErr errs.Error
	_ = json.Unmarshal(rec.Body.Bytes(), &appErr)
	return rec.Code, appErr
}

func Test_Error(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   errs.Error
	}{
		{
			name:   "app_error",
			method: http.MethodGet,
			path:   "/not-found",
			want:   errs.Error{Code: http.StatusNotFound, Message: "user 7 not found"},
		},
		{
			name:   "internal_details_hidden",
			method: http.MethodGet,
			path:   "/internal",
			want:   errs.Error{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)},
		},
		{
			name:   "unknown_error",
			method: http.MethodGet,
			path:   "/unknown",
			want:   errs.Error{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)},
		},
		{
			name:   "panic",
			method: http.MethodGet,
			path:   "/panic",
			want:   errs.Error{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)},
		},
		{
			name:   "validation",
			method: http.MethodPost,
			path:   "/bind",
			body:   `{"postCode":"12345"}`,
			want: errs.Error{
				Code:    http.StatusBadRequest,
				Message: "input validation failed",
				Fields: map[string]string{
					"street":   "street is a required field",
					"postCode": "postCode must be in the XX-XXX format",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, got := do(r, tt.method, tt.path, tt.body)
			if code != tt.want.Code {
				t.Errorf("status=%d, got=%d", tt.want.Code, code)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_ErrorMalformedBody(t *testing.T) {
	r := newRouter(t)

	code, got := do(r, http.MethodPost, "/bind", `{"street":`)
	if code != http.StatusBadRequest {
		t.Errorf("status=%d, got=%d", http.StatusBadRequest, code)
	}

	if !strings.HasPrefix(got.Message, "malformed request") {
		t.Errorf("unexpected message: %q", got.Message)
	}
}

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	log := logger.New(io.Discard, logger.LevelInfo, "mid_test", func(ctx context.Context) string { return "" })

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	r := gin.New()
	r.Use(mid.Telemetry(tp.Tracer("mid_test")), mid.Error(log))

	r.GET("/v1/users/:user_id", func(c *gin.Context) {
		_ = c.Error(errs.Newf(http.StatusNotFound, "user %s not found", c.Param("user_id")))
	})

	r.GET("/v1/health", func(c *gin.Context) {
		_ = c.Error(errs.Newf(http.StatusInternalServerError, "database not ready"))
	})

	return r, sr
}

func Test_Telemetry(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantSpan   string
		wantRoute  string
		wantCode   int64
		wantStatus codes.Code
	}{
		{
			name:       "client_error",
			path:       "/v1/users/42",
			wantSpan:   "http GET /v1/users/:user_id",
			wantRoute:  "/v1/users/:user_id",
			wantCode:   http.StatusNotFound,
			wantStatus: codes.Unset,
		},
		{
			name:       "server_error",
			path:       "/v1/health",
			wantSpan:   "http GET /v1/health",
			wantRoute:  "/v1/health",
			wantCode:   http.StatusInternalServerError,
			wantStatus: codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, sr := newTracedRouter(t)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			spans := sr.Ended()
			if len(spans) != 1 {
				t.Fatalf("spans=1, got=%d", len(spans))
			}
			span := spans[0]

			if span.Name() != tt.wantSpan {
				t.Errorf("name=%q, got=%q", tt.wantSpan, span.Name())
			}

			if span.Status().Code != tt.wantStatus {
				t.Errorf("status=%s, got=%s", tt.wantStatus, span.Status().Code)
			}

			attrs := make(map[attribute.Key]attribute.Value)
			for _, kv := range span.Attributes() {
				attrs[kv.Key] = kv.Value
			}

			if got := attrs["http.route"].AsString(); got != tt.wantRoute {
				t.Errorf("http.route=%q, got=%q", tt.wantRoute, got)
			}

			if got := attrs["app.error.code"].AsInt64(); got != tt.wantCode {
				t.Errorf("app.error.code=%d, got=%d", tt.wantCode, got)
			}

			if got := attrs["http.status_code"].AsInt64(); got != tt.wantCode {
				t.Errorf("http.status_code=%d, got=%d", tt.wantCode, got)
			}

			if len(span.Events()) != 1 || span.Events()[0].Name != "exception" {
				t.Errorf("expected a single exception event, got=%v", span.Events())
			}
		})
	}
}

func Test_TelemetryUnmatchedRoute(t *testing.T) {
	r, sr := newTracedRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans=1, got=%d", len(spans))
	}

	if got := spans[0].Name(); got != "http GET unmatched" {
		t.Errorf("name=%q, got=%q", "http GET unmatched", got)
	}
}
