package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamidoujand/usersadmin/internal/metrics"
)

func Test_Handler(t *testing.T) {
	m := metrics.New()

	m.RecordRequest(http.MethodGet, "/v1/users", http.StatusOK, 20*time.Millisecond)
	m.RecordRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	m.AddError()
	m.AddPanic()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, got=%d", http.StatusOK, w.Code)
	}

	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("readAll: %s", err)
	}

	for _, want := range []string{
		`usersadmin_requests_total{code="200",method="GET",route="/v1/users"} 1`,
		`usersadmin_requests_total{code="404",method="GET",route="unmatched"} 1`,
		`usersadmin_errors_total 1`,
		`usersadmin_panics_total 1`,
		`usersadmin_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
