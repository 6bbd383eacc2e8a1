// Package apitest wires the api against in-memory stores for handler tests.
package apitest

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/hamidoujand/usersadmin/internal/auth"
	addrbus "github.com/hamidoujand/usersadmin/internal/domains/address/bus"
	"github.com/hamidoujand/usersadmin/internal/domains/address/store/addressmem"
	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/domains/user/store/usermem"
	"github.com/hamidoujand/usersadmin/internal/metrics"
	"github.com/hamidoujand/usersadmin/internal/mid"
	"github.com/hamidoujand/usersadmin/internal/notify"
	"github.com/hamidoujand/usersadmin/pkg/keystore"
	"github.com/hamidoujand/usersadmin/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const issuer = "apitest"

type Test struct {
	Router    *gin.Engine
	Auth      *auth.Auth
	Users     *usrbus.Bus
	Addresses *addrbus.Bus
	Hub       *notify.Hub
	Log       *logger.Logger
	Tracer    trace.Tracer
	kid       string
}

// New builds a router with the error and panic middlewares installed. Callers
// register the routes under test on Router.
func New(t *testing.T) *Test {
	t.Helper()

	gin.SetMode(gin.TestMode)

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generateKey: %s", err)
	}

	kid := uuid.NewString()
	ks := keystore.New()
	ks.Add(kid, pk)

	log := logger.New(io.Discard, logger.LevelDebug, "apitest", func(ctx context.Context) string { return "" })

	hub := notify.NewHub()
	t.Cleanup(hub.Close)

	addrStore := addressmem.NewStore()
	usrStore := usermem.NewStore()
	usrStore.OnDelete = addrStore.DeleteByUser

	users := usrbus.New(usrStore, hub)

	router := gin.New()
	router.Use(mid.Error(log), mid.Panic(metrics.New()))

	return &Test{
		Router:    router,
		Auth:      auth.New(ks, issuer),
		Users:     users,
		Addresses: addrbus.New(addrStore, users, hub),
		Hub:       hub,
		Log:       log,
		Tracer:    noop.NewTracerProvider().Tracer("apitest"),
		kid:       kid,
	}
}

// Token signs a short lived operator token carrying roles.
func (at *Test) Token(t *testing.T, roles ...string) string {
	t.Helper()

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "operator@example.com",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}

	token, err := at.Auth.GenerateToken(at.kid, claims)
	if err != nil {
		t.Fatalf("generateToken: %s", err)
	}

	return token
}

// Do sends body as json to the router. An empty token sends no Authorization
// header.
func (at *Test) Do(t *testing.T, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %s", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	at.Router.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals the recorded response body into v.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %s", rec.Body.String(), err)
	}
}

// ExpectStatus fails the test when the response has another status code.
func ExpectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()

	if rec.Code != want {
		t.Fatalf("status=%d (%s), got=%d body=%s", want, http.StatusText(want), rec.Code, rec.Body.String())
	}
}
