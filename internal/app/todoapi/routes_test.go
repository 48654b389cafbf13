package todoapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/subscription/webhook"
	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	customjwt "github.com/magabrotheeeer/todo-freemium/internal/lib/jwt"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newRouter(t *testing.T, burst int, db error) (http.Handler, *customjwt.MakerImpl) {
	t.Helper()
	maker := customjwt.NewJWTMaker("routes-secret", time.Minute)
	r := chi.NewRouter()
	RegisterRoutes(r, slog.New(slog.NewTextHandler(io.Discard, nil)), Services{
		Tokens:      maker,
		Health:      pinger{err: db},
		AuthLimiter: middlewarectx.NewIPLimiter(0.001, burst),
	})
	return r, maker
}

func TestRoutes(t *testing.T) {
	router, maker := newRouter(t, 10, nil)
	token, err := maker.GenerateToken("u-1", "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/api/v1/health", wantStatus: http.StatusOK},
		{name: "todos require token", method: http.MethodGet, path: "/api/v1/todos", wantStatus: http.StatusUnauthorized},
		{name: "subscription status requires token", method: http.MethodGet, path: "/api/v1/subscription/status", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodGet, path: "/api/v1/todo-lists", token: "garbage", wantStatus: http.StatusUnauthorized},
		{name: "valid token reaches handler", method: http.MethodGet, path: "/api/v1/todos/abc", token: token, wantStatus: http.StatusBadRequest},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestRoutes_HealthDatabaseDown(t *testing.T) {
	router, _ := newRouter(t, 10, errors.New("connection refused"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRoutes_AuthRateLimited(t *testing.T) {
	router, _ := newRouter(t, 1, nil)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusBadRequest, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRoutes_WebhookIsPublic(t *testing.T) {
	router, _ := newRouter(t, 10, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/webhook",
		bytes.NewReader(bytes.Repeat([]byte("x"), webhook.MaxPayloadBytes+1)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
