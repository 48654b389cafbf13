package login

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.Session)
	return resp, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	creds := models.LoginRequest{Email: "alice@example.com", Password: "password123"}

	tests := []struct {
		name           string
		requestBody    any
		mockResp       *models.Session
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantCookie     bool
	}{
		{
			name:        "valid login",
			requestBody: creds,
			mockResp: &models.Session{AccessToken: "tok", TokenType: "bearer", ExpiresIn: 1800,
				User: &models.User{UID: "u-1", Email: "alice@example.com"}},
			wantStatusCode: http.StatusOK,
			wantStatus:     response.StatusOK,
			wantCookie:     true,
		},
		{
			name:           "invalid json",
			requestBody:    "{invalid json",
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     response.StatusError,
		},
		{
			name:           "validation error",
			requestBody:    models.LoginRequest{Email: "alice"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     response.StatusError,
		},
		{
			name:           "wrong credentials",
			requestBody:    creds,
			mockErr:        apperr.Authentication("invalid email or password"),
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     response.StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			if tt.mockResp != nil || tt.mockErr != nil {
				authMock.On("Login", mock.Anything, creds).Return(tt.mockResp, tt.mockErr).Once()
			}
			handler := New(newNoopLogger(), authMock)

			var body []byte
			if s, ok := tt.requestBody.(string); ok {
				body = []byte(s)
			} else {
				var err error
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id"))
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)

			var resp response.Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)

			var cookie *http.Cookie
			for _, c := range rr.Result().Cookies() {
				if c.Name == middlewarectx.TokenCookie {
					cookie = c
				}
			}
			if tt.wantCookie {
				require.NotNil(t, cookie)
				assert.Equal(t, "tok", cookie.Value)
				assert.True(t, cookie.HttpOnly)
				assert.Equal(t, 1800, cookie.MaxAge)
			} else {
				assert.Nil(t, cookie)
			}
			authMock.AssertExpectations(t)
		})
	}
}
