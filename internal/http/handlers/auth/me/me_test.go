package me

import (
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

type MockService struct {
	mock.Mock
}

func (m *MockService) Me(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		userUID    string
		setupMock  func(m *MockService)
		wantStatus int
	}{
		{
			name:    "профиль получен",
			userUID: "u-1",
			setupMock: func(m *MockService) {
				m.On("Me", mock.Anything, "u-1").Return(&models.User{UID: "u-1", Email: "a@example.com", PasswordHash: "secret-hash"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "нет пользователя в контексте",
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "пользователь не найден",
			userUID: "u-2",
			setupMock: func(m *MockService) {
				m.On("Me", mock.Anything, "u-2").Return(nil, apperr.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-1")
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req.WithContext(ctx))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.NotContains(t, rr.Body.String(), "secret-hash")

			var resp response.Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, response.StatusOK, resp.Status)
			} else {
				assert.Equal(t, response.StatusError, resp.Status)
			}
			svc.AssertExpectations(t)
		})
	}
}
