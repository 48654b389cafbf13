package googlecallback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Complete(ctx context.Context, code, state, expectedState string) (*models.Session, error) {
	args := m.Called(ctx, code, state, expectedState)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func cookieByName(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGoogleCallbackHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		stateCookie  string
		mockSetup    func(m *ServiceMock)
		expectedCode int
		checkResp    func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name:        "успешный вход",
			query:       "?code=c-1&state=st-1",
			stateCookie: "st-1",
			mockSetup: func(m *ServiceMock) {
				m.On("Complete", mock.Anything, "c-1", "st-1", "st-1").Return(&models.Session{
					AccessToken: "jwt-token",
					TokenType:   "bearer",
					ExpiresIn:   3600,
					User:        &models.User{UID: "u-1"},
				}, nil)
			},
			expectedCode: http.StatusFound,
			checkResp: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Equal(t, "https://app.example.com/auth/callback", rr.Header().Get("Location"))
				assert.NotContains(t, rr.Header().Get("Location"), "jwt-token")

				token := cookieByName(rr, middlewarectx.TokenCookie)
				if assert.NotNil(t, token) {
					assert.Equal(t, "jwt-token", token.Value)
					assert.Equal(t, 3600, token.MaxAge)
					assert.True(t, token.HttpOnly)
				}
				state := cookieByName(rr, middlewarectx.OAuthStateCookie)
				if assert.NotNil(t, state) {
					assert.Equal(t, -1, state.MaxAge)
				}
			},
		},
		{
			name:  "нет cookie со state",
			query: "?code=c-1&state=st-1",
			mockSetup: func(m *ServiceMock) {
				m.On("Complete", mock.Anything, "c-1", "st-1", "").
					Return(nil, fmt.Errorf("op: %w", apperr.Validation("invalid oauth state")))
			},
			expectedCode: http.StatusBadRequest,
			checkResp: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Nil(t, cookieByName(rr, middlewarectx.TokenCookie))
				assert.Empty(t, rr.Header().Get("Location"))
			},
		},
		{
			name:        "google отклонил код",
			query:       "?code=bad&state=st-1",
			stateCookie: "st-1",
			mockSetup: func(m *ServiceMock) {
				m.On("Complete", mock.Anything, "bad", "st-1", "st-1").
					Return(nil, fmt.Errorf("op: %w", apperr.Authentication("authorization code rejected")))
			},
			expectedCode: http.StatusUnauthorized,
			checkResp: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Nil(t, cookieByName(rr, middlewarectx.TokenCookie))
				state := cookieByName(rr, middlewarectx.OAuthStateCookie)
				if assert.NotNil(t, state) {
					assert.Equal(t, -1, state.MaxAge)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.mockSetup(svc)

			req := httptest.NewRequest(http.MethodGet, "/auth/google/callback"+tt.query, nil)
			if tt.stateCookie != "" {
				req.AddCookie(&http.Cookie{Name: middlewarectx.OAuthStateCookie, Value: tt.stateCookie})
			}
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id")
			rr := httptest.NewRecorder()

			New(newNoopLogger(), svc, "https://app.example.com/").ServeHTTP(rr, req.WithContext(ctx))

			assert.Equal(t, tt.expectedCode, rr.Code)
			tt.checkResp(t, rr)
			svc.AssertExpectations(t)
		})
	}
}
