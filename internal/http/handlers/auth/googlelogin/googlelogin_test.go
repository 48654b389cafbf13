package googlelogin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Begin() (*models.OAuthLogin, error) {
	args := m.Called()
	login, _ := args.Get(0).(*models.OAuthLogin)
	return login, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestGoogleLoginHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name         string
		mockSetup    func(m *ServiceMock)
		expectedCode int
		checkResp    func(t *testing.T, rr *httptest.ResponseRecorder)
	}{
		{
			name: "перенаправление на google",
			mockSetup: func(m *ServiceMock) {
				m.On("Begin").Return(&models.OAuthLogin{
					AuthURL: "https://accounts.google.com/o/oauth2/auth?state=st-1",
					State:   "st-1",
				}, nil)
			},
			expectedCode: http.StatusFound,
			checkResp: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=st-1", rr.Header().Get("Location"))

				var cookie *http.Cookie
				for _, c := range rr.Result().Cookies() {
					if c.Name == middlewarectx.OAuthStateCookie {
						cookie = c
					}
				}
				require.NotNil(t, cookie)
				assert.Equal(t, "st-1", cookie.Value)
				assert.Equal(t, 600, cookie.MaxAge)
				assert.True(t, cookie.HttpOnly)
				assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
			},
		},
		{
			name: "ошибка генерации state",
			mockSetup: func(m *ServiceMock) {
				m.On("Begin").Return(nil, errors.New("entropy exhausted"))
			},
			expectedCode: http.StatusInternalServerError,
			checkResp: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.Empty(t, rr.Result().Cookies())
				assert.Empty(t, rr.Header().Get("Location"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.mockSetup(svc)

			req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id")
			rr := httptest.NewRecorder()

			New(newNoopLogger(), svc, 10*time.Minute).ServeHTTP(rr, req.WithContext(ctx))

			assert.Equal(t, tt.expectedCode, rr.Code)
			tt.checkResp(t, rr)
			svc.AssertExpectations(t)
		})
	}
}
