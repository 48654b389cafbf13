// Package googlecallback реализует обратный вызов входа через Google.
// При успехе токен кладётся в HttpOnly cookie, а клиент перенаправляется
// на фронтенд; в адресе токен не передаётся.
package googlecallback

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type Handler struct {
	log         *slog.Logger
	service     Service
	redirectURL string
}

type Service interface {
	Complete(ctx context.Context, code, state, expectedState string) (*models.Session, error)
}

// New создаёт Handler. После входа клиент уходит на frontendOrigin/auth/callback.
func New(log *slog.Logger, service Service, frontendOrigin string) *Handler {
	return &Handler{
		log:         log,
		service:     service,
		redirectURL: strings.TrimRight(frontendOrigin, "/") + "/auth/callback",
	}
}

// ServeHTTP godoc
// @Summary Обратный вызов Google
// @Description Проверяет state, находит или создаёт пользователя, выставляет cookie access_token и перенаправляет на фронтенд.
// @Tags Auth
// @Param code query string true "Код авторизации"
// @Param state query string true "State из cookie oauth_state"
// @Success 302 "Перенаправление на фронтенд"
// @Failure 400 {object} response.ErrorResponse "Неверный state или код"
// @Failure 401 {object} response.ErrorResponse "Google отклонил код или email не подтверждён"
// @Failure 502 {object} response.ErrorResponse "Google недоступен"
// @Router /auth/google/callback [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.googlecallback"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var expected string
	if c, err := r.Cookie(middlewarectx.OAuthStateCookie); err == nil {
		expected = c.Value
	}
	middlewarectx.ClearOAuthStateCookie(w, r)

	q := r.URL.Query()
	session, err := h.service.Complete(r.Context(), q.Get("code"), q.Get("state"), expected)
	if err != nil {
		log.Warn("google login failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	middlewarectx.SetTokenCookie(w, r, session.AccessToken, time.Duration(session.ExpiresIn)*time.Second)
	log.Info("google login success", sl.UserUID(session.User.UID))
	http.Redirect(w, r, h.redirectURL, http.StatusFound)
}
