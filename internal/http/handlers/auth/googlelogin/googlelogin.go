// Package googlelogin реализует начало входа через Google: выдаёт state в
// HttpOnly cookie и перенаправляет на страницу согласия.
package googlelogin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	stateTTL time.Duration
}

type Service interface {
	Begin() (*models.OAuthLogin, error)
}

func New(log *slog.Logger, service Service, stateTTL time.Duration) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		stateTTL: stateTTL,
	}
}

// ServeHTTP godoc
// @Summary Вход через Google
// @Description Перенаправляет на страницу согласия Google. State сохраняется в cookie oauth_state.
// @Tags Auth
// @Success 302 "Перенаправление на Google"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /auth/google/login [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.googlelogin"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	login, err := h.service.Begin()
	if err != nil {
		log.Error("failed to start google login", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	middlewarectx.SetOAuthStateCookie(w, r, login.State, h.stateTTL)
	http.Redirect(w, r, login.AuthURL, http.StatusFound)
}
