// Package logout реализует HTTP-обработчик выхода: удаляет HttpOnly cookie
// с токеном, которую браузерный клиент сам очистить не может.
package logout

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
)

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Удаляет cookie access_token. Токен из заголовка Authorization клиент забывает сам.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		response.Unauthorized(w, r)
		return
	}

	middlewarectx.ClearTokenCookie(w, r)
	log.Info("logout", sl.UserUID(userUID))
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
