// Package remove реализует HTTP-обработчик удаления списка задач вместе с задачами.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/request"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	DeleteList(ctx context.Context, userUID string, id int64) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить список задач
// @Description Удаляет список и все его задачи.
// @Tags TodoLists
// @Security BearerAuth
// @Param id path int true "ID списка"
// @Success 204 "Список удалён"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Список не найден"
// @Router /todo-lists/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todolist.remove"

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

	id, err := request.IDParam(r, "id")
	if err != nil {
		log.Warn("invalid list id", sl.Err(err))
		response.BadRequest(w, r, err.Error())
		return
	}

	if err := h.service.DeleteList(r.Context(), userUID, id); err != nil {
		log.Error("failed to delete todo list", sl.Err(err), slog.Int64("list_id", id))
		response.Fail(w, r, err)
		return
	}

	log.Info("todo list deleted", slog.Int64("list_id", id))
	render.NoContent(w, r)
}
