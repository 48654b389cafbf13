// Package read реализует HTTP-обработчик получения одного списка задач.
package read

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
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	GetList(ctx context.Context, userUID string, id int64) (*models.TodoList, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить список задач
// @Tags TodoLists
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID списка"
// @Success 200 {object} response.Response{data=models.TodoList}
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Список не найден"
// @Router /todo-lists/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todolist.read"

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

	list, err := h.service.GetList(r.Context(), userUID, id)
	if err != nil {
		log.Warn("failed to get todo list", sl.Err(err), slog.Int64("list_id", id))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(list))
}
