// Package toggle реализует HTTP-обработчик переключения признака выполнения задачи.
package toggle

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
	Toggle(ctx context.Context, userUID string, id int64) (*models.Todo, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Переключить выполнение задачи
// @Tags Todos
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID задачи"
// @Success 200 {object} response.Response{data=models.Todo}
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Задача не найдена"
// @Router /todos/{id}/toggle [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.toggle"

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
		log.Warn("invalid todo id", sl.Err(err))
		response.BadRequest(w, r, err.Error())
		return
	}

	todo, err := h.service.Toggle(r.Context(), userUID, id)
	if err != nil {
		log.Warn("failed to toggle todo", sl.Err(err), slog.Int64("todo_id", id))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(todo))
}
