// Package list реализует HTTP-обработчик получения задач пользователя.
package list

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
	List(ctx context.Context, userUID string, filter models.TodoFilter) ([]*models.Todo, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Задачи пользователя
// @Tags Todos
// @Produce  json
// @Security BearerAuth
// @Param todo_list_id query int false "Фильтр по списку"
// @Param limit query int false "Размер страницы (по умолчанию 50, максимум 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.Todo}
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /todos [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.list"

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

	listID, err := request.Int64Query(r, "todo_list_id")
	if err != nil {
		log.Warn("invalid todo_list_id", sl.Err(err))
		response.BadRequest(w, r, err.Error())
		return
	}
	page, err := request.Page(r)
	if err != nil {
		log.Warn("invalid pagination", sl.Err(err))
		response.BadRequest(w, r, err.Error())
		return
	}

	todos, err := h.service.List(r.Context(), userUID, models.TodoFilter{
		TodoListID: listID,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		log.Error("failed to list todos", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	if todos == nil {
		todos = []*models.Todo{}
	}

	render.JSON(w, r, response.StatusOKWithData(todos))
}
