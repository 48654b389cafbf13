// Package update реализует HTTP-обработчик частичного обновления задачи.
// Передача todo_list_id переносит задачу в другой список пользователя.
package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/request"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	Update(ctx context.Context, userUID string, id int64, req models.DummyTodoPatch) (*models.Todo, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновить задачу
// @Tags Todos
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID задачи"
// @Param request body models.DummyTodoPatch true "Изменяемые поля"
// @Success 200 {object} response.Response{data=models.Todo}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Задача или список не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /todos/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.update"

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

	var req models.DummyTodoPatch
	if err := request.DecodeJSON(r, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	todo, err := h.service.Update(r.Context(), userUID, id, req)
	if err != nil {
		log.Warn("failed to update todo", sl.Err(err), slog.Int64("todo_id", id))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(todo))
}
