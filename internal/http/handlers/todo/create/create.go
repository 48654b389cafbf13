// Package create реализует HTTP-обработчик создания задачи.
//
// На бесплатном уровне число задач ограничено: при исчерпании лимита
// возвращается 403 с кодом todo_limit_reached и текущими значениями квоты.
package create

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

// Handler обрабатывает HTTP-запросы на создание задачи.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс сервиса задач.
type Service interface {
	Create(ctx context.Context, userUID string, req models.DummyTodo) (*models.Todo, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать задачу
// @Tags Todos
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyTodo true "Данные задачи"
// @Success 201 {object} response.Response{data=models.Todo}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.Response{data=response.QuotaData} "Достигнут лимит бесплатного уровня"
// @Failure 404 {object} response.ErrorResponse "Список не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /todos [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.todo.create"

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

	var req models.DummyTodo
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

	todo, err := h.service.Create(r.Context(), userUID, req)
	if err != nil {
		log.Warn("failed to create todo", sl.Err(err), sl.UserUID(userUID))
		response.Fail(w, r, err)
		return
	}

	log.Info("todo created", slog.Int64("todo_id", todo.ID), slog.Int64("list_id", todo.TodoListID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(todo))
}
