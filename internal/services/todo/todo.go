// Package todo реализует операции над списками задач и задачами пользователя.
// Все операции ограничены владельцем: чужие записи выглядят как отсутствующие.
package todo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/cache"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// Repository методы хранилища для списков и задач.
type Repository interface {
	CreateTodoList(ctx context.Context, userUID, name string) (*models.TodoList, error)
	ListTodoLists(ctx context.Context, userUID string, page models.Page) ([]*models.TodoList, error)
	GetTodoList(ctx context.Context, userUID string, id int64) (*models.TodoList, error)
	UpdateTodoList(ctx context.Context, userUID string, id int64, name string) error
	DeleteTodoList(ctx context.Context, userUID string, id int64) error

	CreateTodo(ctx context.Context, userUID string, todo models.Todo, admit func(models.Usage) error) (*models.Todo, error)
	GetTodo(ctx context.Context, userUID string, id int64) (*models.Todo, error)
	ListTodos(ctx context.Context, userUID string, filter models.TodoFilter) ([]*models.Todo, error)
	UpdateTodo(ctx context.Context, userUID string, id int64, patch models.TodoPatch) (*models.Todo, int64, error)
	ToggleTodo(ctx context.Context, userUID string, id int64) (*models.Todo, error)
	DeleteTodo(ctx context.Context, userUID string, id int64) (int64, error)
}

// Entitlements решает, может ли пользователь создать ещё одну задачу.
type Entitlements interface {
	Admit(u models.Usage) error
}

// Service бизнес-логика задач.
type Service struct {
	repo     Repository
	cache    cache.Store
	entitled Entitlements
	cacheTTL time.Duration
	log      *slog.Logger
}

// New создаёт Service. nil-кеш заменяется на cache.Noop.
func New(repo Repository, store cache.Store, entitled Entitlements, cacheTTL time.Duration, log *slog.Logger) *Service {
	if store == nil {
		store = cache.Noop{}
	}
	return &Service{
		repo:     repo,
		cache:    store,
		entitled: entitled,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func listKey(id int64) string {
	return fmt.Sprintf("todolist:%d", id)
}

// CreateList создаёт пустой список задач.
func (s *Service) CreateList(ctx context.Context, userUID, name string) (*models.TodoList, error) {
	const op = "services.todo.CreateList"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("name must not be empty"))
	}
	list, err := s.repo.CreateTodoList(ctx, userUID, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("todo list created", sl.UserUID(userUID), slog.Int64("list_id", list.ID))
	return list, nil
}

func (s *Service) ListLists(ctx context.Context, userUID string, page models.Page) ([]*models.TodoList, error) {
	const op = "services.todo.ListLists"
	lists, err := s.repo.ListTodoLists(ctx, userUID, page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lists, nil
}

// GetList возвращает список вместе с задачами. Результат кешируется;
// владелец проверяется и для записи из кеша. Версия ключа читается до
// запроса к базе, поэтому снимок, устаревший из-за параллельного
// изменения, в кеш не попадает.
func (s *Service) GetList(ctx context.Context, userUID string, id int64) (*models.TodoList, error) {
	const op = "services.todo.GetList"

	key := listKey(id)
	var cached models.TodoList
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
	}
	if found && err == nil {
		if cached.UserUID != userUID {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		}
		return &cached, nil
	}

	version, verErr := s.cache.Version(ctx, key)
	if verErr != nil {
		s.log.Warn("failed to read cache version", slog.String("key", key), sl.Err(verErr))
	}

	list, err := s.repo.GetTodoList(ctx, userUID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if verErr != nil {
		return list, nil
	}
	stored, err := s.cache.SetIfVersion(ctx, key, list, s.cacheTTL, version)
	if err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", key), sl.Err(err))
	} else if !stored {
		s.log.Debug("cache key changed during read, skipping", slog.String("key", key))
	}
	return list, nil
}

func (s *Service) UpdateList(ctx context.Context, userUID string, id int64, name string) (*models.TodoList, error) {
	const op = "services.todo.UpdateList"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("name must not be empty"))
	}
	if err := s.repo.UpdateTodoList(ctx, userUID, id, name); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)

	list, err := s.repo.GetTodoList(ctx, userUID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// DeleteList удаляет список, задачи удаляются каскадом.
func (s *Service) DeleteList(ctx context.Context, userUID string, id int64) error {
	const op = "services.todo.DeleteList"
	if err := s.repo.DeleteTodoList(ctx, userUID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("todo list deleted", sl.UserUID(userUID), slog.Int64("list_id", id))
	return nil
}

// Create создаёт задачу. Квота проверяется в транзакции вставки под
// блокировкой пользователя, при отказе возвращается *apperr.QuotaError.
func (s *Service) Create(ctx context.Context, userUID string, req models.DummyTodo) (*models.Todo, error) {
	const op = "services.todo.Create"

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("description must not be empty"))
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	todo, err := s.repo.CreateTodo(ctx, userUID, models.Todo{
		Description: description,
		Complete:    req.Complete,
		DueDate:     dueDate,
		TodoListID:  req.TodoListID,
	}, s.entitled.Admit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, todo.TodoListID)
	s.log.Info("todo created", sl.UserUID(userUID), slog.Int64("todo_id", todo.ID))
	return todo, nil
}

func (s *Service) Get(ctx context.Context, userUID string, id int64) (*models.Todo, error) {
	const op = "services.todo.Get"
	todo, err := s.repo.GetTodo(ctx, userUID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return todo, nil
}

func (s *Service) List(ctx context.Context, userUID string, filter models.TodoFilter) ([]*models.Todo, error) {
	const op = "services.todo.List"
	todos, err := s.repo.ListTodos(ctx, userUID, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return todos, nil
}

// Update применяет частичное обновление. При переносе задачи
// сбрасывается кеш обоих списков.
func (s *Service) Update(ctx context.Context, userUID string, id int64, req models.DummyTodoPatch) (*models.Todo, error) {
	const op = "services.todo.Update"

	patch := models.TodoPatch{
		Complete:   req.Complete,
		TodoListID: req.TodoListID,
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if d == "" {
			return nil, fmt.Errorf("%s: %w", op, apperr.Validation("description must not be empty"))
		}
		patch.Description = &d
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		patch.DueDate = due
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("nothing to update"))
	}

	todo, prevList, err := s.repo.UpdateTodo(ctx, userUID, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, prevList, todo.TodoListID)
	return todo, nil
}

func (s *Service) Toggle(ctx context.Context, userUID string, id int64) (*models.Todo, error) {
	const op = "services.todo.Toggle"
	todo, err := s.repo.ToggleTodo(ctx, userUID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, todo.TodoListID)
	return todo, nil
}

func (s *Service) Delete(ctx context.Context, userUID string, id int64) error {
	const op = "services.todo.Delete"
	listID, err := s.repo.DeleteTodo(ctx, userUID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, listID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, listIDs ...int64) {
	keys := make([]string, 0, len(listIDs))
	seen := make(map[int64]struct{}, len(listIDs))
	for _, id := range listIDs {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, listKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("failed to remove from cache", slog.Any("keys", keys), sl.Err(err))
	}
}

// parseDate разбирает дату выполнения. Пустая строка означает отсутствие даты.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("due_date must be in %s format", models.DateLayout))
	}
	return &d, nil
}
