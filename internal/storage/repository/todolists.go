package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

const todoColumns = `t.id, t.description, t.complete, t.due_date, t.todo_list_id, t.created_at, t.updated_at`

func scanTodo(row rowScanner) (*models.Todo, error) {
	var (
		t   models.Todo
		due sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Description, &t.Complete, &due, &t.TodoListID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return &t, nil
}

// CreateTodoList создаёт пустой список задач пользователя.
func (s *Storage) CreateTodoList(ctx context.Context, userUID, name string) (*models.TodoList, error) {
	const op = "storage.CreateTodoList"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	l := models.TodoList{Name: name, UserUID: userUID, Todos: []*models.Todo{}}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO todo_lists (name, user_uid) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		name, userUID).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return &l, nil
}

// ListTodoLists возвращает списки пользователя (новые первыми) вместе с задачами.
func (s *Storage) ListTodoLists(ctx context.Context, userUID string, page models.Page) ([]*models.TodoList, error) {
	const op = "storage.ListTodoLists"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, user_uid, created_at, updated_at
			  FROM todo_lists
			  WHERE user_uid = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`, userUID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	lists := make([]*models.TodoList, 0)
	byID := make(map[int64]*models.TodoList)
	ids := make([]int64, 0)
	for rows.Next() {
		l := &models.TodoList{Todos: []*models.Todo{}}
		if err := rows.Scan(&l.ID, &l.Name, &l.UserUID, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lists = append(lists, l)
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return lists, nil
	}

	todoRows, err := s.DB.QueryContext(ctx, `SELECT `+todoColumns+`
			  FROM todos t
			  WHERE t.todo_list_id = ANY($1)
			  ORDER BY t.complete, t.created_at DESC, t.id DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = todoRows.Close()
	}()
	for todoRows.Next() {
		t, err := scanTodo(todoRows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		byID[t.TodoListID].Todos = append(byID[t.TodoListID].Todos, t)
	}
	if err := todoRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lists, nil
}

// GetTodoList возвращает список пользователя с задачами.
// Чужой или несуществующий список возвращает apperr.ErrNotFound.
func (s *Storage) GetTodoList(ctx context.Context, userUID string, id int64) (*models.TodoList, error) {
	const op = "storage.GetTodoList"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	l := &models.TodoList{Todos: []*models.Todo{}}
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, user_uid, created_at, updated_at
			  FROM todo_lists WHERE id = $1 AND user_uid = $2`, id, userUID).
		Scan(&l.ID, &l.Name, &l.UserUID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+todoColumns+`
			  FROM todos t
			  WHERE t.todo_list_id = $1
			  ORDER BY t.complete, t.created_at DESC, t.id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		l.Todos = append(l.Todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

// UpdateTodoList переименовывает список пользователя.
func (s *Storage) UpdateTodoList(ctx context.Context, userUID string, id int64, name string) error {
	const op = "storage.UpdateTodoList"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE todo_lists SET name = $3, updated_at = NOW()
			  WHERE id = $1 AND user_uid = $2`, id, userUID, name)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}

// DeleteTodoList удаляет список; задачи удаляются каскадно.
func (s *Storage) DeleteTodoList(ctx context.Context, userUID string, id int64) error {
	const op = "storage.DeleteTodoList"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM todo_lists WHERE id = $1 AND user_uid = $2`, id, userUID)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}
