package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// AdmitFunc решает, можно ли пользователю создать ещё одну задачу.
// Вызывается под блокировкой строки пользователя.
type AdmitFunc = func(models.Usage) error

// CreateTodo создаёт задачу в списке пользователя. Строка пользователя
// блокируется до конца транзакции, поэтому параллельные создания одного
// пользователя проверяют квоту по очереди. Отказ admit откатывает транзакцию.
func (s *Storage) CreateTodo(ctx context.Context, userUID string, todo models.Todo, admit AdmitFunc) (*models.Todo, error) {
	const op = "storage.CreateTodo"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	var created *models.Todo
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var tier models.Tier
		if err := tx.QueryRowContext(ctx,
			`SELECT subscription_tier FROM users WHERE uid = $1 FOR UPDATE`, userUID).Scan(&tier); err != nil {
			return mapErr(op, err)
		}

		if err := ownsList(ctx, tx, userUID, todo.TodoListID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		count, err := countTodos(ctx, tx, userUID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := admit(models.Usage{Tier: tier, TodoCount: count}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		row := tx.QueryRowContext(ctx, `INSERT INTO todos AS t (description, complete, due_date, todo_list_id)
				  VALUES ($1, $2, $3, $4)
				  RETURNING `+todoColumns,
			todo.Description, todo.Complete, dateArg(todo.DueDate), todo.TodoListID)
		created, err = scanTodo(row)
		if err != nil {
			return mapErr(op, err)
		}

		_, err = tx.ExecContext(ctx, `UPDATE todo_lists SET updated_at = NOW() WHERE id = $1`, todo.TodoListID)
		return mapErr(op, err)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetTodo возвращает задачу, если её список принадлежит пользователю.
func (s *Storage) GetTodo(ctx context.Context, userUID string, id int64) (*models.Todo, error) {
	const op = "storage.GetTodo"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	t, err := scanTodo(s.DB.QueryRowContext(ctx, `SELECT `+todoColumns+`
			  FROM todos t
			  JOIN todo_lists l ON l.id = t.todo_list_id
			  WHERE t.id = $1 AND l.user_uid = $2`, id, userUID))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return t, nil
}

// ListTodos возвращает задачи пользователя: незавершённые первыми, затем новые.
func (s *Storage) ListTodos(ctx context.Context, userUID string, filter models.TodoFilter) ([]*models.Todo, error) {
	const op = "storage.ListTodos"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	var listID sql.NullInt64
	if filter.TodoListID != nil {
		listID = sql.NullInt64{Int64: *filter.TodoListID, Valid: true}
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+todoColumns+`
			  FROM todos t
			  JOIN todo_lists l ON l.id = t.todo_list_id
			  WHERE l.user_uid = $1 AND ($2::BIGINT IS NULL OR t.todo_list_id = $2)
			  ORDER BY t.complete, t.created_at DESC, t.id DESC
			  LIMIT $3 OFFSET $4`, userUID, listID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	todos := make([]*models.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return todos, nil
}

// UpdateTodo применяет частичное обновление задачи. При переносе в другой
// список проверяется, что целевой список тоже принадлежит пользователю.
// Возвращает обновлённую задачу и идентификатор списка, в котором она была.
func (s *Storage) UpdateTodo(ctx context.Context, userUID string, id int64, patch models.TodoPatch) (*models.Todo, int64, error) {
	const op = "storage.UpdateTodo"
	if err := ctxDone(ctx, op); err != nil {
		return nil, 0, err
	}

	var (
		updated  *models.Todo
		prevList int64
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT t.todo_list_id
				  FROM todos t
				  JOIN todo_lists l ON l.id = t.todo_list_id
				  WHERE t.id = $1 AND l.user_uid = $2
				  FOR UPDATE OF t`, id, userUID).Scan(&prevList)
		if err != nil {
			return mapErr(op, err)
		}

		if patch.TodoListID != nil && *patch.TodoListID != prevList {
			if err := ownsList(ctx, tx, userUID, *patch.TodoListID); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		var (
			description sql.NullString
			complete    sql.NullBool
			listID      sql.NullInt64
		)
		if patch.Description != nil {
			description = sql.NullString{String: *patch.Description, Valid: true}
		}
		if patch.Complete != nil {
			complete = sql.NullBool{Bool: *patch.Complete, Valid: true}
		}
		if patch.TodoListID != nil {
			listID = sql.NullInt64{Int64: *patch.TodoListID, Valid: true}
		}

		row := tx.QueryRowContext(ctx, `UPDATE todos AS t
				  SET description = COALESCE($2, t.description),
				      complete = COALESCE($3, t.complete),
				      due_date = COALESCE($4, t.due_date),
				      todo_list_id = COALESCE($5, t.todo_list_id),
				      updated_at = NOW()
				  WHERE t.id = $1
				  RETURNING `+todoColumns,
			id, description, complete, dateArg(patch.DueDate), listID)
		updated, err = scanTodo(row)
		return mapErr(op, err)
	})
	if err != nil {
		return nil, 0, err
	}
	return updated, prevList, nil
}

// ToggleTodo инвертирует признак выполнения задачи.
func (s *Storage) ToggleTodo(ctx context.Context, userUID string, id int64) (*models.Todo, error) {
	const op = "storage.ToggleTodo"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	t, err := scanTodo(s.DB.QueryRowContext(ctx, `UPDATE todos AS t
			  SET complete = NOT t.complete, updated_at = NOW()
			  FROM todo_lists l
			  WHERE t.id = $1 AND l.id = t.todo_list_id AND l.user_uid = $2
			  RETURNING `+todoColumns, id, userUID))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return t, nil
}

// DeleteTodo удаляет задачу и возвращает идентификатор её списка.
func (s *Storage) DeleteTodo(ctx context.Context, userUID string, id int64) (int64, error) {
	const op = "storage.DeleteTodo"
	if err := ctxDone(ctx, op); err != nil {
		return 0, err
	}

	var listID int64
	err := s.DB.QueryRowContext(ctx, `DELETE FROM todos t
			  USING todo_lists l
			  WHERE t.id = $1 AND l.id = t.todo_list_id AND l.user_uid = $2
			  RETURNING t.todo_list_id`, id, userUID).Scan(&listID)
	if err != nil {
		return 0, mapErr(op, err)
	}
	return listID, nil
}

// CountTodosByUser считает все задачи во всех списках пользователя.
func (s *Storage) CountTodosByUser(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountTodosByUser"
	if err := ctxDone(ctx, op); err != nil {
		return 0, err
	}

	count, err := countTodos(ctx, s.DB, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func dateArg(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(models.DateLayout)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func countTodos(ctx context.Context, q querier, userUID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*)
			  FROM todos t
			  JOIN todo_lists l ON l.id = t.todo_list_id
			  WHERE l.user_uid = $1`, userUID).Scan(&count)
	return count, err
}

func ownsList(ctx context.Context, q querier, userUID string, listID int64) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM todo_lists WHERE id = $1 AND user_uid = $2)`,
		listID, userUID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.ErrNotFound
	}
	return nil
}
