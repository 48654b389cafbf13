package models

import "time"

// DateLayout — формат даты выполнения задачи в API.
const DateLayout = "2006-01-02"

// TodoList — список задач, принадлежащий одному пользователю.
type TodoList struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserUID   string    `json:"user_uid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Todos     []*Todo   `json:"todos"`
}

// Todo — отдельная задача внутри списка.
type Todo struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Complete    bool       `json:"complete"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	TodoListID  int64      `json:"todo_list_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TodoPatch — частичное обновление задачи. nil-поля не изменяются.
type TodoPatch struct {
	Description *string
	Complete    *bool
	DueDate     *time.Time
	TodoListID  *int64
}

// Empty сообщает, что обновлять нечего.
func (p TodoPatch) Empty() bool {
	return p.Description == nil && p.Complete == nil && p.DueDate == nil && p.TodoListID == nil
}

// DummyTodo используется для приёма данных из JSON-запроса на создание задачи.
// Дата приходит строкой, чтобы её можно было провалидировать и распарсить вручную.
type DummyTodo struct {
	Description string `json:"description" validate:"required,min=1"`
	Complete    bool   `json:"complete"`
	DueDate     string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TodoListID  int64  `json:"todo_list_id" validate:"required,gt=0"`
}

// DummyTodoPatch используется для приёма частичного обновления задачи.
type DummyTodoPatch struct {
	Description *string `json:"description,omitempty" validate:"omitempty,min=1"`
	Complete    *bool   `json:"complete,omitempty"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TodoListID  *int64  `json:"todo_list_id,omitempty" validate:"omitempty,gt=0"`
}

// DummyTodoList используется для приёма имени списка из JSON-запроса.
type DummyTodoList struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}
