package models

// TodoFilter задаёт параметры выборки задач пользователя.
type TodoFilter struct {
	TodoListID *int64 // Фильтр по списку (nil — все списки пользователя)
	Limit      int
	Offset     int
}

// Page — параметры пагинации для списков.
type Page struct {
	Limit  int
	Offset int
}

const (
	// DefaultPageSize используется, если клиент не передал limit.
	DefaultPageSize = 50
	// MaxPageSize — верхняя граница limit.
	MaxPageSize = 100
)

// NewPage нормализует параметры пагинации.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
