// Package apperr содержит общие для всех слоёв ошибки приложения.
// Сервисы и хранилище оборачивают их через fmt.Errorf("%s: %w", op, err),
// а HTTP-слой один раз сопоставляет их с кодами ответа через errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation — некорректные входные данные, изменений не произошло.
	ErrValidation = errors.New("validation error")
	// ErrAuthentication — неверные учётные данные или подпись вебхука.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotFound — запись не найдена или принадлежит другому пользователю.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded — бесплатный лимит задач исчерпан.
	ErrQuotaExceeded = errors.New("todo limit reached")
	// ErrExternalService — платёжный провайдер недоступен или отклонил запрос.
	ErrExternalService = errors.New("external service error")
	// ErrConflict — запись уже существует или операция противоречит состоянию.
	ErrConflict = errors.New("conflict")
)

// QuotaError несёт данные о квоте, чтобы клиент мог предложить апгрейд.
type QuotaError struct {
	Count int
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %d of %d todos used", ErrQuotaExceeded, e.Count, e.Limit)
}

// Unwrap позволяет сравнивать QuotaError с ErrQuotaExceeded через errors.Is.
func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// Error — ошибка известного класса с сообщением, которое можно показать клиенту.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Message возвращает сообщение для клиента, если в цепочке есть *Error.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg, true
	}
	return "", false
}

// Validation оборачивает сообщение в ErrValidation.
func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// Authentication оборачивает сообщение в ErrAuthentication.
func Authentication(msg string) error {
	return &Error{Kind: ErrAuthentication, Msg: msg}
}

// Conflict оборачивает сообщение в ErrConflict.
func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Msg: msg}
}

// External оборачивает ошибку провайдера в ErrExternalService.
func External(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrExternalService, err)
}
