// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Ошибки сервисов
// сопоставляются с кодами ответа здесь, один раз для всех обработчиков.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Code — машиночитаемый код ошибки (опционально).
// Поле Data — данные ответа (опционально).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
	Code   string `json:"code,omitempty" example:"validation_error"`
}

// QuotaData — данные ответа при исчерпанном лимите задач.
type QuotaData struct {
	TodoCount int `json:"todo_count"`
	TodoLimit int `json:"todo_limit"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Коды ошибок для клиента.
const (
	CodeValidation     = "validation_error"
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeLimitReached   = "todo_limit_reached"
	CodeConflict       = "conflict"
	CodePaymentGateway = "payment_provider_error"
	CodeTooMany        = "too_many_requests"
	CodeInternal       = "internal_error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// ErrorWithCode возвращает Response с ошибкой и кодом.
func ErrorWithCode(msg, code string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
		Code:   code,
	}
}

// FromError сопоставляет ошибку сервиса с HTTP-статусом и телом ответа.
// Внутренние подробности в ответ не попадают.
func FromError(err error) (int, Response) {
	msg, hasMsg := apperr.Message(err)

	var quota *apperr.QuotaError
	switch {
	case errors.As(err, &quota):
		resp := ErrorWithCode("free tier todo limit reached, upgrade to premium to add more", CodeLimitReached)
		resp.Data = QuotaData{TodoCount: quota.Count, TodoLimit: quota.Limit}
		return http.StatusForbidden, resp
	case errors.Is(err, apperr.ErrValidation):
		if !hasMsg {
			msg = "invalid request"
		}
		return http.StatusBadRequest, ErrorWithCode(msg, CodeValidation)
	case errors.Is(err, apperr.ErrAuthentication):
		if !hasMsg {
			msg = "authentication failed"
		}
		return http.StatusUnauthorized, ErrorWithCode(msg, CodeUnauthorized)
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, ErrorWithCode("not found", CodeNotFound)
	case errors.Is(err, apperr.ErrConflict):
		if !hasMsg {
			msg = "conflict"
		}
		return http.StatusConflict, ErrorWithCode(msg, CodeConflict)
	case errors.Is(err, apperr.ErrExternalService):
		return http.StatusBadGateway, ErrorWithCode("external provider is unavailable, try again later", CodePaymentGateway)
	default:
		return http.StatusInternalServerError, ErrorWithCode("internal server error", CodeInternal)
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "url":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid url", err.Field()))
		case "datetime":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only date in format YYYY-MM-DD", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorWithCode(strings.Join(errsMsgs, ", "), CodeValidation)
}

// Fail пишет ответ для ошибки сервиса с кодом из FromError.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// Unauthorized пишет 401, когда в контексте нет пользователя.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorWithCode("unauthorized", CodeUnauthorized))
}

// BadRequest пишет 400 с кодом validation_error.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorWithCode(msg, CodeValidation))
}
