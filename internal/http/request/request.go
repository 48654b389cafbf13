// Package request разбирает тела и параметры HTTP-запросов.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// MaxBodyBytes ограничивает размер тела JSON-запроса.
const MaxBodyBytes = 1 << 20

// DecodeJSON читает ровно один JSON-объект и отклоняет неизвестные поля.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// DecodeOptionalJSON как DecodeJSON, но пустое тело допустимо.
func DecodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return DecodeJSON(r, v)
}

// IDParam возвращает положительный числовой параметр пути.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s in url", name)
	}
	return id, nil
}

// Page разбирает limit и offset из строки запроса.
func Page(r *http.Request) (models.Page, error) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		return models.Page{}, err
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(limit, offset), nil
}

// Int64Query возвращает необязательный числовой параметр запроса.
func Int64Query(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("invalid %s query parameter", name)
	}
	return &v, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s query parameter", name)
	}
	return v, nil
}
