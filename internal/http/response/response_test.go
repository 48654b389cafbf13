package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation keeps message",
			err:        fmt.Errorf("services.todo.Create: %w", apperr.Validation("description must not be empty")),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidation,
			wantMsg:    "description must not be empty",
		},
		{
			name:       "bad signature",
			err:        fmt.Errorf("paymentprovider.Verify: %w: %w", apperr.ErrAuthentication, errors.New("no valid signature")),
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeUnauthorized,
			wantMsg:    "authentication failed",
		},
		{
			name:       "not found hides details",
			err:        fmt.Errorf("storage.GetTodo: %w", apperr.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
			wantMsg:    "not found",
		},
		{
			name:       "conflict",
			err:        apperr.Conflict("user already has an active premium subscription"),
			wantStatus: http.StatusConflict,
			wantCode:   CodeConflict,
			wantMsg:    "user already has an active premium subscription",
		},
		{
			name:       "provider failure",
			err:        apperr.External("paymentprovider.CancelSubscription", errors.New("connection refused")),
			wantStatus: http.StatusBadGateway,
			wantCode:   CodePaymentGateway,
		},
		{
			name:       "unknown error",
			err:        errors.New("pq: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error)
			}
			assert.NotContains(t, resp.Error, "storage.")
		})
	}
}

func TestFromError_Quota(t *testing.T) {
	err := fmt.Errorf("services.todo.Create: %w", &apperr.QuotaError{Count: 5, Limit: 5})

	status, resp := FromError(err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeLimitReached, resp.Code)
	assert.Equal(t, QuotaData{TodoCount: 5, TodoLimit: 5}, resp.Data)
}

func TestValidationError(t *testing.T) {
	err := validator.New().Struct(models.DummyTodo{DueDate: "10-20-2026"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, CodeValidation, resp.Code)
	assert.Contains(t, resp.Error, "field Description is a required field")
	assert.Contains(t, resp.Error, "field TodoListID is a required field")
	assert.Contains(t, resp.Error, "field DueDate can contain only date in format YYYY-MM-DD")
}
