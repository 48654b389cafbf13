package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaError(t *testing.T) {
	err := fmt.Errorf("services.todo.Create: %w", &QuotaError{Count: 5, Limit: 5})

	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	var qe *QuotaError
	assert.True(t, errors.As(err, &qe))
	assert.Equal(t, 5, qe.Count)
	assert.Equal(t, 5, qe.Limit)
	assert.Contains(t, err.Error(), "5 of 5")
}

func TestWrappers(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "validation", err: Validation("bad date"), target: ErrValidation},
		{name: "authentication", err: Authentication("invalid credentials"), target: ErrAuthentication},
		{name: "conflict", err: Conflict("already premium"), target: ErrConflict},
		{name: "external", err: External("paymentprovider.Cancel", errors.New("timeout")), target: ErrExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
		})
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("services.todo.Create: %w", Validation("due_date must be in 2006-01-02 format"))

	msg, ok := Message(err)
	assert.True(t, ok)
	assert.Equal(t, "due_date must be in 2006-01-02 format", msg)
	assert.Equal(t, "services.todo.Create: validation error: due_date must be in 2006-01-02 format", err.Error())

	_, ok = Message(fmt.Errorf("op: %w", ErrNotFound))
	assert.False(t, ok)
}
