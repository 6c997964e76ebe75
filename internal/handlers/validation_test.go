package handlers

import (
	"errors"
	"testing"

	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name    string
		req     interface{}
		field   string
		message string
	}{
		{"valid create", &CreateTaskRequest{Title: "Buy milk"}, "", ""},
		{"missing title", &CreateTaskRequest{}, "title", "this field is required"},
		{"title too long", &CreateTaskRequest{Title: string(long)}, "title", "must have a maximum of 500 characters"},
		{"missing task id", &UpdateStatusRequest{Status: "todo"}, "taskId", "this field is required"},
		{"unknown status", &UpdateStatusRequest{TaskID: "x", Status: "done"}, "status", "must be one of: todo, in_progress, paused, completed"},
		{"missing state", &CallbackRequest{Code: "c"}, "state", "this field is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}
}
