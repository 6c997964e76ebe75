package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteErrorWithDetails(w, 400, "test_error", "Test message", "Additional details")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Equal(t, "Additional details", resp.Details)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { pkghttp.WriteBadRequest(w, "m") }, 400, "bad_request"},
		{"validation", func(w http.ResponseWriter) { pkghttp.WriteValidationError(w, "m", "status") }, 400, "validation_error"},
		{"unauthorized", func(w http.ResponseWriter) { pkghttp.WriteUnauthorized(w, "m") }, 401, "unauthorized"},
		{"forbidden", func(w http.ResponseWriter) { pkghttp.WriteForbidden(w, "m") }, 403, "forbidden"},
		{"not found", func(w http.ResponseWriter) { pkghttp.WriteNotFound(w, "m") }, 404, "not_found"},
		{"conflict", func(w http.ResponseWriter) { pkghttp.WriteConflict(w, "m") }, 409, "conflict"},
		{"rate limited", func(w http.ResponseWriter) { pkghttp.WriteTooManyRequests(w, "m") }, 429, "rate_limit_exceeded"},
		{"internal", func(w http.ResponseWriter) { pkghttp.WriteInternalError(w, "m") }, 500, "internal_error"},
		{"bad gateway", func(w http.ResponseWriter) { pkghttp.WriteBadGateway(w, "m") }, 502, "upstream_error"},
		{"unavailable", func(w http.ResponseWriter) { pkghttp.WriteServiceUnavailable(w, "m") }, 503, "storage_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "m", resp.Message)
		})
	}
}

func TestWriteJSON_NilBody(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteJSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestErrorResponseJSON_OmitsEmptyDetails(t *testing.T) {
	data, err := json.Marshal(pkghttp.ErrorResponse{Error: "e", Message: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"e","message":"m"}`, string(data))
}
