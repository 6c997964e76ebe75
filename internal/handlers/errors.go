package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/littlespace/internal/models"
	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
)

// writeServiceError maps a service error onto the JSON error envelope
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		pkghttp.WriteValidationError(w, vErr.Error(), vErr.Field)
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteValidationError(w, err.Error(), "")
	case errors.Is(err, models.ErrUnauthenticated):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, models.ErrInvalidState):
		pkghttp.WriteUnauthorized(w, "Sign-in request expired or was tampered with")
	case errors.Is(err, models.ErrNotAllowListed):
		pkghttp.WriteUnauthorized(w, "This account is not allowed to sign in")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient permissions")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrIdentityProvider):
		pkghttp.WriteBadGateway(w, "Identity provider request failed")
	case errors.Is(err, models.ErrStorageUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Storage is temporarily unavailable")
	default:
		logger.Error("unhandled service error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "An unexpected error occurred")
	}
}

// decodeBody decodes a JSON request body and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	if err := pkghttp.DecodeJSON(r, dst, allowEmpty); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if err := ValidateRequest(dst); err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			pkghttp.WriteValidationError(w, vErr.Error(), vErr.Field)
			return false
		}
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}
