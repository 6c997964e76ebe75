package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
)

// HealthChecker pings the database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse reports service and database state
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health returns 200 when the database answers and 503 otherwise
func Health(db HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			logger.Warn("health check failed", slog.Any("error", err))
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "unreachable"})
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Database: "connected"})
	}
}
