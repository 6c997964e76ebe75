package routes

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/littlespace/internal/auth"
	"github.com/BradenHooton/littlespace/internal/handlers"
	"github.com/BradenHooton/littlespace/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Dependencies groups what RegisterRoutes mounts
type Dependencies struct {
	AuthHandler   *handlers.AuthHandler
	TaskHandler   *handlers.TaskHandler
	DeviceHandler *handlers.DeviceHandler
	Authenticator auth.SessionAuthenticator
	Database      handlers.HealthChecker
	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler
	LoginRateLimit middleware.RateLimitConfig
	Logger         *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	router.Get("/health", handlers.Health(deps.Database, deps.Logger))
	if deps.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Public routes - no session required
	router.Get("/auth/discord/login", deps.AuthHandler.Login)
	router.With(middleware.RateLimitByIP(deps.LoginRateLimit)).Post("/auth/discord/callback", deps.AuthHandler.DiscordCallback)
	// sign-out names its own session and succeeds for unknown tokens
	router.Post("/auth/signout", deps.AuthHandler.SignOut)

	// Protected routes - valid session required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Authenticator))

		r.Get("/auth/me", deps.AuthHandler.Me)
		deps.TaskHandler.RegisterRoutes(r)
		deps.DeviceHandler.RegisterRoutes(r)
	})
}
