package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultLoginRateLimit limits sign-in callbacks to 5 per minute per client
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 5,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// A non-positive limit disables limiting.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many sign-in attempts, try again later")
		}),
	)
}
