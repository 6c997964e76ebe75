package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestObserver records request latency
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Metrics times each request and labels it with the chi route pattern so
// path parameters do not explode label cardinality.
func Metrics(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			observer.ObserveHTTPRequest(r.Method, routePattern(r), statusOf(wrapped), time.Since(start))
		})
	}
}
