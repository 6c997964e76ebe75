package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/littlespace/internal/models"
	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the authenticated session in context
	SessionContextKey contextKey = "session"
)

// SessionAuthenticator resolves an Authorization header
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, rawHeader string) (*models.Session, error)
}

// Middleware authenticates the bearer token and injects the session into context.
// Storage failures fail closed with 503.
func Middleware(authn SessionAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := authn.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, models.ErrUnauthenticated) {
					pkghttp.WriteUnauthorized(w, "Authentication required")
					return
				}
				pkghttp.WriteServiceUnavailable(w, "Unable to verify session")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// DenialRecorder is told about role checks that reject an authenticated user
type DenialRecorder interface {
	LogAccessDenied(ctx context.Context, userID, role, operation string)
}

// RequireRoles rejects requests whose user role is not in roles. Must run after Middleware.
func RequireRoles(roles ...models.Role) func(next http.Handler) http.Handler {
	return RequireRolesFor(nil, "", roles...)
}

// RequireRolesFor is RequireRoles that reports each rejection to audit under operation.
// A nil audit disables reporting.
func RequireRolesFor(audit DenialRecorder, operation string, roles ...models.Role) func(next http.Handler) http.Handler {
	allowed := RoleSet(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if _, err := Authorize(user, allowed); err != nil {
				if errors.Is(err, models.ErrUnauthenticated) {
					pkghttp.WriteUnauthorized(w, "Authentication required")
					return
				}
				if audit != nil {
					audit.LogAccessDenied(r.Context(), user.ID, string(user.Role), operation)
				}
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithSession stores session in ctx
func ContextWithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}

// SessionFromContext extracts the authenticated session, or nil
func SessionFromContext(ctx context.Context) *models.Session {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// UserFromContext extracts the authenticated user, or nil
func UserFromContext(ctx context.Context) *models.User {
	session := SessionFromContext(ctx)
	if session == nil {
		return nil
	}
	return session.User
}
