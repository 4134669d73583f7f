package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nariz-encantado/server/internal/api/problem"
	"github.com/nariz-encantado/server/internal/auth"
)

const principalKey contextKey = "principal"

// PrincipalFrom returns the authenticated principal stored by RequireUser.
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(auth.Principal)
	return principal, ok
}

// WithPrincipal is used by handler tests to seed an authenticated caller.
func WithPrincipal(ctx context.Context, principal auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// Authenticator resolves bearer tokens. *auth.Guard implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// RequireUser authenticates the bearer token and stores the principal in the
// request context. Missing, invalid and expired tokens all get 401; only a
// valid token with insufficient privilege ever gets 403.
func RequireUser(guard Authenticator, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", err, env)
				return
			}

			principal, err := guard.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthenticated) {
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", err, env)
					return
				}
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Authentication Failed", err, env)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = WithRateLimitTier(ctx, TierUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin layers the admin check on top of RequireUser.
func RequireAdmin(guard Authenticator, env string) func(http.Handler) http.Handler {
	requireUser := RequireUser(guard, env)
	return func(next http.Handler) http.Handler {
		return requireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, env)
				return
			}
			if _, err := auth.RequireAdmin(principal); err != nil {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Admin Access Required", err, env)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
