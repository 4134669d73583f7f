// Package api wires the HTTP surface: routing, middleware and handlers.
package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nariz-encantado/server/internal/api/handlers"
	"github.com/nariz-encantado/server/internal/api/middleware"
	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/config"
	"github.com/nariz-encantado/server/internal/domain/documents"
	"github.com/nariz-encantado/server/internal/domain/events"
	"github.com/nariz-encantado/server/internal/domain/users"
	"github.com/nariz-encantado/server/internal/metrics"
	"github.com/nariz-encantado/server/internal/storage"
)

// Dependencies carries the constructed collaborators the router needs.
// RateLimiter stays owned by the caller, which stops it on shutdown.
type Dependencies struct {
	Config      config.Config
	Logger      zerolog.Logger
	Pool        *pgxpool.Pool
	Guard       *auth.Guard
	Tokens      *auth.JWTManager
	Users       *users.Service
	Events      *events.Service
	Documents   *documents.Service
	Files       storage.FileStore
	RateLimiter *middleware.RateLimiter
}

func NewRouter(deps Dependencies) http.Handler {
	env := deps.Config.Environment

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, deps.Files, env)
	usersHandler := handlers.NewUsersHandler(deps.Users, deps.Events, deps.Documents, env)
	adminUsersHandler := handlers.NewAdminUsersHandler(deps.Users, env)

	limit := deps.RateLimiter.Middleware()
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)
	requireUser := middleware.RequireUser(deps.Guard, env)
	requireAdmin := middleware.RequireAdmin(deps.Guard, env)

	// The tier (and for authenticated routes, the principal) must be in the
	// context before the limiter picks a bucket, so the limiter sits inside
	// the auth and tier wrappers.
	public := func(h http.HandlerFunc) http.Handler { return limit(h) }
	login := func(h http.HandlerFunc) http.Handler { return loginTier(limit(h)) }
	user := func(h http.HandlerFunc) http.Handler { return requireUser(limit(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return requireAdmin(limit(h)) }

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(deps.Pool))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: public(authHandler.Register),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: login(authHandler.Login),
	}))
	mux.Handle("/api/v1/auth/password-reset", methodMux(map[string]http.Handler{
		http.MethodPost: login(authHandler.RequestPasswordReset),
	}))
	mux.Handle("/api/v1/auth/password-reset/confirm", methodMux(map[string]http.Handler{
		http.MethodPost: login(authHandler.ConfirmPasswordReset),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  public(eventsHandler.List),
		http.MethodPost: admin(eventsHandler.Create),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(eventsHandler.Get),
		http.MethodDelete: admin(eventsHandler.Delete),
	}))
	mux.Handle("/api/v1/events/{id}/register", methodMux(map[string]http.Handler{
		http.MethodPost: user(eventsHandler.Register),
	}))
	mux.Handle("/api/v1/events/{id}/registration-link", methodMux(map[string]http.Handler{
		http.MethodPost: admin(eventsHandler.GenerateLink),
	}))
	mux.Handle("/api/v1/events/{id}/image", methodMux(map[string]http.Handler{
		http.MethodPost: admin(eventsHandler.UploadImage),
	}))
	mux.Handle("/api/v1/registration-links/{link}", methodMux(map[string]http.Handler{
		http.MethodGet: public(eventsHandler.ResolveLink),
	}))

	mux.Handle("/api/v1/users/me", methodMux(map[string]http.Handler{
		http.MethodGet: user(usersHandler.Me),
	}))
	mux.Handle("/api/v1/users/me/events", methodMux(map[string]http.Handler{
		http.MethodGet: user(usersHandler.MyEvents),
	}))
	mux.Handle("/api/v1/users/me/documents", methodMux(map[string]http.Handler{
		http.MethodGet:  user(usersHandler.MyDocuments),
		http.MethodPost: user(usersHandler.UploadDocument),
	}))
	mux.Handle("/api/v1/users/me/documents/{type}", methodMux(map[string]http.Handler{
		http.MethodGet: user(usersHandler.DownloadDocument),
	}))

	mux.Handle("/api/v1/admin/users", methodMux(map[string]http.Handler{
		http.MethodGet:  admin(adminUsersHandler.List),
		http.MethodPost: admin(adminUsersHandler.CreateAdmin),
	}))
	mux.Handle("/api/v1/admin/users/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:   admin(adminUsersHandler.Get),
		http.MethodPatch: admin(adminUsersHandler.UpdateRole),
	}))

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
