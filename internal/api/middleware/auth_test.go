package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nariz-encantado/server/internal/auth"
)

type stubGuard struct {
	principal auth.Principal
	err       error
}

func (s *stubGuard) Authenticate(_ context.Context, _ string) (auth.Principal, error) {
	if s.err != nil {
		return auth.Principal{}, s.err
	}
	return s.principal, nil
}

func okHandler(seen *auth.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principal, ok := PrincipalFrom(r.Context()); ok && seen != nil {
			*seen = principal
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireUserMissingToken(t *testing.T) {
	handler := RequireUser(&stubGuard{}, "test")(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRequireUserInvalidToken(t *testing.T) {
	guard := &stubGuard{err: auth.ErrUnauthenticated}
	handler := RequireUser(guard, "test")(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUserStoresPrincipal(t *testing.T) {
	member := auth.Principal{ID: uuid.New(), Email: "maria@example.org", Role: auth.RoleMember, Active: true}
	guard := &stubGuard{principal: member}

	var seen auth.Principal
	handler := RequireUser(guard, "test")(okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, member.ID, seen.ID)
}

func TestRequireAdminRejectsMember(t *testing.T) {
	member := auth.Principal{ID: uuid.New(), Email: "maria@example.org", Role: auth.RoleMember, Active: true}
	handler := RequireAdmin(&stubGuard{principal: member}, "test")(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	admin := auth.Principal{ID: uuid.New(), Email: "admin@example.org", Role: auth.RoleAdmin, Active: true}
	handler := RequireAdmin(&stubGuard{principal: admin}, "test")(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

// An expired token must read as 401, never 403, even on admin routes.
func TestRequireAdminExpiredTokenIs401(t *testing.T) {
	guard := &stubGuard{err: auth.ErrUnauthenticated}
	handler := RequireAdmin(guard, "test")(okHandler(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
