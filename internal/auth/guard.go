package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Principal is an authenticated caller's resolved identity and privilege
// level. It is derived per request from a validated token and never persisted.
type Principal struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Role     Role
	Active   bool
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// IdentityStore resolves a token subject to a stored identity.
type IdentityStore interface {
	// PrincipalByEmail returns the principal for the given email.
	// found is false when no such user exists.
	PrincipalByEmail(ctx context.Context, email string) (principal Principal, found bool, err error)
}

// Guard resolves bearer tokens to principals and enforces privilege
// requirements. Ordering is always authenticate first, then authorize.
type Guard struct {
	tokens *JWTManager
	users  IdentityStore
}

func NewGuard(tokens *JWTManager, users IdentityStore) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate validates the token and resolves its subject. Missing, forged
// and expired tokens all fail with ErrUnauthenticated, as do subjects that no
// longer exist or have been deactivated since the token was issued.
func (g *Guard) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %s", ErrUnauthenticated, err)
	}

	principal, found, err := g.users.PrincipalByEmail(ctx, claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("resolve subject: %w", err)
	}
	if !found || !principal.Active {
		return Principal{}, fmt.Errorf("%w: unknown or inactive subject", ErrUnauthenticated)
	}
	return principal, nil
}

// RequireAdmin passes an admin principal through unchanged and fails with
// ErrForbidden for anyone else.
func RequireAdmin(principal Principal) (Principal, error) {
	if principal.Role != RoleAdmin {
		return Principal{}, ErrForbidden
	}
	return principal, nil
}
