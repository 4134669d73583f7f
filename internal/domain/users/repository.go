package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nariz-encantado/server/internal/auth"
)

// User is a volunteer (or administrator) account. PasswordHash is only ever
// a bcrypt hash; the plaintext never reaches the repository.
type User struct {
	ID           uuid.UUID
	FullName     string
	ClownName    string
	BirthDate    time.Time
	CPF          string
	Email        string
	PasswordHash string
	Role         auth.Role
	IsActive     bool
	CreatedAt    time.Time
}

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrCPFTaken           = errors.New("cpf already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid user input")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

type CreateUserParams struct {
	FullName     string
	ClownName    string
	BirthDate    time.Time
	CPF          string
	Email        string
	PasswordHash string
	Role         auth.Role
}

// Repository is the persistence collaborator for user accounts.
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByLogin matches either email or CPF, the two unique handles a
	// volunteer can sign in with.
	GetByLogin(ctx context.Context, login string) (*User, error)
	List(ctx context.Context, skip, limit int) ([]User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// ResetTokenRepository stores hashed single-use password-reset tokens.
type ResetTokenRepository interface {
	Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	// Consume validates an unused, unexpired token by hash, marks it used
	// and returns the owning user. Fails with ErrInvalidResetToken otherwise.
	Consume(ctx context.Context, tokenHash string) (uuid.UUID, error)
}
