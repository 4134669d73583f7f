package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/sanitize"
)

// MinPasswordLength is the minimum accepted password length for signup and
// password reset.
const MinPasswordLength = 8

// ResetMailer delivers password-reset links. The email collaborator
// implements it; tests stub it.
type ResetMailer interface {
	SendPasswordReset(to, resetLink string) error
}

// Service handles account management: volunteer signup, login, admin user
// administration and the password-reset flow.
type Service struct {
	repo        Repository
	resets      ResetTokenRepository
	mailer      ResetMailer
	baseURL     string
	resetExpiry time.Duration
	logger      zerolog.Logger
}

func NewService(
	repo Repository,
	resets ResetTokenRepository,
	mailer ResetMailer,
	baseURL string,
	resetExpiry time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		resets:      resets,
		mailer:      mailer,
		baseURL:     baseURL,
		resetExpiry: resetExpiry,
		logger:      logger.With().Str("component", "users").Logger(),
	}
}

type RegisterParams struct {
	FullName  string
	ClownName string
	BirthDate time.Time
	CPF       string
	Email     string
	Password  string
}

// Register creates a volunteer account with the member role.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	return s.create(ctx, params, auth.RoleMember)
}

// CreateAdmin creates an account with the admin role. Admin only.
func (s *Service) CreateAdmin(ctx context.Context, admin auth.Principal, params RegisterParams) (*User, error) {
	if _, err := auth.RequireAdmin(admin); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, params, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", user.Email).Str("created_by", admin.Email).Msg("admin user created")
	return user, nil
}

// Bootstrap creates an admin account without an acting principal. Only the
// CLI and startup bootstrap call it; the HTTP surface goes through
// CreateAdmin.
func (s *Service) Bootstrap(ctx context.Context, params RegisterParams) (*User, error) {
	user, err := s.create(ctx, params, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("email", user.Email).Msg("admin user bootstrapped")
	return user, nil
}

func (s *Service) create(ctx context.Context, params RegisterParams, role auth.Role) (*User, error) {
	fullName := sanitize.Text(strings.TrimSpace(params.FullName))
	clownName := sanitize.Text(strings.TrimSpace(params.ClownName))
	email := strings.ToLower(strings.TrimSpace(params.Email))
	cpf := normalizeCPF(params.CPF)

	if fullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	if cpf == "" {
		return nil, fmt.Errorf("%w: cpf must have 11 digits", ErrInvalidInput)
	}
	if len(params.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateUserParams{
		FullName:     fullName,
		ClownName:    clownName,
		BirthDate:    params.BirthDate,
		CPF:          cpf,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrCPFTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials for a login handle (email or CPF). Unknown
// users, wrong passwords and deactivated accounts all collapse into
// ErrInvalidCredentials so the response does not leak which one it was.
func (s *Service) Login(ctx context.Context, login, password string) (*User, error) {
	handle := strings.TrimSpace(login)
	if strings.Contains(handle, "@") {
		handle = strings.ToLower(handle)
	} else {
		handle = normalizeCPF(handle)
	}

	user, err := s.repo.GetByLogin(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive || !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns a single user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns users with offset pagination. Admin only.
func (s *Service) List(ctx context.Context, admin auth.Principal, skip, limit int) ([]User, error) {
	if _, err := auth.RequireAdmin(admin); err != nil {
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, skip, limit)
}

// UpdateRole changes a user's role. Admin only. The change takes effect on
// the target's next token: outstanding tokens keep their old role claim
// until they expire.
func (s *Service) UpdateRole(ctx context.Context, admin auth.Principal, id uuid.UUID, role auth.Role) (*User, error) {
	if _, err := auth.RequireAdmin(admin); err != nil {
		return nil, err
	}
	user, err := s.repo.UpdateRole(ctx, id, auth.NormalizeRole(string(role)))
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", id.String()).
		Str("role", string(user.Role)).
		Str("updated_by", admin.Email).
		Msg("user role updated")
	return user, nil
}

// PrincipalByEmail implements auth.IdentityStore for the access-control guard.
func (s *Service) PrincipalByEmail(ctx context.Context, email string) (auth.Principal, bool, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Principal{}, false, nil
		}
		return auth.Principal{}, false, fmt.Errorf("lookup principal: %w", err)
	}
	return auth.Principal{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		Active:   user.IsActive,
	}, true, nil
}

// RequestPasswordReset mints a single-use reset token and mails the link.
// It succeeds silently for unknown emails so callers cannot probe which
// addresses are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := generateSecureToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	// The plaintext token only travels in the email; storage sees the hash.
	if err := s.resets.Create(ctx, user.ID, hashToken(token), time.Now().Add(s.resetExpiry)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	if err := s.mailer.SendPasswordReset(user.Email, resetLink); err != nil {
		s.logger.Error().Err(err).Str("email", user.Email).Msg("failed to send password reset email")
		// The token is stored; a later resend attempt can still succeed.
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	userID, err := s.resets.Consume(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info().Str("user_id", userID.String()).Msg("password reset completed")
	return nil
}

func normalizeCPF(cpf string) string {
	var digits strings.Builder
	for _, r := range cpf {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() != 11 {
		return ""
	}
	return digits.String()
}

// generateSecureToken generates a cryptographically secure random token,
// 32 bytes encoded as URL-safe base64.
func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// hashToken hashes a reset token with SHA-256 for storage.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
