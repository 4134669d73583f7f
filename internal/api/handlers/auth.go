package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nariz-encantado/server/internal/api/problem"
	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/domain/users"
	"github.com/nariz-encantado/server/internal/metrics"
)

// AuthHandler serves signup, login and the password-reset flow.
type AuthHandler struct {
	Users  *users.Service
	Tokens *auth.JWTManager
	Env    string
}

func NewAuthHandler(userService *users.Service, tokens *auth.JWTManager, env string) *AuthHandler {
	return &AuthHandler{Users: userService, Tokens: tokens, Env: env}
}

type registerRequest struct {
	FullName  string `json:"full_name" validate:"required"`
	ClownName string `json:"clown_name"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	CPF       string `json:"cpf" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	var birthDate time.Time
	if req.BirthDate != "" {
		birthDate, _ = time.Parse(dateLayout, req.BirthDate)
	}

	user, err := h.Users.Register(r.Context(), users.RegisterParams{
		FullName:  req.FullName,
		ClownName: req.ClownName,
		BirthDate: birthDate,
		CPF:       req.CPF,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrCPFTaken):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Account Already Exists", err, h.Env)
		case errors.Is(err, users.ErrInvalidInput):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Signup Data", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Signup Failed", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toUserView(user))
}

type loginRequest struct {
	// Login accepts an email address or a CPF.
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	user, err := h.Users.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid Credentials", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Login Failed", err, h.Env)
		return
	}

	token, err := h.Tokens.Generate(user.Email, string(user.Role))
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Login Failed", err, h.Env)
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.Tokens.Expiry().Seconds()),
	})
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset always answers 202: the response must not reveal
// whether the address belongs to an account.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	if err := h.Users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Password Reset Failed", err, h.Env)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the address is registered, a reset link has been sent",
	})
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	if err := h.Users.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidResetToken):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Reset Token", err, h.Env)
		case errors.Is(err, users.ErrInvalidInput):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Password", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Password Reset Failed", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
