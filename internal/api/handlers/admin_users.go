package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nariz-encantado/server/internal/api/middleware"
	"github.com/nariz-encantado/server/internal/api/problem"
	"github.com/nariz-encantado/server/internal/audit"
	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/domain/users"
)

// AdminUsersHandler serves the admin user-management endpoints. Routes are
// wired behind RequireAdmin; the service enforces the privilege again.
type AdminUsersHandler struct {
	Users *users.Service
	Env   string
}

func NewAdminUsersHandler(userService *users.Service, env string) *AdminUsersHandler {
	return &AdminUsersHandler{Users: userService, Env: env}
}

type userListResponse struct {
	Items []userView `json:"items"`
	Skip  int        `json:"skip"`
	Limit int        `json:"limit"`
}

func (h *AdminUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	listed, err := h.Users.List(r.Context(), principal, skip, limit)
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	items := make([]userView, 0, len(listed))
	for i := range listed {
		items = append(items, toUserView(&listed[i]))
	}
	writeJSON(w, http.StatusOK, userListResponse{Items: items, Skip: skip, Limit: limit})
}

func (h *AdminUsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.PrincipalFrom(r.Context()); !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(pathParam(r, "id")))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid User ID", err, h.Env)
		return
	}

	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserView(user))
}

// CreateAdmin provisions another administrator account.
func (h *AdminUsersHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	var req registerRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	var birthDate time.Time
	if req.BirthDate != "" {
		birthDate, _ = time.Parse(dateLayout, req.BirthDate)
	}

	user, err := h.Users.CreateAdmin(r.Context(), principal, users.RegisterParams{
		FullName:  req.FullName,
		ClownName: req.ClownName,
		BirthDate: birthDate,
		CPF:       req.CPF,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		audit.Record(r.Context(), audit.Entry{Action: "user.create_admin", Actor: principal, ResourceType: "user", Err: err})
		h.writeUserError(w, r, err)
		return
	}

	audit.Record(r.Context(), audit.Entry{
		Action:       "user.create_admin",
		Actor:        principal,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
	})
	writeJSON(w, http.StatusCreated, toUserView(user))
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=member admin"`
}

// UpdateRole changes a user's role. The new role shows up in tokens issued
// after the change; outstanding tokens keep the old claim until expiry.
func (h *AdminUsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(pathParam(r, "id")))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid User ID", err, h.Env)
		return
	}

	var req updateRoleRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	user, err := h.Users.UpdateRole(r.Context(), principal, id, auth.Role(req.Role))
	audit.Record(r.Context(), audit.Entry{
		Action:       "user.role_update",
		Actor:        principal,
		ResourceType: "user",
		ResourceID:   id.String(),
		Err:          err,
	})
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserView(user))
}

func (h *AdminUsersHandler) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Admin Access Required", err, h.Env)
	case errors.Is(err, users.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User Not Found", err, h.Env)
	case errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrCPFTaken):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Account Already Exists", err, h.Env)
	case errors.Is(err, users.ErrInvalidInput):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid User Data", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Request Failed", err, h.Env)
	}
}
