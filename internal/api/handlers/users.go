package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/nariz-encantado/server/internal/api/middleware"
	"github.com/nariz-encantado/server/internal/api/problem"
	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/domain/documents"
	"github.com/nariz-encantado/server/internal/domain/events"
	"github.com/nariz-encantado/server/internal/domain/users"
	"github.com/nariz-encantado/server/internal/metrics"
)

// UsersHandler serves the authenticated volunteer's own profile, event
// history and documents.
type UsersHandler struct {
	Users     *users.Service
	Events    *events.Service
	Documents *documents.Service
	Env       string
}

func NewUsersHandler(userService *users.Service, eventService *events.Service, documentService *documents.Service, env string) *UsersHandler {
	return &UsersHandler{
		Users:     userService,
		Events:    eventService,
		Documents: documentService,
		Env:       env,
	}
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	user, err := h.Users.Get(r.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Account No Longer Exists", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Profile Lookup Failed", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, toUserView(user))
}

type myEventsResponse struct {
	Items []userEventView `json:"items"`
}

func (h *UsersHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	registered, err := h.Events.ListForUser(r.Context(), principal)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Listing Failed", err, h.Env)
		return
	}

	items := make([]userEventView, 0, len(registered))
	for _, ue := range registered {
		items = append(items, toUserEventView(ue))
	}
	writeJSON(w, http.StatusOK, myEventsResponse{Items: items})
}

type myDocumentsResponse struct {
	Items []documentView `json:"items"`
}

func (h *UsersHandler) MyDocuments(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	docs, err := h.Documents.List(r.Context(), principal.ID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Listing Failed", err, h.Env)
		return
	}

	items := make([]documentView, 0, len(docs))
	for i := range docs {
		items = append(items, toDocumentView(&docs[i]))
	}
	writeJSON(w, http.StatusOK, myDocumentsResponse{Items: items})
}

// UploadDocument accepts a multipart form with a "file" part and a
// "document_type" field. Re-uploading a type replaces the previous file.
func (h *UsersHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	if err := r.ParseMultipartForm(documents.MaxUploadBytes); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Upload", err, h.Env)
		return
	}

	docType, err := documents.ParseType(r.FormValue("document_type"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Unknown Document Type", err, h.Env)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing File", err, h.Env)
		return
	}
	defer file.Close()

	doc, err := h.Documents.Upload(r.Context(), principal.ID, docType, header.Filename, file)
	if err != nil {
		if errors.Is(err, documents.ErrInvalidInput) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Document", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Upload Failed", err, h.Env)
		return
	}

	metrics.DocumentUploadsTotal.WithLabelValues(string(docType)).Inc()
	writeJSON(w, http.StatusCreated, toDocumentView(doc))
}

// DownloadDocument streams one of the caller's own documents back.
func (h *UsersHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	docType, err := documents.ParseType(pathParam(r, "type"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Unknown Document Type", err, h.Env)
		return
	}

	_, contents, err := h.Documents.Open(r.Context(), principal.ID, docType)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Document Not Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Download Failed", err, h.Env)
		return
	}
	defer contents.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, contents)
}
