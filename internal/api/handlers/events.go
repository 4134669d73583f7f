package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nariz-encantado/server/internal/api/middleware"
	"github.com/nariz-encantado/server/internal/api/problem"
	"github.com/nariz-encantado/server/internal/audit"
	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/domain/events"
	"github.com/nariz-encantado/server/internal/metrics"
	"github.com/nariz-encantado/server/internal/storage"
)

const maxImageBytes = 5 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type EventsHandler struct {
	Service *events.Service
	Files   storage.FileStore
	Env     string
}

func NewEventsHandler(service *events.Service, files storage.FileStore, env string) *EventsHandler {
	return &EventsHandler{Service: service, Files: files, Env: env}
}

type eventListResponse struct {
	Items []publicEventView `json:"items"`
	Skip  int               `json:"skip"`
	Limit int               `json:"limit"`
}

// List is a public read; the registration link never appears here.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", events.DefaultListLimit)

	listed, err := h.Service.List(r.Context(), skip, limit)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Listing Failed", err, h.Env)
		return
	}

	items := make([]publicEventView, 0, len(listed))
	for i := range listed {
		items = append(items, toPublicEventView(&listed[i]))
	}
	writeJSON(w, http.StatusOK, eventListResponse{Items: items, Skip: skip, Limit: limit})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Event ID", errors.New("id must be a positive integer"), h.Env)
		return
	}

	event, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event Not Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Lookup Failed", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, toPublicEventView(event))
}

type createEventRequest struct {
	Name           string `json:"name" validate:"required"`
	DateTime       string `json:"date_time" validate:"required"`
	Location       string `json:"location"`
	TotalSpots     int    `json:"total_spots" validate:"required,gt=0"`
	AvailableSpots *int   `json:"available_spots" validate:"omitempty,gte=0"`
	Description    string `json:"description"`
}

// Create makes an event. Admin only; the route is wired behind RequireAdmin.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	var req createEventRequest
	if !decodeAndValidate(w, r, h.Env, &req) {
		return
	}

	dateTime, err := time.Parse(time.RFC3339, req.DateTime)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Event Date", err, h.Env)
		return
	}

	// Omitted available_spots means a fresh event with every seat open.
	availableSpots := req.TotalSpots
	if req.AvailableSpots != nil {
		availableSpots = *req.AvailableSpots
	}

	event, err := h.Service.Create(r.Context(), principal, events.CreateEventParams{
		Name:           req.Name,
		DateTime:       dateTime,
		Location:       req.Location,
		TotalSpots:     req.TotalSpots,
		AvailableSpots: availableSpots,
		Description:    req.Description,
	})
	if err != nil {
		audit.Record(r.Context(), audit.Entry{Action: "event.create", Actor: principal, ResourceType: "event", Err: err})
		h.writeEventError(w, r, err)
		return
	}

	audit.Record(r.Context(), audit.Entry{
		Action:       "event.create",
		Actor:        principal,
		ResourceType: "event",
		ResourceID:   strconv.FormatInt(event.ID, 10),
	})
	writeJSON(w, http.StatusCreated, toEventView(event))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	id, ok := pathID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Event ID", errors.New("id must be a positive integer"), h.Env)
		return
	}

	err := h.Service.Delete(r.Context(), principal, id)
	audit.Record(r.Context(), audit.Entry{
		Action:       "event.delete",
		Actor:        principal,
		ResourceType: "event",
		ResourceID:   strconv.FormatInt(id, 10),
		Err:          err,
	})
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Register books a seat for the authenticated volunteer.
func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	id, ok := pathID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Event ID", errors.New("id must be a positive integer"), h.Env)
		return
	}

	registration, err := h.Service.Register(r.Context(), id, principal)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			metrics.RegistrationsTotal.WithLabelValues("not_found").Inc()
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event Not Found", err, h.Env)
		case errors.Is(err, events.ErrAlreadyRegistered):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Already Registered", err, h.Env)
		case errors.Is(err, events.ErrCapacityExceeded):
			metrics.RegistrationsTotal.WithLabelValues("full").Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Event Full", err, h.Env)
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Registration Failed", err, h.Env)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("registered").Inc()
	writeJSON(w, http.StatusCreated, toRegistrationView(registration))
}

// GenerateLink mints (or returns) the event's unique registration link.
// Admin only.
func (h *EventsHandler) GenerateLink(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	id, ok := pathID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Event ID", errors.New("id must be a positive integer"), h.Env)
		return
	}

	event, err := h.Service.GenerateLink(r.Context(), principal, id)
	audit.Record(r.Context(), audit.Entry{
		Action:       "event.generate_link",
		Actor:        principal,
		ResourceType: "event",
		ResourceID:   strconv.FormatInt(id, 10),
		Err:          err,
	})
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventView(event))
}

// ResolveLink is the public lookup behind shared registration URLs.
func (h *EventsHandler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	link := strings.TrimSpace(pathParam(r, "link"))

	event, err := h.Service.ResolveLink(r.Context(), link)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Unknown Registration Link", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Lookup Failed", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, toPublicEventView(event))
}

// UploadImage stores an event image and records its path. Admin only.
func (h *EventsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", auth.ErrUnauthenticated, h.Env)
		return
	}

	id, ok := pathID(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Event ID", errors.New("id must be a positive integer"), h.Env)
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Upload", err, h.Env)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing Image File", err, h.Env)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Unsupported Image Type",
			errors.New("image must be jpg, jpeg, png or webp"), h.Env)
		return
	}

	path, err := h.Files.Save(r.Context(), header.Filename, io.LimitReader(file, maxImageBytes))
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Upload Failed", err, h.Env)
		return
	}

	event, err := h.Service.AttachImage(r.Context(), principal, id, path)
	if err != nil {
		_ = h.Files.Remove(r.Context(), path)
		h.writeEventError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventView(event))
}

func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Admin Access Required", err, h.Env)
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event Not Found", err, h.Env)
	case errors.Is(err, events.ErrInvalidInput):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Event Data", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Request Failed", err, h.Env)
	}
}
