package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nariz-encantado/server/internal/api/middleware"
	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/domain/events"
)

func newTestEventsHandler(repo *fakeEventRepo) *EventsHandler {
	service := events.NewService(repo, zerolog.Nop())
	return NewEventsHandler(service, nil, "test")
}

func adminPrincipal() auth.Principal {
	return auth.Principal{ID: uuid.New(), Email: "admin@example.org", Role: auth.RoleAdmin, Active: true}
}

func memberPrincipal() auth.Principal {
	return auth.Principal{ID: uuid.New(), Email: "maria@example.org", Role: auth.RoleMember, Active: true}
}

func authedRequest(method, target string, principal auth.Principal, body any) *http.Request {
	var reader = bytes.NewReader(nil)
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithPrincipal(req.Context(), principal))
}

func seedEvent(t *testing.T, repo *fakeEventRepo, spots int) *events.Event {
	t.Helper()
	event, err := repo.Create(t.Context(), events.CreateEventParams{
		Name:           "Visita Hospital Infantil",
		DateTime:       time.Now().Add(48 * time.Hour),
		Location:       "São Paulo",
		TotalSpots:     spots,
		AvailableSpots: spots,
	})
	require.NoError(t, err)
	return event
}

func TestEventsCreate(t *testing.T) {
	repo := newFakeEventRepo()
	handler := newTestEventsHandler(repo)

	req := authedRequest(http.MethodPost, "/api/v1/events", adminPrincipal(), map[string]any{
		"name":        "Visita Hospital Infantil",
		"date_time":   "2026-09-12T14:00:00Z",
		"location":    "São Paulo",
		"total_spots": 20,
	})
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var view eventView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "Visita Hospital Infantil", view.Name)
	require.Equal(t, 20, view.TotalSpots)
	// Omitted available_spots defaults to a fully open event.
	require.Equal(t, 20, view.AvailableSpots)
}

func TestEventsCreateForbiddenForMember(t *testing.T) {
	handler := newTestEventsHandler(newFakeEventRepo())

	req := authedRequest(http.MethodPost, "/api/v1/events", memberPrincipal(), map[string]any{
		"name":        "Visita Hospital Infantil",
		"date_time":   "2026-09-12T14:00:00Z",
		"total_spots": 20,
	})
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEventsListHidesRegistrationLink(t *testing.T) {
	repo := newFakeEventRepo()
	handler := newTestEventsHandler(repo)

	event := seedEvent(t, repo, 10)
	_, err := repo.SetRegistrationLink(t.Context(), event.ID, "a1b2c3d4e5f6")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "registration_link")
	require.NotContains(t, rec.Body.String(), "a1b2c3d4e5f6")
}

func TestEventsGetUnknownID(t *testing.T) {
	handler := newTestEventsHandler(newFakeEventRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/99", nil)
	req.SetPathValue("id", "99")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestEventsRegister(t *testing.T) {
	repo := newFakeEventRepo()
	handler := newTestEventsHandler(repo)
	event := seedEvent(t, repo, 2)

	principal := memberPrincipal()
	req := authedRequest(http.MethodPost, "/api/v1/events/1/register", principal, nil)
	req.SetPathValue("id", strconv.FormatInt(event.ID, 10))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var view registrationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, event.ID, view.EventID)
	require.Equal(t, principal.ID.String(), view.UserID)
	require.Len(t, view.ID, 26)

	// Same caller again: duplicate.
	req = authedRequest(http.MethodPost, "/api/v1/events/1/register", principal, nil)
	req.SetPathValue("id", strconv.FormatInt(event.ID, 10))
	rec = httptest.NewRecorder()
	handler.Register(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsRegisterFull(t *testing.T) {
	repo := newFakeEventRepo()
	handler := newTestEventsHandler(repo)
	event := seedEvent(t, repo, 1)

	first := authedRequest(http.MethodPost, "/api/v1/events/1/register", memberPrincipal(), nil)
	first.SetPathValue("id", strconv.FormatInt(event.ID, 10))
	rec := httptest.NewRecorder()
	handler.Register(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	second := authedRequest(http.MethodPost, "/api/v1/events/1/register", memberPrincipal(), nil)
	second.SetPathValue("id", strconv.FormatInt(event.ID, 10))
	rec = httptest.NewRecorder()
	handler.Register(rec, second)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Event Full")
}

func TestEventsDelete(t *testing.T) {
	repo := newFakeEventRepo()
	handler := newTestEventsHandler(repo)
	event := seedEvent(t, repo, 5)

	req := authedRequest(http.MethodDelete, "/api/v1/events/1", adminPrincipal(), nil)
	req.SetPathValue("id", strconv.FormatInt(event.ID, 10))
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/events/1", nil)
	get.SetPathValue("id", strconv.FormatInt(event.ID, 10))
	rec = httptest.NewRecorder()
	handler.Get(rec, get)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsGenerateAndResolveLink(t *testing.T) {
	repo := newFakeEventRepo()
	handler := newTestEventsHandler(repo)
	event := seedEvent(t, repo, 5)

	req := authedRequest(http.MethodPost, "/api/v1/events/1/registration-link", adminPrincipal(), nil)
	req.SetPathValue("id", strconv.FormatInt(event.ID, 10))
	rec := httptest.NewRecorder()
	handler.GenerateLink(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var view eventView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.RegistrationLink)

	resolve := httptest.NewRequest(http.MethodGet, "/api/v1/registration-links/"+*view.RegistrationLink, nil)
	resolve.SetPathValue("link", *view.RegistrationLink)
	rec = httptest.NewRecorder()
	handler.ResolveLink(rec, resolve)
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved publicEventView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	require.Equal(t, event.ID, resolved.ID)
}

func TestEventsResolveUnknownLink(t *testing.T) {
	handler := newTestEventsHandler(newFakeEventRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/registration-links/nosuchlink12", nil)
	req.SetPathValue("link", "nosuchlink12")
	rec := httptest.NewRecorder()
	handler.ResolveLink(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
