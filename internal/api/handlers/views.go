package handlers

import (
	"time"

	"github.com/nariz-encantado/server/internal/domain/documents"
	"github.com/nariz-encantado/server/internal/domain/events"
	"github.com/nariz-encantado/server/internal/domain/users"
)

const dateLayout = "2006-01-02"

type userView struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	ClownName string `json:"clown_name,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
	CPF       string `json:"cpf"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func toUserView(user *users.User) userView {
	view := userView{
		ID:        user.ID.String(),
		FullName:  user.FullName,
		ClownName: user.ClownName,
		CPF:       user.CPF,
		Email:     user.Email,
		Role:      string(user.Role),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !user.BirthDate.IsZero() {
		view.BirthDate = user.BirthDate.Format(dateLayout)
	}
	return view
}

type eventView struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	DateTime         string  `json:"date_time"`
	Location         string  `json:"location,omitempty"`
	TotalSpots       int     `json:"total_spots"`
	AvailableSpots   int     `json:"available_spots"`
	RegistrationLink *string `json:"registration_link,omitempty"`
	ImagePath        *string `json:"image_path,omitempty"`
	Description      string  `json:"description,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

func toEventView(event *events.Event) eventView {
	return eventView{
		ID:               event.ID,
		Name:             event.Name,
		DateTime:         event.DateTime.UTC().Format(time.RFC3339),
		Location:         event.Location,
		TotalSpots:       event.TotalSpots,
		AvailableSpots:   event.AvailableSpots,
		RegistrationLink: event.RegistrationLink,
		ImagePath:        event.ImagePath,
		Description:      event.Description,
		CreatedAt:        event.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// publicEventView hides the registration link from unauthenticated reads:
// leaking it would let anyone mint the private URL.
type publicEventView struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	DateTime       string  `json:"date_time"`
	Location       string  `json:"location,omitempty"`
	TotalSpots     int     `json:"total_spots"`
	AvailableSpots int     `json:"available_spots"`
	ImagePath      *string `json:"image_path,omitempty"`
	Description    string  `json:"description,omitempty"`
}

func toPublicEventView(event *events.Event) publicEventView {
	return publicEventView{
		ID:             event.ID,
		Name:           event.Name,
		DateTime:       event.DateTime.UTC().Format(time.RFC3339),
		Location:       event.Location,
		TotalSpots:     event.TotalSpots,
		AvailableSpots: event.AvailableSpots,
		ImagePath:      event.ImagePath,
		Description:    event.Description,
	}
}

type registrationView struct {
	ID           string `json:"id"`
	EventID      int64  `json:"event_id"`
	UserID       string `json:"user_id"`
	RegisteredAt string `json:"registered_at"`
}

func toRegistrationView(registration *events.Registration) registrationView {
	return registrationView{
		ID:           registration.ID,
		EventID:      registration.EventID,
		UserID:       registration.UserID.String(),
		RegisteredAt: registration.RegisteredAt.UTC().Format(time.RFC3339),
	}
}

type userEventView struct {
	publicEventView
	RegisteredAt string `json:"registered_at"`
}

func toUserEventView(ue events.UserEvent) userEventView {
	return userEventView{
		publicEventView: toPublicEventView(&ue.Event),
		RegisteredAt:    ue.RegisteredAt.UTC().Format(time.RFC3339),
	}
}

type documentView struct {
	ID         int64  `json:"id"`
	Type       string `json:"document_type"`
	UploadedAt string `json:"uploaded_at"`
}

func toDocumentView(doc *documents.Document) documentView {
	return documentView{
		ID:         doc.ID,
		Type:       string(doc.Type),
		UploadedAt: doc.UploadedAt.UTC().Format(time.RFC3339),
	}
}
