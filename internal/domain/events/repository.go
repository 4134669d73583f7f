package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a volunteer event with a bounded number of seats.
// Invariant: 0 <= AvailableSpots <= TotalSpots at all times; the registration
// ledger is the sole writer of AvailableSpots.
type Event struct {
	ID               int64
	Name             string
	DateTime         time.Time
	Location         string
	TotalSpots       int
	AvailableSpots   int
	RegistrationLink *string
	ImagePath        *string
	Description      string
	CreatedAt        time.Time
}

// Registration records that a user holds a seat for an event. The
// (UserID, EventID) pair is unique; a registration is never updated and,
// since event deletion is a soft delete, never destroyed.
type Registration struct {
	ID           string
	UserID       uuid.UUID
	EventID      int64
	RegisteredAt time.Time
}

// UserEvent pairs a registration with the event it is for, for the
// caller's "my events" listing.
type UserEvent struct {
	Event        Event
	RegisteredAt time.Time
}

type CreateEventParams struct {
	Name           string
	DateTime       time.Time
	Location       string
	TotalSpots     int
	AvailableSpots int
	Description    string
}

// Repository is the persistence collaborator for events and registrations.
// Implementations must make Register atomic: the capacity check, the
// decrement and the registration insert happen in one transaction with the
// event row locked, so two concurrent callers cannot both take the last seat.
// SetRegistrationLink is first-writer-wins: a stored link is never
// overwritten, and a call that loses the write returns the event carrying
// the link that won.
type Repository interface {
	List(ctx context.Context, skip, limit int) ([]Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, params CreateEventParams) (*Event, error)
	SoftDelete(ctx context.Context, id int64) error

	Register(ctx context.Context, eventID int64, userID uuid.UUID, registrationID string) (*Registration, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]UserEvent, error)

	SetRegistrationLink(ctx context.Context, eventID int64, link string) (*Event, error)
	GetByLink(ctx context.Context, link string) (*Event, error)

	SetImagePath(ctx context.Context, id int64, path string) (*Event, error)
}
