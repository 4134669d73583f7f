package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/domain/ids"
	"github.com/nariz-encantado/server/internal/sanitize"
)

// MaxTotalSpots bounds event capacity to catch fat-fingered input.
const MaxTotalSpots = 100_000

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Service is the registration ledger: it owns event capacity and is the only
// component that creates registrations or writes available_spots.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// List returns events with offset pagination. Reads are public.
func (s *Service) List(ctx context.Context, skip, limit int) ([]Event, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, skip, limit)
}

// Get returns a single event by id.
func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates the parameters and creates an event. Admin only.
func (s *Service) Create(ctx context.Context, admin auth.Principal, params CreateEventParams) (*Event, error) {
	if _, err := auth.RequireAdmin(admin); err != nil {
		return nil, err
	}

	params.Name = sanitize.Text(strings.TrimSpace(params.Name))
	params.Location = sanitize.Text(strings.TrimSpace(params.Location))
	params.Description = sanitize.HTML(params.Description)

	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if params.DateTime.IsZero() {
		return nil, fmt.Errorf("%w: date_time is required", ErrInvalidInput)
	}
	if params.TotalSpots <= 0 || params.TotalSpots > MaxTotalSpots {
		return nil, fmt.Errorf("%w: total_spots must be between 1 and %d", ErrInvalidInput, MaxTotalSpots)
	}
	if params.AvailableSpots < 0 || params.AvailableSpots > params.TotalSpots {
		return nil, fmt.Errorf("%w: available_spots must be between 0 and total_spots", ErrInvalidInput)
	}

	event, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info().
		Int64("event_id", event.ID).
		Str("name", event.Name).
		Int("total_spots", event.TotalSpots).
		Msg("event created")
	return event, nil
}

// Delete removes an event from all reads. Admin only. This is a soft delete:
// registration history is preserved rather than cascaded away.
func (s *Service) Delete(ctx context.Context, admin auth.Principal, id int64) error {
	if _, err := auth.RequireAdmin(admin); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("event_id", id).Str("deleted_by", admin.Email).Msg("event deleted")
	return nil
}

// Register takes one seat on the event for the caller. The repository runs
// the capacity check, decrement and insert as a single transaction, so a
// concurrent caller racing for the last seat fails with ErrCapacityExceeded
// rather than driving the counter negative.
func (s *Service) Register(ctx context.Context, eventID int64, user auth.Principal) (*Registration, error) {
	registrationID, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint registration id: %w", err)
	}

	registration, err := s.repo.Register(ctx, eventID, user.ID, registrationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyRegistered) || errors.Is(err, ErrCapacityExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("register for event: %w", err)
	}

	s.logger.Info().
		Int64("event_id", eventID).
		Str("user_id", user.ID.String()).
		Str("registration_id", registration.ID).
		Msg("registration created")
	return registration, nil
}

// ListForUser returns the events the caller is registered for.
func (s *Service) ListForUser(ctx context.Context, user auth.Principal) ([]UserEvent, error) {
	return s.repo.ListForUser(ctx, user.ID)
}

// AttachImage records the stored image reference on an event. Admin only.
// The upload itself goes through the file-store collaborator.
func (s *Service) AttachImage(ctx context.Context, admin auth.Principal, id int64, path string) (*Event, error) {
	if _, err := auth.RequireAdmin(admin); err != nil {
		return nil, err
	}
	return s.repo.SetImagePath(ctx, id, path)
}
