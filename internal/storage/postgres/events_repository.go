package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nariz-encantado/server/internal/domain/events"
	"github.com/nariz-encantado/server/internal/domain/ids"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

const eventColumns = `id, name, date_time, location, total_spots, available_spots, registration_link, image_path, description, created_at`

func (r *EventRepository) List(ctx context.Context, skip, limit int) ([]events.Event, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE deleted_at IS NULL
 ORDER BY date_time, id
OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *event)
	}
	return out, rows.Err()
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateEventParams) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO events (name, date_time, location, total_spots, available_spots, description)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+eventColumns,
		params.Name,
		params.DateTime,
		params.Location,
		params.TotalSpots,
		params.AvailableSpots,
		params.Description,
	)
	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE events SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// Register books one spot inside a single transaction. The event row is
// locked with FOR UPDATE so concurrent registrations for the same event
// serialize; the capacity check and the decrement then cannot race.
func (r *EventRepository) Register(ctx context.Context, eventID int64, userID uuid.UUID, registrationID string) (*events.Registration, error) {
	if err := ids.ValidateULID(registrationID); err != nil {
		return nil, fmt.Errorf("registration id %q: %w", registrationID, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin registration tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var available int
	err = tx.QueryRow(ctx, `
SELECT available_spots FROM events
 WHERE id = $1 AND deleted_at IS NULL
   FOR UPDATE`, eventID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	var alreadyRegistered bool
	err = tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM event_registrations WHERE user_id = $1 AND event_id = $2
)`, userID, eventID).Scan(&alreadyRegistered)
	if err != nil {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}
	if alreadyRegistered {
		return nil, events.ErrAlreadyRegistered
	}

	if available <= 0 {
		return nil, events.ErrCapacityExceeded
	}

	if _, err := tx.Exec(ctx, `
UPDATE events SET available_spots = available_spots - 1 WHERE id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("decrement available spots: %w", err)
	}

	registration := &events.Registration{
		ID:      registrationID,
		UserID:  userID,
		EventID: eventID,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO event_registrations (id, user_id, event_id)
VALUES ($1, $2, $3)
RETURNING registered_at`, registrationID, userID, eventID).Scan(&registration.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, events.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit registration tx: %w", err)
	}
	return registration, nil
}

func (r *EventRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]events.UserEvent, error) {
	rows, err := r.pool.Query(ctx, `
SELECT e.id, e.name, e.date_time, e.location, e.total_spots, e.available_spots,
       e.registration_link, e.image_path, e.description, e.created_at,
       r.registered_at
  FROM event_registrations r
  JOIN events e ON e.id = r.event_id
 WHERE r.user_id = $1
 ORDER BY e.date_time, e.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	defer rows.Close()

	var out []events.UserEvent
	for rows.Next() {
		var ue events.UserEvent
		if err := rows.Scan(
			&ue.Event.ID,
			&ue.Event.Name,
			&ue.Event.DateTime,
			&ue.Event.Location,
			&ue.Event.TotalSpots,
			&ue.Event.AvailableSpots,
			&ue.Event.RegistrationLink,
			&ue.Event.ImagePath,
			&ue.Event.Description,
			&ue.Event.CreatedAt,
			&ue.RegisteredAt,
		); err != nil {
			return nil, fmt.Errorf("scan user event: %w", err)
		}
		out = append(out, ue)
	}
	return out, rows.Err()
}

// SetRegistrationLink is first-writer-wins: the guarded UPDATE only fires
// while registration_link is still NULL, so a concurrent caller cannot
// overwrite a stored link. When the guard misses, the re-read returns the
// event with whatever link won.
func (r *EventRepository) SetRegistrationLink(ctx context.Context, eventID int64, link string) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE events SET registration_link = $2
 WHERE id = $1 AND deleted_at IS NULL AND registration_link IS NULL
RETURNING `+eventColumns, eventID, link)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.GetByID(ctx, eventID)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "registration_link") {
			return nil, events.ErrLinkTaken
		}
		return nil, fmt.Errorf("set registration link: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetByLink(ctx context.Context, link string) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+eventColumns+` FROM events
 WHERE registration_link = $1 AND deleted_at IS NULL`, link)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event by link: %w", err)
	}
	return event, nil
}

func (r *EventRepository) SetImagePath(ctx context.Context, id int64, path string) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE events SET image_path = $2
 WHERE id = $1 AND deleted_at IS NULL
RETURNING `+eventColumns, id, path)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("set event image: %w", err)
	}
	return event, nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var event events.Event
	if err := row.Scan(
		&event.ID,
		&event.Name,
		&event.DateTime,
		&event.Location,
		&event.TotalSpots,
		&event.AvailableSpots,
		&event.RegistrationLink,
		&event.ImagePath,
		&event.Description,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &event, nil
}
