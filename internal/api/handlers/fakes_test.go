package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/domain/events"
	"github.com/nariz-encantado/server/internal/domain/users"
)

type registrationKey struct {
	userID  uuid.UUID
	eventID int64
}

type fakeEventRepo struct {
	nextID        int64
	events        map[int64]*events.Event
	deleted       map[int64]bool
	registrations map[registrationKey]*events.Registration
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events:        map[int64]*events.Event{},
		deleted:       map[int64]bool{},
		registrations: map[registrationKey]*events.Registration{},
	}
}

func (f *fakeEventRepo) List(_ context.Context, skip, limit int) ([]events.Event, error) {
	var out []events.Event
	for id := int64(1); id <= f.nextID; id++ {
		if event, ok := f.events[id]; ok && !f.deleted[id] {
			out = append(out, *event)
		}
	}
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id int64) (*events.Event, error) {
	event, ok := f.events[id]
	if !ok || f.deleted[id] {
		return nil, events.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (f *fakeEventRepo) Create(_ context.Context, params events.CreateEventParams) (*events.Event, error) {
	f.nextID++
	event := &events.Event{
		ID:             f.nextID,
		Name:           params.Name,
		DateTime:       params.DateTime,
		Location:       params.Location,
		TotalSpots:     params.TotalSpots,
		AvailableSpots: params.AvailableSpots,
		Description:    params.Description,
		CreatedAt:      time.Now(),
	}
	f.events[event.ID] = event
	return event, nil
}

func (f *fakeEventRepo) SoftDelete(_ context.Context, id int64) error {
	if _, ok := f.events[id]; !ok || f.deleted[id] {
		return events.ErrNotFound
	}
	f.deleted[id] = true
	return nil
}

func (f *fakeEventRepo) Register(_ context.Context, eventID int64, userID uuid.UUID, registrationID string) (*events.Registration, error) {
	event, ok := f.events[eventID]
	if !ok || f.deleted[eventID] {
		return nil, events.ErrNotFound
	}
	key := registrationKey{userID: userID, eventID: eventID}
	if _, ok := f.registrations[key]; ok {
		return nil, events.ErrAlreadyRegistered
	}
	if event.AvailableSpots <= 0 {
		return nil, events.ErrCapacityExceeded
	}
	event.AvailableSpots--
	registration := &events.Registration{
		ID:           registrationID,
		UserID:       userID,
		EventID:      eventID,
		RegisteredAt: time.Now(),
	}
	f.registrations[key] = registration
	return registration, nil
}

func (f *fakeEventRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]events.UserEvent, error) {
	var out []events.UserEvent
	for key, registration := range f.registrations {
		if key.userID != userID {
			continue
		}
		if event, ok := f.events[key.eventID]; ok {
			out = append(out, events.UserEvent{Event: *event, RegisteredAt: registration.RegisteredAt})
		}
	}
	return out, nil
}

func (f *fakeEventRepo) SetRegistrationLink(_ context.Context, eventID int64, link string) (*events.Event, error) {
	for id, event := range f.events {
		if id != eventID && event.RegistrationLink != nil && *event.RegistrationLink == link {
			return nil, events.ErrLinkTaken
		}
	}
	event, ok := f.events[eventID]
	if !ok || f.deleted[eventID] {
		return nil, events.ErrNotFound
	}
	if event.RegistrationLink == nil {
		event.RegistrationLink = &link
	}
	copied := *event
	return &copied, nil
}

func (f *fakeEventRepo) GetByLink(_ context.Context, link string) (*events.Event, error) {
	for id, event := range f.events {
		if f.deleted[id] {
			continue
		}
		if event.RegistrationLink != nil && *event.RegistrationLink == link {
			copied := *event
			return &copied, nil
		}
	}
	return nil, events.ErrNotFound
}

func (f *fakeEventRepo) SetImagePath(_ context.Context, id int64, path string) (*events.Event, error) {
	event, ok := f.events[id]
	if !ok || f.deleted[id] {
		return nil, events.ErrNotFound
	}
	event.ImagePath = &path
	copied := *event
	return &copied, nil
}

type fakeUserRepo struct {
	byID    map[uuid.UUID]*users.User
	byEmail map[string]*users.User
	byCPF   map[string]*users.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[uuid.UUID]*users.User{},
		byEmail: map[string]*users.User{},
		byCPF:   map[string]*users.User{},
	}
}

func (f *fakeUserRepo) Create(_ context.Context, params users.CreateUserParams) (*users.User, error) {
	if _, ok := f.byEmail[params.Email]; ok {
		return nil, users.ErrEmailTaken
	}
	if _, ok := f.byCPF[params.CPF]; ok {
		return nil, users.ErrCPFTaken
	}
	user := &users.User{
		ID:           uuid.New(),
		FullName:     params.FullName,
		ClownName:    params.ClownName,
		BirthDate:    params.BirthDate,
		CPF:          params.CPF,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	f.byCPF[user.CPF] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByLogin(_ context.Context, login string) (*users.User, error) {
	if user, ok := f.byEmail[login]; ok {
		return user, nil
	}
	if user, ok := f.byCPF[login]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context, skip, limit int) ([]users.User, error) {
	var out []users.User
	for _, user := range f.byID {
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateRole(_ context.Context, id uuid.UUID, role auth.Role) (*users.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	user.Role = role
	return user, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	user, ok := f.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	user.PasswordHash = hash
	return nil
}

type fakeResetRepo struct {
	tokens map[string]uuid.UUID
}

func (f *fakeResetRepo) Create(_ context.Context, userID uuid.UUID, tokenHash string, _ time.Time) error {
	if f.tokens == nil {
		f.tokens = map[string]uuid.UUID{}
	}
	f.tokens[tokenHash] = userID
	return nil
}

func (f *fakeResetRepo) Consume(_ context.Context, tokenHash string) (uuid.UUID, error) {
	userID, ok := f.tokens[tokenHash]
	if !ok {
		return uuid.Nil, users.ErrInvalidResetToken
	}
	delete(f.tokens, tokenHash)
	return userID, nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendPasswordReset(to, _ string) error {
	f.sent = append(f.sent, to)
	return nil
}
