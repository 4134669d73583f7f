package events

import "errors"

var (
	// ErrNotFound is returned when an event does not exist or has been deleted.
	ErrNotFound = errors.New("event not found")

	// ErrAlreadyRegistered is returned when a user tries to register twice
	// for the same event.
	ErrAlreadyRegistered = errors.New("user already registered for this event")

	// ErrCapacityExceeded is returned when an event has no available spots.
	ErrCapacityExceeded = errors.New("no available spots for this event")

	// ErrInvalidInput is returned for event parameters that violate the
	// capacity bounds or are otherwise malformed.
	ErrInvalidInput = errors.New("invalid event input")

	// ErrLinkTaken is returned by the repository when a freshly minted
	// registration link collides with an existing one. The issuer retries.
	ErrLinkTaken = errors.New("registration link already in use")
)
