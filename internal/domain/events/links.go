package events

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/nariz-encantado/server/internal/auth"
)

// Registration links are unguessable 12-character alphanumeric tokens that
// allow unauthenticated public lookup of one event.
const (
	linkLength   = 12
	linkAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxLinkAttempts bounds retries on a storage-level uniqueness collision.
	// At 62^12 possible links a single retry is already vanishingly rare.
	maxLinkAttempts = 5
)

// GenerateLink mints a unique public registration link for the event. Admin
// only. Idempotent: if the event already carries a link, it is returned
// unchanged. Two concurrent calls resolve at the repository: the first
// stored link wins and both callers receive it.
func (s *Service) GenerateLink(ctx context.Context, admin auth.Principal, eventID int64) (*Event, error) {
	if _, err := auth.RequireAdmin(admin); err != nil {
		return nil, err
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.RegistrationLink != nil && *event.RegistrationLink != "" {
		return event, nil
	}

	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		link, err := newRegistrationLink()
		if err != nil {
			return nil, fmt.Errorf("mint registration link: %w", err)
		}

		updated, err := s.repo.SetRegistrationLink(ctx, eventID, link)
		if errors.Is(err, ErrLinkTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store registration link: %w", err)
		}

		s.logger.Info().Int64("event_id", eventID).Msg("registration link generated")
		return updated, nil
	}
	return nil, fmt.Errorf("store registration link: exhausted %d attempts", maxLinkAttempts)
}

// ResolveLink looks up the event carrying the given public link. No
// authentication required.
func (s *Service) ResolveLink(ctx context.Context, link string) (*Event, error) {
	if len(link) != linkLength {
		return nil, ErrNotFound
	}
	return s.repo.GetByLink(ctx, link)
}

func newRegistrationLink() (string, error) {
	max := big.NewInt(int64(len(linkAlphabet)))
	buf := make([]byte, linkLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = linkAlphabet[n.Int64()]
	}
	return string(buf), nil
}
