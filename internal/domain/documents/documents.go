// Package documents manages the paperwork a volunteer must keep on file:
// vaccination proof, an identity card and the signed volunteering contract.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nariz-encantado/server/internal/storage"
)

// Type is the closed set of document kinds a volunteer can upload.
type Type string

const (
	TypeVaccinationProof Type = "vaccination_proof"
	TypeIDCard           Type = "id_card"
	TypeSignedContract   Type = "signed_contract"
)

var validTypes = map[Type]bool{
	TypeVaccinationProof: true,
	TypeIDCard:           true,
	TypeSignedContract:   true,
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !validTypes[t] {
		return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, s)
	}
	return t, nil
}

// MaxUploadBytes caps a single document upload.
const MaxUploadBytes = 10 << 20

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid document input")
)

type Document struct {
	ID         int64
	UserID     uuid.UUID
	Type       Type
	FilePath   string
	UploadedAt time.Time
}

// Repository persists document records. Upsert replaces an existing record
// of the same (user, type) pair and returns the previous file path, if any,
// so the caller can clean up the superseded file.
type Repository interface {
	Upsert(ctx context.Context, userID uuid.UUID, docType Type, filePath string) (*Document, string, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Document, error)
	GetForUser(ctx context.Context, userID uuid.UUID, docType Type) (*Document, error)
}

type Service struct {
	repo   Repository
	files  storage.FileStore
	logger zerolog.Logger
}

func NewService(repo Repository, files storage.FileStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		files:  files,
		logger: logger.With().Str("component", "documents").Logger(),
	}
}

// Upload stores the file and records it for the volunteer. A re-upload of
// the same type replaces the previous document.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, docType Type, filename string, contents io.Reader) (*Document, error) {
	if !validTypes[docType] {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}

	path, err := s.files.Save(ctx, filename, io.LimitReader(contents, MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("store document file: %w", err)
	}

	doc, previous, err := s.repo.Upsert(ctx, userID, docType, path)
	if err != nil {
		if removeErr := s.files.Remove(ctx, path); removeErr != nil {
			s.logger.Warn().Err(removeErr).Str("path", path).Msg("failed to remove orphaned upload")
		}
		return nil, fmt.Errorf("record document: %w", err)
	}

	if previous != "" && previous != path {
		if err := s.files.Remove(ctx, previous); err != nil {
			s.logger.Warn().Err(err).Str("path", previous).Msg("failed to remove superseded document file")
		}
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("type", string(docType)).
		Msg("document uploaded")
	return doc, nil
}

// List returns all documents on file for a volunteer.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Open streams a stored document back for download.
func (s *Service) Open(ctx context.Context, userID uuid.UUID, docType Type) (*Document, io.ReadCloser, error) {
	doc, err := s.repo.GetForUser(ctx, userID, docType)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.files.Open(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open document file: %w", err)
	}
	return doc, f, nil
}
