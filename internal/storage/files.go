// Package storage defines persistence contracts implemented by the
// postgres and local subpackages.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrFileNotFound = errors.New("file not found")

// FileStore persists uploaded files (event images, volunteer documents).
// Save returns the stored path relative to the store root; that path is
// what repositories record and what Open expects back.
type FileStore interface {
	Save(ctx context.Context, name string, contents io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}
