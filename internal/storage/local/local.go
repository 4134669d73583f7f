// Package local stores uploaded files on the local filesystem under a
// single root directory.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nariz-encantado/server/internal/storage"
)

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("local store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local store: create root: %w", err)
	}
	return &Store{root: root}, nil
}

// Save writes contents under a random filename that keeps the original
// extension. The caller's name is never used as the on-disk name, so
// user-supplied filenames cannot collide or escape the root.
func (s *Store) Save(_ context.Context, name string, contents io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	rel := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.root, rel))
	if err != nil {
		return "", fmt.Errorf("local store: create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, contents); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("local store: write file: %w", err)
	}
	return rel, nil
}

func (s *Store) Open(_ context.Context, relPath string) (io.ReadCloser, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrFileNotFound
		}
		return nil, fmt.Errorf("local store: open file: %w", err)
	}
	return f, nil
}

func (s *Store) Remove(_ context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local store: remove file: %w", err)
	}
	return nil
}

// resolve rejects paths that would step outside the root.
func (s *Store) resolve(relPath string) (string, error) {
	cleaned := path.Clean("/" + relPath)[1:]
	if cleaned == "" || strings.HasPrefix(cleaned, "..") {
		return "", storage.ErrFileNotFound
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}
