package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nariz-encantado/server/internal/domain/documents"
)

type DocumentRepository struct {
	pool *pgxpool.Pool
}

// Upsert replaces any existing document of the same type for the user and
// reports the superseded file path so the caller can delete the old file.
func (r *DocumentRepository) Upsert(ctx context.Context, userID uuid.UUID, docType documents.Type, filePath string) (*documents.Document, string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("begin document tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous string
	err = tx.QueryRow(ctx, `
SELECT file_path FROM documents WHERE user_id = $1 AND document_type = $2 FOR UPDATE`,
		userID, string(docType)).Scan(&previous)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("lookup existing document: %w", err)
	}

	var doc documents.Document
	var docTypeStr string
	err = tx.QueryRow(ctx, `
INSERT INTO documents (user_id, document_type, file_path)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, document_type)
DO UPDATE SET file_path = EXCLUDED.file_path, uploaded_at = now()
RETURNING id, user_id, document_type, file_path, uploaded_at`,
		userID, string(docType), filePath).Scan(
		&doc.ID, &doc.UserID, &docTypeStr, &doc.FilePath, &doc.UploadedAt)
	if err != nil {
		return nil, "", fmt.Errorf("upsert document: %w", err)
	}
	doc.Type = documents.Type(docTypeStr)

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit document tx: %w", err)
	}
	return &doc, previous, nil
}

func (r *DocumentRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]documents.Document, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, document_type, file_path, uploaded_at
  FROM documents
 WHERE user_id = $1
 ORDER BY document_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []documents.Document
	for rows.Next() {
		var doc documents.Document
		var docType string
		if err := rows.Scan(&doc.ID, &doc.UserID, &docType, &doc.FilePath, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Type = documents.Type(docType)
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *DocumentRepository) GetForUser(ctx context.Context, userID uuid.UUID, docType documents.Type) (*documents.Document, error) {
	var doc documents.Document
	var docTypeStr string
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, document_type, file_path, uploaded_at
  FROM documents
 WHERE user_id = $1 AND document_type = $2`,
		userID, string(docType)).Scan(
		&doc.ID, &doc.UserID, &docTypeStr, &doc.FilePath, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, documents.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.Type = documents.Type(docTypeStr)
	return &doc, nil
}
