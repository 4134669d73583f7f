package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nariz-encantado/server/internal/domain/documents"
)

func TestDocumentRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := &DocumentRepository{pool: pool}

	user := insertUser(t, ctx, pool, "maria@example.org", "52998224725")

	doc, previous, err := repo.Upsert(ctx, user.ID, documents.TypeVaccinationProof, "uploads/v1.pdf")
	require.NoError(t, err)
	require.Empty(t, previous)
	require.Equal(t, documents.TypeVaccinationProof, doc.Type)

	// Re-upload replaces the record and surfaces the old path.
	updated, previous, err := repo.Upsert(ctx, user.ID, documents.TypeVaccinationProof, "uploads/v2.pdf")
	require.NoError(t, err)
	require.Equal(t, "uploads/v1.pdf", previous)
	require.Equal(t, "uploads/v2.pdf", updated.FilePath)

	listed, err := repo.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestDocumentRepositoryGetForUser(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := &DocumentRepository{pool: pool}

	user := insertUser(t, ctx, pool, "maria@example.org", "52998224725")

	_, _, err := repo.Upsert(ctx, user.ID, documents.TypeIDCard, "uploads/rg.png")
	require.NoError(t, err)

	doc, err := repo.GetForUser(ctx, user.ID, documents.TypeIDCard)
	require.NoError(t, err)
	require.Equal(t, "uploads/rg.png", doc.FilePath)

	_, err = repo.GetForUser(ctx, user.ID, documents.TypeSignedContract)
	require.ErrorIs(t, err, documents.ErrNotFound)
}

func TestDocumentRepositoryListIsPerUser(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	repo := &DocumentRepository{pool: pool}

	maria := insertUser(t, ctx, pool, "maria@example.org", "52998224725")
	joao := insertUser(t, ctx, pool, "joao@example.org", "11144477735")

	_, _, err := repo.Upsert(ctx, maria.ID, documents.TypeIDCard, "uploads/maria-rg.png")
	require.NoError(t, err)
	_, _, err = repo.Upsert(ctx, maria.ID, documents.TypeSignedContract, "uploads/maria-contrato.pdf")
	require.NoError(t, err)
	_, _, err = repo.Upsert(ctx, joao.ID, documents.TypeIDCard, "uploads/joao-rg.png")
	require.NoError(t, err)

	docs, err := repo.ListForUser(ctx, maria.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
}
