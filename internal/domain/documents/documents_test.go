package documents

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nariz-encantado/server/internal/storage"
)

type docKey struct {
	userID  uuid.UUID
	docType Type
}

type fakeDocRepo struct {
	nextID int64
	docs   map[docKey]*Document
}

func (f *fakeDocRepo) Upsert(_ context.Context, userID uuid.UUID, docType Type, filePath string) (*Document, string, error) {
	if f.docs == nil {
		f.docs = map[docKey]*Document{}
	}
	key := docKey{userID: userID, docType: docType}
	previous := ""
	if existing, ok := f.docs[key]; ok {
		previous = existing.FilePath
	}
	f.nextID++
	doc := &Document{ID: f.nextID, UserID: userID, Type: docType, FilePath: filePath, UploadedAt: time.Now()}
	f.docs[key] = doc
	return doc, previous, nil
}

func (f *fakeDocRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]Document, error) {
	var out []Document
	for key, doc := range f.docs {
		if key.userID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) GetForUser(_ context.Context, userID uuid.UUID, docType Type) (*Document, error) {
	doc, ok := f.docs[docKey{userID: userID, docType: docType}]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

type fakeFiles struct {
	saved   map[string]string
	removed []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{saved: map[string]string{}}
}

func (f *fakeFiles) Save(_ context.Context, name string, contents io.Reader) (string, error) {
	data, err := io.ReadAll(contents)
	if err != nil {
		return "", err
	}
	path := uuid.NewString() + "-" + name
	f.saved[path] = string(data)
	return path, nil
}

func (f *fakeFiles) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.saved[path]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (f *fakeFiles) Remove(_ context.Context, path string) error {
	delete(f.saved, path)
	f.removed = append(f.removed, path)
	return nil
}

func TestParseType(t *testing.T) {
	for _, valid := range []string{"vaccination_proof", "id_card", "signed_contract"} {
		_, err := ParseType(valid)
		require.NoError(t, err)
	}
	_, err := ParseType("diploma")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadAndOpen(t *testing.T) {
	files := newFakeFiles()
	svc := NewService(&fakeDocRepo{}, files, zerolog.Nop())
	userID := uuid.New()

	doc, err := svc.Upload(context.Background(), userID, TypeIDCard, "rg.png", strings.NewReader("scan"))
	require.NoError(t, err)
	require.Equal(t, TypeIDCard, doc.Type)

	got, f, err := svc.Open(context.Background(), userID, TypeIDCard)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, doc.ID, got.ID)

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "scan", string(data))
}

func TestReuploadReplacesPreviousFile(t *testing.T) {
	files := newFakeFiles()
	repo := &fakeDocRepo{}
	svc := NewService(repo, files, zerolog.Nop())
	userID := uuid.New()

	first, err := svc.Upload(context.Background(), userID, TypeVaccinationProof, "v1.pdf", strings.NewReader("old"))
	require.NoError(t, err)

	second, err := svc.Upload(context.Background(), userID, TypeVaccinationProof, "v2.pdf", strings.NewReader("new"))
	require.NoError(t, err)
	require.NotEqual(t, first.FilePath, second.FilePath)

	// One record per type, old file cleaned up.
	docs, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Contains(t, files.removed, first.FilePath)
}

func TestUploadRejectsUnknownType(t *testing.T) {
	svc := NewService(&fakeDocRepo{}, newFakeFiles(), zerolog.Nop())

	_, err := svc.Upload(context.Background(), uuid.New(), Type("diploma"), "x.pdf", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestOpenMissingDocument(t *testing.T) {
	svc := NewService(&fakeDocRepo{}, newFakeFiles(), zerolog.Nop())

	_, _, err := svc.Open(context.Background(), uuid.New(), TypeSignedContract)
	require.ErrorIs(t, err, ErrNotFound)
}
