package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// mockDocumentService records ingestion and deletion calls.
type mockDocumentService struct {
	mu       sync.Mutex
	docs     []domain.Document
	ingested []string
	deleted  []string
}

func (m *mockDocumentService) IngestFile(_ context.Context, path string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, path)
	return &domain.Document{ID: "doc-" + filepath.Base(path), FileName: filepath.Base(path)}, nil
}

func (m *mockDocumentService) IngestContent(_ context.Context, fileName, _ string) (*domain.Document, error) {
	return &domain.Document{ID: "doc-" + fileName, FileName: fileName}, nil
}

func (m *mockDocumentService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Document(nil), m.docs...), nil
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocumentService) Reindex(context.Context) error     { return nil }
func (m *mockDocumentService) EnsureIndex(context.Context) error { return nil }

func (m *mockDocumentService) ingestedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ingested...)
}

func (m *mockDocumentService) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func TestClassify(t *testing.T) {
	tempDir := t.TempDir()

	existing := filepath.Join(tempDir, "note.md")
	require.NoError(t, os.WriteFile(existing, []byte("content"), 0644))

	subDir := filepath.Join(tempDir, "nested.txt")
	require.NoError(t, os.Mkdir(subDir, 0755))

	tests := []struct {
		name     string
		path     string
		op       fsnotify.Op
		expected changeType
	}{
		{"create supported file", existing, fsnotify.Create, changeUpsert},
		{"write supported file", existing, fsnotify.Write, changeUpsert},
		{"remove supported file", filepath.Join(tempDir, "gone.txt"), fsnotify.Remove, changeDelete},
		{"rename supported file", filepath.Join(tempDir, "gone.md"), fsnotify.Rename, changeDelete},
		{"chmod ignored", existing, fsnotify.Chmod, changeNone},
		{"unsupported extension", filepath.Join(tempDir, "image.png"), fsnotify.Create, changeNone},
		{"hidden file", filepath.Join(tempDir, ".draft.md"), fsnotify.Create, changeNone},
		{"directory with supported suffix", subDir, fsnotify.Create, changeNone},
		{"create of vanished file", filepath.Join(tempDir, "never.txt"), fsnotify.Create, changeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"dir/.hidden.txt", true},
		{".config/notes.md", true},
		{"/a/.b/c.txt", true},
		{"notes.md", false},
		{"dir/notes.md", false},
		{"file.hidden", false},
		{".", false},
		{"..", false},
		{"path/./file.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, isSupported("notes.txt"))
	assert.True(t, isSupported("README.MD"))
	assert.False(t, isSupported("slides.pdf"))
	assert.False(t, isSupported("Makefile"))
}

func TestRun_IngestsNewFiles(t *testing.T) {
	tempDir := t.TempDir()
	docs := &mockDocumentService{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(tempDir, docs, WithDebounce(20*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(tempDir, "fresh.md")
	require.NoError(t, os.WriteFile(target, []byte("new note"), 0644))

	require.Eventually(t, func() bool {
		paths := docs.ingestedPaths()
		return len(paths) == 1 && paths[0] == target
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_SyncsExistingFilesOnStart(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "old.txt"), []byte("existing"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "skip.png"), []byte{1, 2}, 0644))

	// Already-known files are not ingested again.
	docs := &mockDocumentService{docs: []domain.Document{{ID: "doc-1", FileName: "known.md"}}}
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "known.md"), []byte("known"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(tempDir, docs, WithDebounce(20*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(docs.ingestedPaths()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, filepath.Join(tempDir, "old.txt"), docs.ingestedPaths()[0])

	cancel()
	<-done
}

func TestRun_RemovesDeletedFiles(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "doomed.txt")
	require.NoError(t, os.WriteFile(target, []byte("short lived"), 0644))

	docs := &mockDocumentService{docs: []domain.Document{{ID: "doc-42", FileName: "doomed.txt"}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(tempDir, docs, WithDebounce(20*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.Remove(target))

	require.Eventually(t, func() bool {
		ids := docs.deletedIDs()
		return len(ids) == 1 && ids[0] == "doc-42"
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestRun_MissingRoot(t *testing.T) {
	docs := &mockDocumentService{}
	w := New(filepath.Join(t.TempDir(), "absent"), docs)

	err := w.Run(context.Background())
	assert.Error(t, err)
}

func TestRun_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	w := New(path, &mockDocumentService{})
	err := w.Run(context.Background())
	assert.ErrorContains(t, err, "not a directory")
}
