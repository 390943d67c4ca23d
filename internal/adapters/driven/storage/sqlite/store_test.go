package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "brain-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// createTestDocument creates a test document to satisfy foreign key constraints.
func createTestDocument(t *testing.T, store *Store, docID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:        docID,
		FileName:  docID + ".txt",
		FileType:  "txt",
		SizeBytes: 100,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))
}

func createTestChat(t *testing.T, store *Store, chatID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	chat := &domain.Chat{ID: chatID, Title: "Chat " + chatID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.ChatStore().CreateChat(ctx, chat))
}

// ==================== Store Creation Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
	assert.Equal(t, "brain.db", filepath.Base(store.Path()))
}

func TestNewStore_MigrationsIdempotent(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "brain-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must re-run migrations without error.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

// ==================== Document Store Tests ====================

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createTestDocument(t, store, "doc-1")

	doc, err := store.DocumentStore().GetDocument(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "doc-1.txt", doc.FileName)
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, int64(100), doc.SizeBytes)
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.DocumentStore().GetDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveDocument_Upsert(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docStore := store.DocumentStore()

	createTestDocument(t, store, "doc-1")

	doc, err := docStore.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	doc.FileName = "renamed.txt"
	require.NoError(t, docStore.SaveDocument(ctx, doc))

	updated, err := docStore.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", updated.FileName)
}

func TestDocumentStore_ListDocuments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	createTestDocument(t, store, "doc-1")
	createTestDocument(t, store, "doc-2")

	docs, err := store.DocumentStore().ListDocuments(context.Background())

	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDocumentStore_SaveChunks_EmbeddingRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docStore := store.DocumentStore()

	createTestDocument(t, store, "doc-1")

	embedding := []float32{0.1, -0.5, 2.75, 0}
	chunks := []domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", Ordinal: 0, Text: "first chunk", Embedding: embedding},
		{ID: "chunk-2", DocumentID: "doc-1", Ordinal: 1, Text: "second chunk"},
	}
	require.NoError(t, docStore.SaveChunks(ctx, chunks))

	got, err := docStore.GetChunk(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, embedding, got.Embedding)
	assert.Equal(t, "first chunk", got.Text)

	// Chunk without an embedding round-trips as nil.
	bare, err := docStore.GetChunk(ctx, "chunk-2")
	require.NoError(t, err)
	assert.Nil(t, bare.Embedding)
}

func TestDocumentStore_GetChunks_OrderedByOrdinal(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docStore := store.DocumentStore()

	createTestDocument(t, store, "doc-1")
	require.NoError(t, docStore.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-2", DocumentID: "doc-1", Ordinal: 2, Text: "third"},
		{ID: "c-0", DocumentID: "doc-1", Ordinal: 0, Text: "first"},
		{ID: "c-1", DocumentID: "doc-1", Ordinal: 1, Text: "second"},
	}))

	chunks, err := docStore.GetChunks(ctx, "doc-1")

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
	}
}

func TestDocumentStore_GetEmbeddedChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docStore := store.DocumentStore()

	createTestDocument(t, store, "doc-1")
	createTestDocument(t, store, "doc-2")
	require.NoError(t, docStore.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1", Ordinal: 0, Text: "embedded", Embedding: []float32{1}},
		{ID: "c-2", DocumentID: "doc-1", Ordinal: 1, Text: "not embedded"},
	}))
	require.NoError(t, docStore.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-3", DocumentID: "doc-2", Ordinal: 0, Text: "embedded too", Embedding: []float32{2}},
	}))

	all, err := docStore.GetEmbeddedChunks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := docStore.GetEmbeddedChunks(ctx, []string{"doc-2"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "c-3", scoped[0].ID)

	count, err := docStore.CountEmbeddedChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDocumentStore_DeleteDocument_CascadesChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	docStore := store.DocumentStore()

	createTestDocument(t, store, "doc-1")
	require.NoError(t, docStore.SaveChunks(ctx, []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1", Ordinal: 0, Text: "chunk", Embedding: []float32{1}},
	}))

	require.NoError(t, docStore.DeleteDocument(ctx, "doc-1"))

	_, err := docStore.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = docStore.GetChunk(ctx, "c-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteDocument_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.DocumentStore().DeleteDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_ForeignKeyEnforced(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.DocumentStore().SaveChunks(context.Background(), []domain.Chunk{
		{ID: "orphan", DocumentID: "no-such-doc", Ordinal: 0, Text: "orphan"},
	})

	assert.Error(t, err)
}

// ==================== Chat Store Tests ====================

func TestChatStore_CreateAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createTestChat(t, store, "chat-1")

	chat, err := store.ChatStore().GetChat(ctx, "chat-1")

	require.NoError(t, err)
	assert.Equal(t, "Chat chat-1", chat.Title)
}

func TestChatStore_CreateChat_Duplicate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createTestChat(t, store, "chat-1")

	now := time.Now().UTC()
	err := store.ChatStore().CreateChat(ctx, &domain.Chat{ID: "chat-1", CreatedAt: now, UpdatedAt: now})

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestChatStore_UpdateChatTitle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chatStore := store.ChatStore()

	createTestChat(t, store, "chat-1")

	require.NoError(t, chatStore.UpdateChatTitle(ctx, "chat-1", "Renamed"))

	chat, err := chatStore.GetChat(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", chat.Title)

	assert.ErrorIs(t, chatStore.UpdateChatTitle(ctx, "missing", "x"), domain.ErrNotFound)
}

func TestChatStore_LinkDocuments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chatStore := store.ChatStore()

	createTestChat(t, store, "chat-1")
	createTestDocument(t, store, "doc-1")
	createTestDocument(t, store, "doc-2")

	require.NoError(t, chatStore.LinkDocument(ctx, "chat-1", "doc-1"))
	require.NoError(t, chatStore.LinkDocument(ctx, "chat-1", "doc-2"))
	// Linking twice is a no-op.
	require.NoError(t, chatStore.LinkDocument(ctx, "chat-1", "doc-1"))

	ids, err := chatStore.GetChatDocumentIDs(ctx, "chat-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, ids)

	require.NoError(t, chatStore.UnlinkDocument(ctx, "chat-1", "doc-1"))
	ids, err = chatStore.GetChatDocumentIDs(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-2"}, ids)
}

func TestChatStore_SaveAndGetMessages(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chatStore := store.ChatStore()

	createTestChat(t, store, "chat-1")

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, chatStore.SaveMessage(ctx, &domain.Message{
		ID: "msg-1", ChatID: "chat-1", Role: domain.RoleUser,
		Content: "a question", CreatedAt: now,
	}))
	require.NoError(t, chatStore.SaveMessage(ctx, &domain.Message{
		ID: "msg-2", ChatID: "chat-1", Role: domain.RoleAssistant,
		Content: "an answer", Model: "llama3.2",
		Sources: []domain.ChatSource{
			{DocumentID: "doc-1", ChunkID: "c-1", FileName: "a.txt", Similarity: 0.9, QualityScore: 0.8, Excerpt: "..."},
		},
		CreatedAt: now.Add(time.Second),
	}))

	messages, err := chatStore.GetMessages(ctx, "chat-1")

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Empty(t, messages[0].Sources)

	assistant := messages[1]
	assert.Equal(t, "llama3.2", assistant.Model)
	require.Len(t, assistant.Sources, 1)
	assert.Equal(t, "a.txt", assistant.Sources[0].FileName)
	assert.InDelta(t, 0.9, assistant.Sources[0].Similarity, 1e-9)
}

func TestChatStore_DeleteChat_CascadesMessagesAndLinks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chatStore := store.ChatStore()

	createTestChat(t, store, "chat-1")
	createTestDocument(t, store, "doc-1")
	require.NoError(t, chatStore.LinkDocument(ctx, "chat-1", "doc-1"))
	require.NoError(t, chatStore.SaveMessage(ctx, &domain.Message{
		ID: "msg-1", ChatID: "chat-1", Role: domain.RoleUser,
		Content: "hello", CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, chatStore.DeleteChat(ctx, "chat-1"))

	_, err := chatStore.GetChat(ctx, "chat-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	messages, err := chatStore.GetMessages(ctx, "chat-1")
	require.NoError(t, err)
	assert.Empty(t, messages)

	ids, err := chatStore.GetChatDocumentIDs(ctx, "chat-1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChatStore_ListChats_MostRecentFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chatStore := store.ChatStore()

	old := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	recent := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, chatStore.CreateChat(ctx, &domain.Chat{ID: "old", CreatedAt: old, UpdatedAt: old}))
	require.NoError(t, chatStore.CreateChat(ctx, &domain.Chat{ID: "recent", CreatedAt: recent, UpdatedAt: recent}))

	chats, err := chatStore.ListChats(ctx)

	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "recent", chats[0].ID)
	assert.Equal(t, "old", chats[1].ID)
}
