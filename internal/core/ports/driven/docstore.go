package driven

import (
	"context"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// DocumentStore persists documents and their chunks.
// It is the source of truth for embeddings; the vector index is a
// derived, rebuildable cache over it.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores chunks transactionally. A mid-write failure leaves
	// the store in its prior state.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document. Its chunks cascade.
	DeleteDocument(ctx context.Context, id string) error

	// GetChunk retrieves a chunk by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks returns a document's chunks ordered by ordinal.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetEmbeddedChunks returns all chunks that carry an embedding,
	// optionally restricted to the given document IDs. Ordered by
	// document then ordinal.
	GetEmbeddedChunks(ctx context.Context, documentIDs []string) ([]domain.Chunk, error)

	// CountEmbeddedChunks returns the number of chunks with embeddings.
	CountEmbeddedChunks(ctx context.Context) (int, error)
}
