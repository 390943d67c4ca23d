package driving

import (
	"context"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// DocumentService provides document ingestion and lifecycle management.
type DocumentService interface {
	// IngestFile reads, chunks, embeds, and indexes a file from disk.
	IngestFile(ctx context.Context, path string) (*domain.Document, error)

	// IngestContent ingests already-extracted text under the given name.
	IngestContent(ctx context.Context, fileName, content string) (*domain.Document, error)

	// ListDocuments returns all ingested documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document, its chunks, and its vectors.
	DeleteDocument(ctx context.Context, id string) error

	// Reindex rebuilds the vector index from the durable store.
	Reindex(ctx context.Context) error

	// EnsureIndex loads the index snapshot and rebuilds from the store
	// when the snapshot is missing or diverges from the store.
	EnsureIndex(ctx context.Context) error
}
