package domain

import "time"

// Document represents an ingested file with metadata.
// Its text content lives in the chunks derived from it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// FileName is the original file name at ingestion time.
	FileName string

	// FileType is the lowercase extension without the dot (e.g. "md", "txt").
	FileType string

	// SizeBytes is the raw file size at ingestion time.
	SizeBytes int64

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// Chunk represents a bounded span of a document's text.
// It is the unit of embedding and retrieval. Chunks are immutable once
// created and are destroyed when their owning document is deleted.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Ordinal is the zero-based position within the document.
	Ordinal int

	// Text is the chunk's text content.
	Text string

	// Embedding is the vector representation for semantic search.
	// Nil until embedding generation completes.
	Embedding []float32
}

// HasEmbedding reports whether the chunk carries a non-empty embedding.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
