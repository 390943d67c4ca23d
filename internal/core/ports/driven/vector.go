package driven

import (
	"context"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// VectorIndex provides semantic similarity search over unit-normalized
// embedding vectors keyed by chunk ID.
//
// Mutations (Add, Remove, Clear, Load, Rebuild) must be serialized by the
// implementation so concurrent Search calls observe either the old or the
// new state, never a partial one.
type VectorIndex interface {
	// Add normalizes and appends vectors for the given chunk IDs.
	// Fails on empty input, length mismatch, or dimension mismatch.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Remove drops vectors for the given chunk IDs. The underlying flat
	// structure has no native deletion, so this rebuilds the index from
	// the surviving vectors: O(N) in index size, not in len(ids).
	Remove(ctx context.Context, ids []string) error

	// Search returns up to topK hits ordered by descending similarity.
	// When idFilter is non-nil only chunk IDs present in it are returned;
	// the implementation over-fetches to compensate for post-filtering.
	// An empty index returns an empty slice, not an error.
	Search(ctx context.Context, query []float32, topK int, idFilter map[string]struct{}) ([]domain.SearchHit, error)

	// Rebuild replaces the entire index with vectors decoded from the
	// given chunks, skipping chunks without embeddings, then persists.
	Rebuild(ctx context.Context, chunks []domain.Chunk) error

	// Save persists the index and its ID mappings to disk.
	Save() error

	// Load restores the index from disk. A missing snapshot is not an
	// error; the index simply starts empty.
	Load() error

	// Clear resets to an empty index of the same dimension.
	Clear()

	// Count returns the number of vectors currently indexed.
	Count() int

	// Close releases resources.
	Close() error
}
