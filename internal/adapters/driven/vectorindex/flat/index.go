// Package flat provides an exact inner-product vector index adapter.
//
// Vectors are L2-normalized on insert so inner product equals cosine
// similarity. The index keeps every vector in memory alongside a
// bidirectional position<->chunk-ID mapping and persists both to a pair
// of companion files. Deletion rebuilds the whole index from the
// surviving vectors: O(N) in index size, a deliberate tradeoff for a
// single user's local corpus.
package flat

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// filterOverFetch is the multiplier applied to topK when a filter is
// present, so enough raw hits survive post-filtering.
const filterOverFetch = 10

// mappingsSuffix is appended to the index path for the ID mapping file.
const mappingsSuffix = ".mappings"

// Index is an in-memory exact inner-product index with disk persistence.
// Mutations take the write lock and leave the index either fully updated
// or untouched; readers always observe a consistent snapshot.
type Index struct {
	mu        sync.RWMutex
	path      string
	dimension int

	// vectors[i] is the unit-normalized vector at position i.
	vectors [][]float32

	// posToID[i] is the chunk ID at position i; idToPos is its inverse.
	// Invariant: len(vectors) == len(posToID) == len(idToPos).
	posToID []string
	idToPos map[string]int
}

// indexSnapshot is the on-disk format of the vector blob.
type indexSnapshot struct {
	Dimension int
	Vectors   [][]float32
}

// mappingsSnapshot is the on-disk format of the ID mapping file.
type mappingsSnapshot struct {
	PositionToID []string
	IDToPosition map[string]int
}

// New creates a flat index persisting to the given path.
// The parent directory is created if needed.
func New(path string, dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat: %w: dimension %d", domain.ErrInvalidInput, dimension)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("flat: creating index directory: %w", err)
	}

	return &Index{
		path:      path,
		dimension: dimension,
		idToPos:   make(map[string]int),
	}, nil
}

// Dimension returns the configured vector dimensionality.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Count returns the number of vectors currently indexed.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Add normalizes and appends vectors for the given chunk IDs.
// All validation happens before any state changes, so a failed call
// leaves the index untouched.
func (idx *Index) Add(_ context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 || len(vectors) == 0 {
		return fmt.Errorf("flat: %w: empty input", domain.ErrInvalidInput)
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat: %w: %d ids for %d vectors", domain.ErrInvalidInput, len(ids), len(vectors))
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("flat: %w: got %d, want %d", domain.ErrDimensionMismatch, len(v), idx.dimension)
		}
		normalized[i] = normalize(v)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := len(idx.vectors)
	idx.vectors = append(idx.vectors, normalized...)
	for i, id := range ids {
		pos := start + i
		idx.idToPos[id] = pos
		idx.posToID = append(idx.posToID, id)
	}

	logger.Debug("Added %d vectors to index (total: %d)", len(ids), len(idx.vectors))
	return nil
}

// Search returns up to topK hits ordered by descending similarity.
// With a filter it over-fetches raw hits (topK*10, capped at index size)
// so enough matches survive post-filtering.
func (idx *Index) Search(_ context.Context, query []float32, topK int, idFilter map[string]struct{}) ([]domain.SearchHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("flat: %w: query has %d dimensions, want %d", domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("flat: %w: topK %d", domain.ErrInvalidInput, topK)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		logger.Debug("Vector index is empty")
		return []domain.SearchHit{}, nil
	}

	if len(idx.idToPos) != len(idx.posToID) || len(idx.posToID) != len(idx.vectors) {
		return nil, fmt.Errorf("flat: %w: %d vectors, %d positions, %d ids",
			domain.ErrIndexCorrupt, len(idx.vectors), len(idx.posToID), len(idx.idToPos))
	}

	q := normalize(query)

	searchK := topK
	if idFilter != nil {
		searchK = topK * filterOverFetch
		if searchK > len(idx.vectors) {
			searchK = len(idx.vectors)
		}
	}

	scores := make([]float64, len(idx.vectors))
	for i, v := range idx.vectors {
		scores[i] = dot(q, v)
	}

	// Stable argsort keeps ties in insertion order.
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	hits := make([]domain.SearchHit, 0, topK)
	for rank := 0; rank < searchK && rank < len(order); rank++ {
		pos := order[rank]

		id := idx.posToID[pos]
		if id == "" {
			// Position with no live ID, can occur only transiently.
			continue
		}
		if idFilter != nil {
			if _, ok := idFilter[id]; !ok {
				continue
			}
		}

		hits = append(hits, domain.SearchHit{ChunkID: id, Similarity: scores[pos]})
		if len(hits) >= topK {
			break
		}
	}

	return hits, nil
}

// Remove drops vectors for the given chunk IDs by rebuilding the index
// from the surviving vectors. Positions are reassigned densely 0..M-1.
func (idx *Index) Remove(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	removing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		removing[id] = struct{}{}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	found := false
	for _, id := range ids {
		if _, ok := idx.idToPos[id]; ok {
			found = true
			break
		}
	}
	if !found {
		logger.Debug("No vectors found to remove from %d requested", len(ids))
		return nil
	}

	logger.Info("Removing vectors from index, rebuilding %d entries", len(idx.vectors))

	// Build the replacement wholesale, then swap it in.
	keptVectors := make([][]float32, 0, len(idx.vectors))
	keptIDs := make([]string, 0, len(idx.posToID))
	for pos, id := range idx.posToID {
		if _, gone := removing[id]; gone {
			continue
		}
		keptVectors = append(keptVectors, idx.vectors[pos])
		keptIDs = append(keptIDs, id)
	}

	idToPos := make(map[string]int, len(keptIDs))
	for pos, id := range keptIDs {
		idToPos[id] = pos
	}

	idx.vectors = keptVectors
	idx.posToID = keptIDs
	idx.idToPos = idToPos

	logger.Debug("Rebuilt index with %d vectors", len(keptIDs))
	return nil
}

// Rebuild replaces the entire index with vectors from the given chunks,
// skipping chunks without embeddings, then persists the result.
func (idx *Index) Rebuild(ctx context.Context, chunks []domain.Chunk) error {
	ids := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			continue
		}
		if len(chunk.Embedding) != idx.dimension {
			logger.Warn("Skipping chunk %s: embedding has %d dimensions, want %d",
				chunk.ID, len(chunk.Embedding), idx.dimension)
			continue
		}
		ids = append(ids, chunk.ID)
		vectors = append(vectors, chunk.Embedding)
	}

	idx.Clear()

	if len(ids) > 0 {
		if err := idx.Add(ctx, ids, vectors); err != nil {
			return fmt.Errorf("flat: rebuild: %w", err)
		}
	}

	if err := idx.Save(); err != nil {
		return fmt.Errorf("flat: rebuild: %w", err)
	}

	logger.Info("Rebuilt index from store with %d vectors", len(ids))
	return nil
}

// Save persists the vector blob and the ID mappings to their companion
// files. Both are written on every call.
func (idx *Index) Save() error {
	idx.mu.RLock()
	snapshot := indexSnapshot{Dimension: idx.dimension, Vectors: idx.vectors}
	mappings := mappingsSnapshot{PositionToID: idx.posToID, IDToPosition: idx.idToPos}
	idx.mu.RUnlock()

	if err := writeGob(idx.path, snapshot); err != nil {
		return fmt.Errorf("flat: saving index: %w", err)
	}
	if err := writeGob(idx.path+mappingsSuffix, mappings); err != nil {
		return fmt.Errorf("flat: saving mappings: %w", err)
	}

	logger.Debug("Saved index to %s (%d vectors)", idx.path, len(snapshot.Vectors))
	return nil
}

// Load restores the index from disk. Missing files are not an error; the
// index starts empty. Any other failure resets the index to empty before
// returning, so a partially-loaded state is never observable.
func (idx *Index) Load() error {
	var snapshot indexSnapshot
	if err := readGob(idx.path, &snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("No existing index at %s", idx.path)
			return nil
		}
		idx.Clear()
		return fmt.Errorf("flat: %w: loading index: %v", domain.ErrIndexCorrupt, err)
	}

	var mappings mappingsSnapshot
	if err := readGob(idx.path+mappingsSuffix, &mappings); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Index blob without mappings is unusable; start empty.
			logger.Warn("Index mappings missing at %s, starting empty", idx.path+mappingsSuffix)
			idx.Clear()
			return nil
		}
		idx.Clear()
		return fmt.Errorf("flat: %w: loading mappings: %v", domain.ErrIndexCorrupt, err)
	}

	if snapshot.Dimension != idx.dimension {
		idx.Clear()
		return fmt.Errorf("flat: %w: snapshot dimension %d, want %d",
			domain.ErrDimensionMismatch, snapshot.Dimension, idx.dimension)
	}
	if len(snapshot.Vectors) != len(mappings.PositionToID) ||
		len(mappings.PositionToID) != len(mappings.IDToPosition) {
		idx.Clear()
		return fmt.Errorf("flat: %w: %d vectors, %d positions, %d ids",
			domain.ErrIndexCorrupt, len(snapshot.Vectors), len(mappings.PositionToID), len(mappings.IDToPosition))
	}

	idx.mu.Lock()
	idx.vectors = snapshot.Vectors
	idx.posToID = mappings.PositionToID
	idToPos := mappings.IDToPosition
	if idToPos == nil {
		idToPos = make(map[string]int)
	}
	idx.idToPos = idToPos
	idx.mu.Unlock()

	logger.Info("Loaded index from %s (%d vectors)", idx.path, len(snapshot.Vectors))
	return nil
}

// Clear resets to an empty index of the same dimension.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = nil
	idx.posToID = nil
	idx.idToPos = make(map[string]int)
}

// Close persists the current state and releases resources.
func (idx *Index) Close() error {
	return idx.Save()
}

// normalize returns a unit-L2-norm copy of v. A zero vector is returned
// as a zero-valued copy rather than dividing by zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}

	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// writeGob encodes v to path.
func writeGob(path string, v any) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readGob decodes path into v.
func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewDecoder(f).Decode(v)
}
