package flat

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

func newTestIndex(t *testing.T, dimension int) *Index {
	t.Helper()
	idx, err := New(filepath.Join(t.TempDir(), "brain.index"), dimension)
	require.NoError(t, err)
	return idx
}

func TestAdd_Validation(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	tests := []struct {
		name    string
		ids     []string
		vectors [][]float32
		wantErr error
	}{
		{
			name:    "empty input",
			ids:     nil,
			vectors: nil,
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "length mismatch",
			ids:     []string{"a", "b"},
			vectors: [][]float32{{1, 0, 0}},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "dimension mismatch",
			ids:     []string{"a"},
			vectors: [][]float32{{1, 0}},
			wantErr: domain.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := idx.Add(ctx, tt.ids, tt.vectors)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, idx.Count(), "failed add must not mutate the index")
		})
	}
}

func TestAdd_NormalizesVectors(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	// Deliberately unnormalized input.
	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{3, 4, 0}}))

	for _, v := range idx.vectors {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	}

	// Searching with the same vector yields similarity ~1 against itself.
	hits, err := idx.Search(ctx, []float32{3, 4, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-5)
}

func TestSearch_OrderingAndTopK(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]string{"chunk_a", "chunk_b", "chunk_c"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
	))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "chunk_a", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
	assert.Equal(t, "chunk_c", hits[1].ChunkID)
	assert.InDelta(t, 0.9939, hits[1].Similarity, 1e-3)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t, 3)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_Filter(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0.8, 0.2, 0}},
	))

	filter := map[string]struct{}{"c": {}}
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2, filter)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].ChunkID)
}

func TestRemove_RebuildsDensely(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]string{"chunk_a", "chunk_b", "chunk_c"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
	))

	require.NoError(t, idx.Remove(ctx, []string{"chunk_a"}))

	// Count drops by exactly one and the removed ID never comes back.
	assert.Equal(t, 2, idx.Count())
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.NotEqual(t, "chunk_a", hit.ChunkID)
	}

	// Bijection invariant: dense positions 0..count-1 with no gaps.
	assert.Len(t, idx.idToPos, 2)
	assert.Len(t, idx.posToID, 2)
	for pos, id := range idx.posToID {
		assert.Equal(t, pos, idx.idToPos[id])
	}
}

func TestRemove_UnknownIDsAreNoOp(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}))
	require.NoError(t, idx.Remove(ctx, []string{"missing"}))
	assert.Equal(t, 1, idx.Count())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.index")
	idx, err := New(path, 3)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
	))

	query := []float32{0.7, 0.3, 0}
	before, err := idx.Search(ctx, query, 3, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Save())
	idx.Clear()
	assert.Equal(t, 0, idx.Count())

	require.NoError(t, idx.Load())
	assert.Equal(t, 3, idx.Count())

	after, err := idx.Search(ctx, query, 3, nil)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ChunkID, after[i].ChunkID)
		assert.InDelta(t, before[i].Similarity, after[i].Similarity, 1e-4)
	}
}

func TestLoad_MissingFilesStartEmpty(t *testing.T) {
	idx := newTestIndex(t, 3)

	require.NoError(t, idx.Load())
	assert.Equal(t, 0, idx.Count())
}

func TestLoad_GarbageSnapshotReportsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.index")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0600))
	require.NoError(t, os.WriteFile(path+".mappings", []byte("junk"), 0600))

	idx, err := New(path, 3)
	require.NoError(t, err)

	err = idx.Load()
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Equal(t, 0, idx.Count())
}

func TestLoad_TruncatedMappingsReportsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.index")
	idx, err := New(path, 3)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}))
	require.NoError(t, idx.Save())
	require.NoError(t, os.WriteFile(path+".mappings", []byte{0x01}, 0600))

	err = idx.Load()
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Equal(t, 0, idx.Count())
}

func TestRebuild(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "a", Embedding: []float32{1, 0, 0}},
		{ID: "no-embedding"},
		{ID: "b", Embedding: []float32{0, 1, 0}},
		{ID: "wrong-dim", Embedding: []float32{1, 0}},
	}

	require.NoError(t, idx.Rebuild(ctx, chunks))
	assert.Equal(t, 2, idx.Count())

	// Rebuild persisted: a fresh index at the same path loads it.
	fresh, err := New(idx.path, 3)
	require.NoError(t, err)
	require.NoError(t, fresh.Load())
	assert.Equal(t, 2, fresh.Count())
}

func TestClear(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}))
	idx.Clear()

	assert.Equal(t, 0, idx.Count())
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
