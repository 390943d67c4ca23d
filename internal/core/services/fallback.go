package services

import (
	"math"
	"sort"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// SimilarityFallback is a brute-force cosine-similarity scan over stored
// embeddings. It backs retrieval whenever the vector index is corrupt,
// empty while the store is not, or fails outright, so a search always
// produces a result set.
type SimilarityFallback struct{}

// ScoreAll computes cosine similarity between the query and every
// candidate, sorted by descending score. Candidates with a missing,
// mismatched, or zero-magnitude embedding are skipped rather than
// aborting the scan. The caller applies top-k and threshold.
func (SimilarityFallback) ScoreAll(query []float32, candidates []domain.Chunk) []domain.SearchHit {
	hits := make([]domain.SearchHit, 0, len(candidates))
	skipped := 0

	for _, chunk := range candidates {
		score, ok := cosineSimilarity(query, chunk.Embedding)
		if !ok {
			skipped++
			continue
		}
		hits = append(hits, domain.SearchHit{ChunkID: chunk.ID, Similarity: score})
	}

	if skipped > 0 {
		logger.Warn("Fallback scan skipped %d candidates with unusable embeddings", skipped)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	return hits
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// clamped into [0,1]. Embeddings in practice are non-negative-correlated,
// so negative cosine is floored to zero rather than exposed. The second
// return is false when either vector is empty, mismatched in length, or
// zero-magnitude.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		return 0, false
	}

	similarity := dot / (math.Sqrt(magA) * math.Sqrt(magB))

	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return similarity, true
}
