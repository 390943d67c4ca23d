package domain

import "strings"

// Search parameter bounds enforced by the retriever.
const (
	// MinTopK and MaxTopK bound the number of results a search may request.
	MinTopK = 1
	MaxTopK = 100
)

// SearchRequest holds the parameters for a retrieval call.
type SearchRequest struct {
	// Query is the natural-language query text. Must be non-empty after trimming.
	Query string

	// TopK is the maximum number of results to return (1-100).
	TopK int

	// Threshold is the minimum similarity score (0.0-1.0). Hits below it are dropped.
	Threshold float64

	// DocumentIDs optionally restricts the search to the given documents.
	DocumentIDs []string
}

// Validate checks the request parameters without side effects.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrInvalidInput
	}
	if r.TopK < MinTopK || r.TopK > MaxTopK {
		return ErrInvalidInput
	}
	if r.Threshold < 0.0 || r.Threshold > 1.0 {
		return ErrInvalidInput
	}
	return nil
}

// SearchHit is a raw similarity result produced per query.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1 after normalization).
	Similarity float64
}

// RankedResult is a search hit enriched with a content-quality score.
// CombinedScore = Similarity * QualityScore.
type RankedResult struct {
	Chunk Chunk

	// Document is the owning document, hydrated for citation display.
	Document Document

	Similarity    float64
	QualityScore  float64
	CombinedScore float64
}

// SearchResult is a hydrated hit returned to callers.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Ordinal    int
	Text       string
	Similarity float64

	// Document carries the owning document's metadata.
	Document Document
}

// SearchResponse is the retrieval result set plus bookkeeping counters.
type SearchResponse struct {
	// Results is ordered by descending similarity.
	Results []SearchResult

	// TotalCandidates is the number of candidate chunks considered.
	TotalCandidates int

	// TotalAboveThreshold is the number of candidates that met the threshold.
	TotalAboveThreshold int

	// Returned is len(Results) after top-k truncation.
	Returned int
}
