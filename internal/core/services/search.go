package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driving"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// candidateOverFetch is the multiplier applied to top-k for the primary
// index search, chosen because a later quality filter discards some hits.
const candidateOverFetch = 2

// ThresholdPolicy maps query word counts to similarity thresholds.
// Short queries systematically produce lower absolute cosine similarity
// against long prose chunks, so a fixed threshold would starve them.
// The breakpoints are tuning choices, not correctness requirements.
type ThresholdPolicy struct {
	ShortWords      int
	MediumWords     int
	ShortThreshold  float64
	MediumThreshold float64
	LongThreshold   float64
}

// DefaultThresholdPolicy returns the observed defaults: <=3 words -> 0.25,
// <=6 words -> 0.35, otherwise 0.45.
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		ShortWords:      3,
		MediumWords:     6,
		ShortThreshold:  0.25,
		MediumThreshold: 0.35,
		LongThreshold:   0.45,
	}
}

// ThresholdFor classifies the query by word count and returns the
// matching threshold.
func (p ThresholdPolicy) ThresholdFor(query string) float64 {
	words := len(strings.Fields(query))
	switch {
	case words <= p.ShortWords:
		return p.ShortThreshold
	case words <= p.MediumWords:
		return p.MediumThreshold
	default:
		return p.LongThreshold
	}
}

// SearchService turns a natural-language query plus an optional document
// scope into scored, filtered chunk hits. The vector index is the primary
// path; a brute-force cosine scan over the durable store guarantees a
// result set when the index fails or is suspiciously empty.
type SearchService struct {
	docStore driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	fallback SimilarityFallback
}

// NewSearchService creates a new search service.
func NewSearchService(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
) *SearchService {
	return &SearchService{
		docStore: docStore,
		index:    index,
		embedder: embedder,
	}
}

// Search performs semantic retrieval per the request.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, top_k=%d, threshold=%.2f", req.Query, req.TopK, req.Threshold)

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	queryVector, err := s.embedder.Embed(ctx, strings.TrimSpace(req.Query))
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("generate query embedding: %w: empty vector", domain.ErrEmbeddingUnavailable)
	}
	logger.Debug("Query embedding: %d dimensions", len(queryVector))

	// Resolve the document scope to chunk IDs; index filtering needs
	// chunk IDs, not document IDs. The scoped chunks double as the
	// fallback candidate set.
	var scoped []domain.Chunk
	var idFilter map[string]struct{}
	if len(req.DocumentIDs) > 0 {
		scoped, err = s.docStore.GetEmbeddedChunks(ctx, req.DocumentIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve document scope: %w", err)
		}
		idFilter = make(map[string]struct{}, len(scoped))
		for _, chunk := range scoped {
			idFilter[chunk.ID] = struct{}{}
		}
		logger.Debug("Scope: %d documents -> %d chunks", len(req.DocumentIDs), len(scoped))
	}

	hits, searched, err := s.primarySearch(ctx, queryVector, req.TopK*candidateOverFetch, idFilter)
	if err != nil || s.suspiciouslyEmpty(ctx, hits, idFilter, scoped) {
		if err != nil {
			logger.Warn("Index search failed, falling back to brute-force scan: %v", err)
		} else {
			logger.Warn("Index returned no hits while the store has embeddings, falling back")
		}
		hits, searched, err = s.fallbackSearch(ctx, queryVector, scoped, idFilter)
		if err != nil {
			return nil, err
		}
	}

	aboveThreshold := 0
	results := make([]domain.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Similarity >= req.Threshold {
			aboveThreshold++
			results = append(results, hit)
		}
	}

	if len(results) > req.TopK {
		results = results[:req.TopK]
	}

	hydrated, err := s.hydrate(ctx, results)
	if err != nil {
		return nil, err
	}

	logger.Info("Search complete: %d results from %d candidates", len(hydrated), searched)

	return &domain.SearchResponse{
		Results:             hydrated,
		TotalCandidates:     searched,
		TotalAboveThreshold: aboveThreshold,
		Returned:            len(hydrated),
	}, nil
}

// primarySearch queries the vector index. The second return is the
// number of candidates the index considered.
func (s *SearchService) primarySearch(
	ctx context.Context, query []float32, fetchK int, idFilter map[string]struct{},
) ([]domain.SearchHit, int, error) {
	if s.index == nil {
		return nil, 0, domain.ErrIndexEmpty
	}

	hits, err := s.index.Search(ctx, query, fetchK, idFilter)
	if err != nil {
		return nil, 0, err
	}

	searched := s.index.Count()
	if idFilter != nil && len(idFilter) < searched {
		searched = len(idFilter)
	}
	logger.Debug("Index search: %d hits over %d candidates", len(hits), searched)
	return hits, searched, nil
}

// suspiciouslyEmpty reports whether an empty result set warrants the
// fallback: the index found nothing but the durable store holds
// embeddings the query should have been scored against.
func (s *SearchService) suspiciouslyEmpty(
	ctx context.Context, hits []domain.SearchHit, idFilter map[string]struct{}, scoped []domain.Chunk,
) bool {
	if len(hits) > 0 {
		return false
	}
	if idFilter != nil {
		return len(scoped) > 0
	}

	stored, err := s.docStore.CountEmbeddedChunks(ctx)
	if err != nil {
		logger.Warn("Could not count stored embeddings: %v", err)
		return false
	}
	return stored > 0
}

// fallbackSearch scores every candidate chunk by brute-force cosine
// similarity. This path must succeed before an error reaches the user.
func (s *SearchService) fallbackSearch(
	ctx context.Context, query []float32, scoped []domain.Chunk, idFilter map[string]struct{},
) ([]domain.SearchHit, int, error) {
	candidates := scoped
	if idFilter == nil {
		var err error
		candidates, err = s.docStore.GetEmbeddedChunks(ctx, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("fallback scan: %w", err)
		}
	}

	hits := s.fallback.ScoreAll(query, candidates)
	logger.Info("Fallback scan: %d hits over %d candidates", len(hits), len(candidates))
	return hits, len(candidates), nil
}

// hydrate converts hits to full results with chunk text and document
// metadata. A hit whose chunk or document has vanished is skipped; one
// stale record never aborts the whole search.
func (s *SearchService) hydrate(ctx context.Context, hits []domain.SearchHit) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0, len(hits))
	docs := make(map[string]*domain.Document)

	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Skipping vanished chunk %s", hit.ChunkID)
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}

		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = s.docStore.GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					logger.Debug("Skipping chunk %s of vanished document %s", chunk.ID, chunk.DocumentID)
					continue
				}
				return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
			}
			docs[chunk.DocumentID] = doc
		}

		results = append(results, domain.SearchResult{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Ordinal:    chunk.Ordinal,
			Text:       chunk.Text,
			Similarity: hit.Similarity,
			Document:   *doc,
		})
	}

	return results, nil
}
