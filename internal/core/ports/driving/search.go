package driving

import (
	"context"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// SearchService provides semantic retrieval to external actors.
type SearchService interface {
	// Search embeds the query, searches the vector index (falling back to
	// a brute-force scan when the index fails), applies the threshold, and
	// returns at most TopK hits ordered by descending similarity.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}
