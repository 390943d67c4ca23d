package driven

import "context"

// Model categories understood by the catalog.
const (
	ModelCategoryChat      = "chat"
	ModelCategoryEmbedding = "embedding"
)

// ModelInfo describes a model known to the catalog.
type ModelInfo struct {
	// Name is the model identifier (e.g. "llama3.2:latest").
	Name string

	// Category is ModelCategoryChat or ModelCategoryEmbedding.
	Category string

	// SizeBytes is the on-disk model size, when known.
	SizeBytes int64

	// ParameterSize is the human-readable parameter count (e.g. "3B").
	ParameterSize string
}

// ModelCatalog discovers available models. It is a swappable
// collaborator; the default implementation queries the local Ollama API.
type ModelCatalog interface {
	// Search returns models matching the query substring and category.
	// Empty query or category means "any".
	Search(ctx context.Context, query, category string) ([]ModelInfo, error)
}
