package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	// Never retried; surfaced immediately to the caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoRelevantContext indicates retrieval legitimately returned zero
	// usable chunks (no linked documents, or everything below threshold).
	// Callers render a "no information found" message rather than an error.
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. Retrieval cannot proceed without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the language model service is not
	// configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrIndexCorrupt indicates the vector index state is inconsistent with
	// its position maps. Recovered by falling back to the brute-force scan.
	ErrIndexCorrupt = errors.New("vector index corrupt")

	// ErrIndexEmpty indicates the vector index holds zero vectors.
	ErrIndexEmpty = errors.New("vector index empty")

	// ErrDimensionMismatch indicates a vector does not match the index's
	// configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedType indicates a file type with no ingestion support.
	ErrUnsupportedType = errors.New("unsupported type")
)
