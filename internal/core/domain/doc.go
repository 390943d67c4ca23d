// Package domain defines the core business entities for Murmur Brain.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an ingested file and its metadata
//   - Chunk: a bounded span of document text, the unit of embedding and retrieval
//   - SearchHit / RankedResult: transient retrieval scoring records
//   - Chat / Message / ChatSource: conversation entities with citations
//
// All other layers depend on this package; it depends on nothing.
package domain
