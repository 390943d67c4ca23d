// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): durable stores, the vector index, and the
// Ollama-backed embedding, language-model, and catalog services.
package driven
