// Package services implements the core business logic behind the driving
// ports: semantic retrieval with brute-force fallback, quality-aware
// context ranking, RAG chat, and document ingestion.
//
// Services receive their collaborators (stores, index, AI clients) via
// constructor injection; nothing in this package reaches for globals.
package services
