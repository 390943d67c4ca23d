package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bruncanepa/murmur-brain/internal/chunker"
	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driving"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultEmbedRate limits embedding calls per second to avoid
// saturating a local model server during bulk ingestion.
const DefaultEmbedRate = 10

// supportedExtensions are the file types ingestion accepts.
var supportedExtensions = map[string]struct{}{
	".txt": {},
	".md":  {},
}

// DocumentService handles document ingestion and lifecycle: chunking,
// embedding, durable storage, and keeping the vector index in sync.
type DocumentService struct {
	docStore driven.DocumentStore
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	splitter *chunker.Chunker
	limiter  *rate.Limiter
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	splitter *chunker.Chunker,
) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		embedder: embedder,
		index:    index,
		splitter: splitter,
		limiter:  rate.NewLimiter(rate.Limit(DefaultEmbedRate), 1),
	}
}

// SetEmbedRate overrides the embedding calls-per-second limit.
func (s *DocumentService) SetEmbedRate(perSecond float64) {
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// IngestFile reads a file from disk and ingests its content.
func (s *DocumentService) IngestFile(ctx context.Context, path string) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedExtensions[ext]; !ok {
		return nil, fmt.Errorf("file type %q: %w", ext, domain.ErrUnsupportedType)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return s.IngestContent(ctx, filepath.Base(path), string(data))
}

// IngestContent chunks, embeds, stores, and indexes the given text.
func (s *DocumentService) IngestContent(ctx context.Context, fileName, content string) (*domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("document content: %w", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.New().String(),
		FileName:  fileName,
		FileType:  strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."),
		SizeBytes: int64(len(content)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	chunks := s.splitter.Split(doc.ID, content)
	logger.Info("Ingesting %s: %d chunks", fileName, len(chunks))

	for i := range chunks {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limit: %w", err)
		}
		embedding, err := s.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d of %s: %w", i, fileName, err)
		}
		chunks[i].Embedding = embedding
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		// Roll the document row back so a failed ingest leaves no trace.
		if delErr := s.docStore.DeleteDocument(ctx, doc.ID); delErr != nil {
			logger.Warn("Failed to remove document %s after chunk save failure: %v", doc.ID, delErr)
		}
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vectors[i] = c.Embedding
	}
	if err := s.index.Add(ctx, ids, vectors); err != nil {
		return nil, fmt.Errorf("index document: %w", err)
	}
	if err := s.index.Save(); err != nil {
		logger.Warn("Failed to persist index after ingest: %v", err)
	}

	logger.Info("Ingested %s (%s)", fileName, doc.ID)
	return doc, nil
}

// ListDocuments returns all ingested documents.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// DeleteDocument removes a document, its chunks, and its index vectors.
func (s *DocumentService) DeleteDocument(ctx context.Context, id string) error {
	chunks, err := s.docStore.GetChunks(ctx, id)
	if err != nil {
		return fmt.Errorf("load document chunks: %w", err)
	}

	if err := s.docStore.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if len(chunks) > 0 {
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		if err := s.index.Remove(ctx, ids); err != nil {
			return fmt.Errorf("remove document vectors: %w", err)
		}
		if err := s.index.Save(); err != nil {
			logger.Warn("Failed to persist index after delete: %v", err)
		}
	}

	logger.Info("Deleted document %s (%d chunks)", id, len(chunks))
	return nil
}

// Reindex rebuilds the vector index from all embedded chunks in the
// durable store.
func (s *DocumentService) Reindex(ctx context.Context) error {
	chunks, err := s.docStore.GetEmbeddedChunks(ctx, nil)
	if err != nil {
		return fmt.Errorf("load embedded chunks: %w", err)
	}

	if err := s.index.Rebuild(ctx, chunks); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	logger.Info("Reindexed %d chunks", s.index.Count())
	return nil
}

// EnsureIndex loads the index snapshot and falls back to a full rebuild
// when the snapshot is missing, corrupt, or out of step with the store.
func (s *DocumentService) EnsureIndex(ctx context.Context) error {
	if err := s.index.Load(); err != nil {
		logger.Warn("Index snapshot unusable (%v), rebuilding from store", err)
		return s.Reindex(ctx)
	}

	stored, err := s.docStore.CountEmbeddedChunks(ctx)
	if err != nil {
		return fmt.Errorf("count embedded chunks: %w", err)
	}
	if stored != s.index.Count() {
		logger.Warn("Index has %d vectors but store has %d embedded chunks, rebuilding", s.index.Count(), stored)
		return s.Reindex(ctx)
	}

	logger.Debug("Index ready with %d vectors", s.index.Count())
	return nil
}
