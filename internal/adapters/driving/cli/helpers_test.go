package cli

import (
	"context"
	"time"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driving"
)

// setupTestServices swaps the package services for mocks and returns a
// cleanup function restoring the originals.
func setupTestServices() func() {
	oldDocument := documentService
	oldSearch := searchService
	oldChat := chatService
	oldCatalog := modelCatalog

	documentService = &mockDocumentService{}
	searchService = &mockSearchService{}
	chatService = &mockChatService{}
	modelCatalog = &mockModelCatalog{}

	return func() {
		documentService = oldDocument
		searchService = oldSearch
		chatService = oldChat
		modelCatalog = oldCatalog
	}
}

type mockSearchService struct {
	lastReq domain.SearchRequest
	err     error
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SearchResponse{
		Results: []domain.SearchResult{
			{
				ChunkID:    "chunk-1",
				DocumentID: "doc-1",
				Ordinal:    0,
				Text:       "Photosynthesis converts light into chemical energy.",
				Similarity: 0.91,
				Document:   domain.Document{ID: "doc-1", FileName: "biology.md"},
			},
		},
		TotalCandidates:     3,
		TotalAboveThreshold: 1,
		Returned:            1,
	}, nil
}

type mockDocumentService struct {
	deleted []string
	err     error
}

func (m *mockDocumentService) IngestFile(_ context.Context, path string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{ID: "doc-new", FileName: "notes.md", SizeBytes: 42}, nil
}

func (m *mockDocumentService) IngestContent(_ context.Context, fileName, _ string) (*domain.Document, error) {
	return &domain.Document{ID: "doc-new", FileName: fileName}, nil
}

func (m *mockDocumentService) ListDocuments(context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Document{
		{ID: "doc-1", FileName: "biology.md", SizeBytes: 1200, CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "doc-2", FileName: "physics.txt", SizeBytes: 800, CreatedAt: time.Date(2025, 3, 2, 11, 0, 0, 0, time.UTC)},
	}, nil
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockDocumentService) Reindex(context.Context) error     { return m.err }
func (m *mockDocumentService) EnsureIndex(context.Context) error { return m.err }

type mockChatService struct {
	created     []string
	deleted     []string
	lastMessage string
	lastModel   string
	err         error
}

func (m *mockChatService) CreateChat(_ context.Context, title string, documentIDs []string) (*domain.Chat, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, "chat-1")
	return &domain.Chat{ID: "chat-1", Title: title}, nil
}

func (m *mockChatService) GetChat(_ context.Context, id string) (*domain.Chat, []domain.Message, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	chat := &domain.Chat{ID: id, Title: "Photosynthesis basics"}
	messages := []domain.Message{
		{ID: "m1", ChatID: id, Role: domain.RoleUser, Content: "What is photosynthesis?"},
		{ID: "m2", ChatID: id, Role: domain.RoleAssistant, Content: "According to Source 1, it converts light into energy.",
			Sources: []domain.ChatSource{{FileName: "biology.md", Similarity: 0.91}}},
	}
	return chat, messages, nil
}

func (m *mockChatService) ListChats(context.Context) ([]domain.Chat, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Chat{{ID: "chat-1", Title: "Photosynthesis basics", UpdatedAt: time.Now()}}, nil
}

func (m *mockChatService) DeleteChat(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockChatService) LinkDocument(context.Context, string, string) error   { return m.err }
func (m *mockChatService) UnlinkDocument(context.Context, string, string) error { return m.err }

func (m *mockChatService) GenerateResponse(_ context.Context, chatID, userMessage, model string) (*driving.ChatTurn, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastMessage = userMessage
	m.lastModel = model
	return &driving.ChatTurn{
		Response: "According to Source 1, chlorophyll absorbs light.",
		Sources:  []domain.ChatSource{{FileName: "biology.md", Similarity: 0.91}},
		Model:    "llama3.2",
	}, nil
}

type mockModelCatalog struct {
	err error
}

func (m *mockModelCatalog) Search(_ context.Context, query, category string) ([]driven.ModelInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	models := []driven.ModelInfo{
		{Name: "llama3.2:latest", Category: driven.ModelCategoryChat, ParameterSize: "3B"},
		{Name: "nomic-embed-text:latest", Category: driven.ModelCategoryEmbedding, ParameterSize: "137M"},
	}
	var out []driven.ModelInfo
	for _, model := range models {
		if category != "" && model.Category != category {
			continue
		}
		out = append(out, model)
	}
	return out, nil
}
