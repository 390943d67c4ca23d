package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driving"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultContextLimit is the number of chunks handed to the prompt.
const DefaultContextLimit = 5

// excerptLength bounds the chunk excerpt stored with each citation.
const excerptLength = 200

// historyWindow is how many prior messages are replayed into the prompt.
const historyWindow = 10

// systemPrompt instructs the model to ground its answers in the
// retrieved context.
const systemPrompt = `You are a helpful AI assistant that answers questions based on provided document context.

Your task:
1. Carefully read the context from the user's documents
2. Answer the question using ONLY information from the provided context
3. If the context doesn't contain enough information to answer, say so
4. Be concise and accurate
5. Cite which sources you used when relevant (e.g. "According to Source 1...")

Important:
- Do not make up information not in the context
- If multiple sources conflict, mention the discrepancy
- Keep responses clear and well-formatted`

// ChatService provides RAG-grounded conversation: it retrieves context
// from a chat's linked documents, ranks it for quality, and conditions
// the language model's reply on it.
type ChatService struct {
	chatStore    driven.ChatStore
	retriever    driving.SearchService
	ranker       *ContextRanker
	llm          driven.LLMService
	policy       ThresholdPolicy
	contextLimit int
}

// NewChatService creates a new chat service.
func NewChatService(
	chatStore driven.ChatStore,
	retriever driving.SearchService,
	ranker *ContextRanker,
	llm driven.LLMService,
) *ChatService {
	return &ChatService{
		chatStore:    chatStore,
		retriever:    retriever,
		ranker:       ranker,
		llm:          llm,
		policy:       DefaultThresholdPolicy(),
		contextLimit: DefaultContextLimit,
	}
}

// SetThresholdPolicy overrides the adaptive threshold breakpoints.
func (s *ChatService) SetThresholdPolicy(p ThresholdPolicy) {
	s.policy = p
}

// SetContextLimit overrides the number of context chunks per prompt.
func (s *ChatService) SetContextLimit(n int) {
	if n > 0 {
		s.contextLimit = n
	}
}

// CreateChat creates a chat, optionally linking documents to it.
func (s *ChatService) CreateChat(ctx context.Context, title string, documentIDs []string) (*domain.Chat, error) {
	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.chatStore.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	for _, docID := range documentIDs {
		if err := s.chatStore.LinkDocument(ctx, chat.ID, docID); err != nil {
			logger.Warn("Failed to link document %s to chat %s: %v", docID, chat.ID, err)
		}
	}

	return chat, nil
}

// GetChat returns a chat with its messages.
func (s *ChatService) GetChat(ctx context.Context, id string) (*domain.Chat, []domain.Message, error) {
	chat, err := s.chatStore.GetChat(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get chat: %w", err)
	}

	messages, err := s.chatStore.GetMessages(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get chat messages: %w", err)
	}

	return chat, messages, nil
}

// ListChats returns all chats.
func (s *ChatService) ListChats(ctx context.Context) ([]domain.Chat, error) {
	return s.chatStore.ListChats(ctx)
}

// DeleteChat removes a chat and its messages.
func (s *ChatService) DeleteChat(ctx context.Context, id string) error {
	return s.chatStore.DeleteChat(ctx, id)
}

// LinkDocument scopes a chat's retrieval to include the document.
func (s *ChatService) LinkDocument(ctx context.Context, chatID, documentID string) error {
	return s.chatStore.LinkDocument(ctx, chatID, documentID)
}

// UnlinkDocument removes a document from a chat's retrieval scope.
func (s *ChatService) UnlinkDocument(ctx context.Context, chatID, documentID string) error {
	return s.chatStore.UnlinkDocument(ctx, chatID, documentID)
}

// GenerateResponse retrieves grounding context for the user message,
// calls the language model, and persists both turns with citations.
func (s *ChatService) GenerateResponse(ctx context.Context, chatID, userMessage, model string) (*driving.ChatTurn, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("chat message: %w", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	if _, err := s.chatStore.GetChat(ctx, chatID); err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}

	history, err := s.chatStore.GetMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load conversation history: %w", err)
	}

	contextText, sources, err := s.buildContext(ctx, chatID, userMessage)
	if err != nil {
		return nil, err
	}

	messages := s.buildPrompt(contextText, userMessage, history)

	if model == "" {
		model = s.llm.ModelName()
	}
	response, err := s.llm.Chat(ctx, messages, driven.ChatOptions{Model: model})
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("generate response: %w: empty reply", domain.ErrLLMUnavailable)
	}

	now := time.Now().UTC()
	userMsg := &domain.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      domain.RoleUser,
		Content:   userMessage,
		CreatedAt: now,
	}
	if err := s.chatStore.SaveMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	assistantMsg := &domain.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      domain.RoleAssistant,
		Content:   response,
		Model:     model,
		Sources:   sources,
		CreatedAt: now,
	}
	if err := s.chatStore.SaveMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}

	// First exchange names the chat.
	if len(history) == 0 {
		title := domain.TitleFromMessage(userMessage)
		if err := s.chatStore.UpdateChatTitle(ctx, chatID, title); err != nil {
			logger.Warn("Failed to update chat title: %v", err)
		}
	}

	return &driving.ChatTurn{
		Response: response,
		Sources:  sources,
		Model:    model,
	}, nil
}

// buildContext retrieves and ranks chunks from the chat's linked
// documents, returning a formatted context block and citation records.
// Returns domain.ErrNoRelevantContext when nothing usable exists.
func (s *ChatService) buildContext(ctx context.Context, chatID, query string) (string, []domain.ChatSource, error) {
	docIDs, err := s.chatStore.GetChatDocumentIDs(ctx, chatID)
	if err != nil {
		return "", nil, fmt.Errorf("get linked documents: %w", err)
	}
	if len(docIDs) == 0 {
		return "", nil, domain.ErrNoRelevantContext
	}

	threshold := s.policy.ThresholdFor(query)
	logger.Debug("Adaptive threshold: %.2f for query %q", threshold, query)

	// Over-fetch candidates; the quality ranker discards some.
	resp, err := s.retriever.Search(ctx, domain.SearchRequest{
		Query:       query,
		TopK:        s.contextLimit * candidateOverFetch,
		Threshold:   threshold,
		DocumentIDs: docIDs,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", nil, domain.ErrNoRelevantContext
	}

	candidates := make([]domain.RankedResult, len(resp.Results))
	for i, r := range resp.Results {
		candidates[i] = domain.RankedResult{
			Chunk: domain.Chunk{
				ID:         r.ChunkID,
				DocumentID: r.DocumentID,
				Ordinal:    r.Ordinal,
				Text:       r.Text,
			},
			Document:   r.Document,
			Similarity: r.Similarity,
		}
	}

	ranked := s.ranker.Rank(candidates, s.contextLimit)
	if len(ranked) == 0 {
		return "", nil, domain.ErrNoRelevantContext
	}

	var b strings.Builder
	sources := make([]domain.ChatSource, 0, len(ranked))
	for i, r := range ranked {
		fmt.Fprintf(&b, "[Source %d: %s (Relevance: %.0f%%)]\n%s\n\n",
			i+1, r.Document.FileName, r.Similarity*100, r.Chunk.Text)

		sources = append(sources, domain.ChatSource{
			DocumentID:   r.Document.ID,
			ChunkID:      r.Chunk.ID,
			FileName:     r.Document.FileName,
			Ordinal:      r.Chunk.Ordinal,
			Similarity:   r.Similarity,
			QualityScore: r.QualityScore,
			Excerpt:      domain.Excerpt(r.Chunk.Text, excerptLength),
		})
	}

	avg := 0.0
	for _, r := range ranked {
		avg += r.Similarity
	}
	logger.Info("RAG context: %d chunks, avg similarity %.2f", len(ranked), avg/float64(len(ranked)))

	return b.String(), sources, nil
}

// buildPrompt assembles the system instruction, recent history, and the
// context-wrapped user message.
func (s *ChatService) buildPrompt(contextText, userMessage string, history []domain.Message) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, historyWindow+2)
	messages = append(messages, driven.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	for _, msg := range recent {
		messages = append(messages, driven.ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	userPrompt := fmt.Sprintf(`Context from documents:

%s
---

Question: %s

Please answer based on the context provided above.`, contextText, userMessage)

	messages = append(messages, driven.ChatMessage{Role: domain.RoleUser, Content: userPrompt})
	return messages
}
