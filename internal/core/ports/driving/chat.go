package driving

import (
	"context"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// ChatTurn is the outcome of one generated assistant response.
type ChatTurn struct {
	// Response is the assistant's reply text.
	Response string

	// Sources are the citation records that grounded the reply.
	Sources []domain.ChatSource

	// Model is the language model that produced the reply.
	Model string
}

// ChatService provides RAG-grounded conversation to external actors.
type ChatService interface {
	// CreateChat creates a chat, optionally linking documents to it.
	CreateChat(ctx context.Context, title string, documentIDs []string) (*domain.Chat, error)

	// GetChat returns a chat with its messages.
	GetChat(ctx context.Context, id string) (*domain.Chat, []domain.Message, error)

	// ListChats returns all chats.
	ListChats(ctx context.Context) ([]domain.Chat, error)

	// DeleteChat removes a chat and its messages.
	DeleteChat(ctx context.Context, id string) error

	// LinkDocument scopes a chat's retrieval to include the document.
	LinkDocument(ctx context.Context, chatID, documentID string) error

	// UnlinkDocument removes a document from a chat's retrieval scope.
	UnlinkDocument(ctx context.Context, chatID, documentID string) error

	// GenerateResponse retrieves grounding context for the user message,
	// calls the language model, and persists both turns. Returns
	// domain.ErrNoRelevantContext when nothing usable was retrieved.
	GenerateResponse(ctx context.Context, chatID, userMessage, model string) (*ChatTurn, error)
}
