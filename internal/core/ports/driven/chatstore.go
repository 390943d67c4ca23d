package driven

import (
	"context"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
)

// ChatStore persists chats, their messages, and their document links.
type ChatStore interface {
	// CreateChat stores a new chat.
	CreateChat(ctx context.Context, chat *domain.Chat) error

	// GetChat retrieves a chat by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetChat(ctx context.Context, id string) (*domain.Chat, error)

	// ListChats returns all chats ordered by most recently updated.
	ListChats(ctx context.Context) ([]domain.Chat, error)

	// DeleteChat removes a chat. Its messages and document links cascade.
	DeleteChat(ctx context.Context, id string) error

	// UpdateChatTitle sets a chat's title.
	UpdateChatTitle(ctx context.Context, id, title string) error

	// LinkDocument associates a document with a chat for retrieval scoping.
	LinkDocument(ctx context.Context, chatID, documentID string) error

	// UnlinkDocument removes a document association.
	UnlinkDocument(ctx context.Context, chatID, documentID string) error

	// GetChatDocumentIDs returns the IDs of documents linked to a chat.
	GetChatDocumentIDs(ctx context.Context, chatID string) ([]string, error)

	// SaveMessage stores a message, including any citation sources.
	SaveMessage(ctx context.Context, msg *domain.Message) error

	// GetMessages returns a chat's messages in chronological order.
	GetMessages(ctx context.Context, chatID string) ([]domain.Message, error)
}
