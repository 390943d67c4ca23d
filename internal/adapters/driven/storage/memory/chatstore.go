package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bruncanepa/murmur-brain/internal/core/domain"
	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore.
type ChatStore struct {
	mu       sync.RWMutex
	chats    map[string]domain.Chat
	messages map[string][]domain.Message
	docLinks map[string][]string
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		chats:    make(map[string]domain.Chat),
		messages: make(map[string][]domain.Message),
		docLinks: make(map[string][]string),
	}
}

// CreateChat stores a new chat.
func (s *ChatStore) CreateChat(_ context.Context, chat *domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chat.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.chats[chat.ID] = *chat
	return nil
}

// GetChat retrieves a chat by ID.
func (s *ChatStore) GetChat(_ context.Context, id string) (*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chat, nil
}

// ListChats returns all chats, most recently updated first.
func (s *ChatStore) ListChats(_ context.Context) ([]domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Chat, 0, len(s.chats))
	for id := range s.chats {
		result = append(result, s.chats[id])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

// DeleteChat removes a chat with its messages and document links.
func (s *ChatStore) DeleteChat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.chats, id)
	delete(s.messages, id)
	delete(s.docLinks, id)
	return nil
}

// UpdateChatTitle sets a chat's title.
func (s *ChatStore) UpdateChatTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return domain.ErrNotFound
	}
	chat.Title = title
	chat.UpdatedAt = time.Now().UTC()
	s.chats[id] = chat
	return nil
}

// LinkDocument associates a document with a chat.
func (s *ChatStore) LinkDocument(_ context.Context, chatID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chatID]; !ok {
		return domain.ErrNotFound
	}
	for _, id := range s.docLinks[chatID] {
		if id == documentID {
			return nil
		}
	}
	s.docLinks[chatID] = append(s.docLinks[chatID], documentID)
	return nil
}

// UnlinkDocument removes a document association.
func (s *ChatStore) UnlinkDocument(_ context.Context, chatID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := s.docLinks[chatID]
	for i, id := range links {
		if id == documentID {
			s.docLinks[chatID] = append(links[:i], links[i+1:]...)
			return nil
		}
	}
	return nil
}

// GetChatDocumentIDs returns the documents linked to a chat.
func (s *ChatStore) GetChatDocumentIDs(_ context.Context, chatID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	links := s.docLinks[chatID]
	result := make([]string, len(links))
	copy(result, links)
	return result, nil
}

// SaveMessage stores a message and bumps the chat's updated time.
func (s *ChatStore) SaveMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[msg.ChatID]
	if !ok {
		return domain.ErrNotFound
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	chat.UpdatedAt = time.Now().UTC()
	s.chats[msg.ChatID] = chat
	return nil
}

// GetMessages returns a chat's messages in insertion order.
func (s *ChatStore) GetMessages(_ context.Context, chatID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[chatID]
	result := make([]domain.Message, len(msgs))
	copy(result, msgs)
	return result, nil
}
