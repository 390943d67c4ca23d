package domain

import (
	"strings"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxTitleLength bounds chat titles derived from the first message.
const MaxTitleLength = 50

// Chat represents a conversation session. Documents are linked to a chat
// to scope retrieval for its responses.
type Chat struct {
	// ID is the unique identifier for the chat.
	ID string

	// Title is a short human-readable label, derived from the first message.
	Title string

	// CreatedAt is when the chat was created.
	CreatedAt time.Time

	// UpdatedAt is when the chat last received a message.
	UpdatedAt time.Time
}

// Message is a single turn in a chat. Assistant messages carry the
// sources that grounded them.
type Message struct {
	// ID is the unique identifier for the message.
	ID string

	// ChatID links to the owning Chat.
	ChatID string

	// Role is one of RoleSystem, RoleUser, RoleAssistant.
	Role string

	// Content is the message text.
	Content string

	// Model is the language model that produced an assistant message.
	Model string

	// Sources are the citation records for an assistant message.
	Sources []ChatSource

	// CreatedAt is when the message was stored.
	CreatedAt time.Time
}

// ChatSource is a citation record persisted alongside an assistant
// message. Created at response-generation time, never mutated.
type ChatSource struct {
	// DocumentID is the cited document.
	DocumentID string

	// ChunkID is the cited chunk.
	ChunkID string

	// FileName is the cited document's display name.
	FileName string

	// Ordinal is the chunk's position within the document.
	Ordinal int

	// Similarity is the retrieval similarity score.
	Similarity float64

	// QualityScore is the content-quality score the ranker assigned.
	QualityScore float64

	// Excerpt is the first 200 characters of the chunk text.
	Excerpt string
}

// TitleFromMessage derives a chat title from the first user message,
// truncated to MaxTitleLength.
func TitleFromMessage(message string) string {
	title := []rune(strings.TrimSpace(message))
	if len(title) > MaxTitleLength {
		return string(title[:MaxTitleLength-3]) + "..."
	}
	return string(title)
}

// Excerpt returns the first n characters of text with an ellipsis when
// truncation occurred. Truncation is rune-aware so multibyte text is
// never split mid-character.
func Excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
