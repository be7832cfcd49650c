package chat

import (
	"context"
	"time"

	"github.com/davext/chatgate/providers/ai"
)

// MessageRole is the persisted role vocabulary. It is a superset of the
// generic provider vocabulary: system turns are persisted but never forwarded
// to providers.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is one persisted conversation turn. Role is immutable once
// appended; messages are never reordered or deleted individually — only the
// whole conversation is deleted.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`

	// Provider records which backend produced an assistant turn; empty for
	// user and system turns.
	Provider ai.ProviderID `json:"provider,omitempty"`

	// Files are the attachment references supplied with a user turn.
	Files []ai.Attachment `json:"files,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is the persisted conversation document. Messages are embedded
// as an ordered list so a conversation read is a single fetch.
type Conversation struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Title  string `json:"title"`

	// Provider is the backend used for the most recent assistant turn. It
	// may change between turns (mid-conversation provider switching).
	Provider ai.ProviderID `json:"provider"`

	Messages []Message `json:"messages"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the list-view projection of a conversation: message bodies
// omitted.
type Summary struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Provider  ai.ProviderID `json:"provider"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ConversationStore is the document store contract the Manager persists
// through. Get, Save and Delete are scoped to the owning user so a
// conversation can never be read or mutated by a different caller; lookups
// that miss return ErrNotFound. The store serializes writes per document;
// concurrent sends to one conversation resolve by persistence completion
// order.
type ConversationStore interface {
	Insert(ctx context.Context, conversation *Conversation) error
	Get(ctx context.Context, id, userID string) (*Conversation, error)
	Save(ctx context.Context, conversation *Conversation) error
	List(ctx context.Context, userID string, limit int) ([]Summary, error)
	Delete(ctx context.Context, id, userID string) error
}
