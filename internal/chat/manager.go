package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davext/chatgate/providers/ai"
)

const (
	// MaxMessagesPerConversation caps a conversation's total message count.
	// Sends against a full conversation are rejected before the user turn is
	// appended.
	MaxMessagesPerConversation = 50

	// HistoryWindow is the number of most recent messages resent to a
	// provider for continuation. Older turns stay persisted but are not
	// forwarded.
	HistoryWindow = 20

	// defaultTitle is used when a conversation is created without a usable
	// first message.
	defaultTitle = "New Conversation"

	// titleLimit caps derived conversation titles.
	titleLimit = 50
)

// Manager owns the conversation entity lifecycle. It is the only writer of
// conversation state: lookup-or-create, capacity enforcement, provider-switch
// bookkeeping, and append-and-persist of user and assistant turns all go
// through it.
type Manager struct {
	store      ConversationStore
	transcoder *ai.Transcoder
	logger     *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewManager returns a Manager persisting through store. A nil logger falls
// back to zap's no-op logger.
func NewManager(store ConversationStore, transcoder *ai.Transcoder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:      store,
		transcoder: transcoder,
		logger:     logger,
		now:        time.Now,
	}
}

// ResolveOrCreate returns the conversation to continue. When conversationID
// is a syntactically valid id owned by userID, that conversation is reused;
// otherwise a fresh conversation is created, titled from firstMessage and
// persisted immediately. A conversation is never attached to a different user
// than its owner: ownership misses fall through to creation, matching the
// lookup semantics of the store.
func (manager *Manager) ResolveOrCreate(ctx context.Context, userID, conversationID, firstMessage string, provider ai.ProviderID) (*Conversation, error) {
	if conversationID != "" {
		if _, err := uuid.Parse(conversationID); err == nil {
			conversation, err := manager.store.Get(ctx, conversationID, userID)
			if err == nil {
				return conversation, nil
			}
			if !isNotFound(err) {
				return nil, fmt.Errorf("looking up conversation %s: %w", conversationID, err)
			}
		}
	}

	now := manager.now().UTC()
	conversation := &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     DeriveTitle(firstMessage),
		Provider:  provider,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := manager.store.Insert(ctx, conversation); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	manager.logger.Info("conversation created",
		zap.String("conversation_id", conversation.ID),
		zap.String("provider", string(provider)))

	return conversation, nil
}

// DeriveTitle builds a conversation title from the first user message:
// the message itself when it fits, otherwise the first 50 characters
// followed by an ellipsis. Truncation counts runes, not bytes, so a
// multibyte message is never cut mid-character.
func DeriveTitle(firstMessage string) string {
	if firstMessage == "" {
		return defaultTitle
	}
	runes := []rune(firstMessage)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "..."
	}
	return firstMessage
}

// CheckCapacity rejects sends against a conversation already at the message
// cap. The check runs before the user turn is appended, so a full
// conversation is rejected outright rather than appended to and then
// rejected.
func (manager *Manager) CheckCapacity(conversation *Conversation) error {
	if len(conversation.Messages) >= MaxMessagesPerConversation {
		return fmt.Errorf("%w: this conversation has reached the %d-message limit, start a new chat to continue",
			ErrCapacityExceeded, MaxMessagesPerConversation)
	}
	return nil
}

// RecordProviderSwitch updates the conversation's active provider when the
// requested one differs. Pure bookkeeping: the new value is persisted by the
// next append. Validation of the identifier is the caller's job.
func (manager *Manager) RecordProviderSwitch(conversation *Conversation, provider ai.ProviderID) {
	if conversation.Provider != provider {
		manager.logger.Info("provider switch",
			zap.String("conversation_id", conversation.ID),
			zap.String("from", string(conversation.Provider)),
			zap.String("to", string(provider)))
		conversation.Provider = provider
	}
}

// AppendUserTurn appends the pending user message (with its attachment
// references) and persists the conversation.
func (manager *Manager) AppendUserTurn(ctx context.Context, conversation *Conversation, content string, files []ai.Attachment) error {
	conversation.Messages = append(conversation.Messages, Message{
		Role:      RoleUser,
		Content:   content,
		Files:     files,
		CreatedAt: manager.now().UTC(),
	})
	if err := manager.store.Save(ctx, conversation); err != nil {
		return fmt.Errorf("persisting user turn: %w", err)
	}
	return nil
}

// AppendAssistantTurn appends an assistant reply tagged with the provider
// that produced it and persists the conversation.
func (manager *Manager) AppendAssistantTurn(ctx context.Context, conversation *Conversation, content string, provider ai.ProviderID) error {
	conversation.Messages = append(conversation.Messages, Message{
		Role:      RoleAssistant,
		Content:   content,
		Provider:  provider,
		CreatedAt: manager.now().UTC(),
	})
	if err := manager.store.Save(ctx, conversation); err != nil {
		return fmt.Errorf("persisting assistant turn: %w", err)
	}
	return nil
}

// WindowForContinuation returns the most recent HistoryWindow messages mapped
// to the generic provider vocabulary, in original order. System turns are
// excluded — only user/assistant alternation is forwarded. Attachment
// references on user turns are transcoded here, using the binary path only
// when the target provider accepts inline binary input.
func (manager *Manager) WindowForContinuation(conversation *Conversation, provider ai.ProviderID) []ai.Message {
	messages := conversation.Messages
	if len(messages) > HistoryWindow {
		messages = messages[len(messages)-HistoryWindow:]
	}

	binaryCapable := ai.SupportsBinaryInput(provider)

	window := make([]ai.Message, 0, len(messages))
	for _, message := range messages {
		var role ai.MessageRole
		switch message.Role {
		case RoleUser:
			role = ai.RoleUser
		case RoleAssistant:
			role = ai.RoleAssistant
		default:
			continue
		}

		generic := ai.Message{Role: role, Content: message.Content}
		if len(message.Files) > 0 {
			generic.Parts = manager.transcoder.Transcode(message.Files, binaryCapable)
		}
		window = append(window, generic)
	}

	return window
}

// isNotFound reports whether err is the store's miss sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
