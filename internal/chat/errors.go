package chat

import "errors"

// Service-level error taxonomy. Handlers map these onto HTTP status codes;
// provider failures carry the ai package sentinels instead.
var (
	// ErrValidation covers malformed or missing request fields (provider,
	// message, conversation id).
	ErrValidation = errors.New("invalid request")

	// ErrUnauthorized covers a missing or invalid caller identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers lookups of conversations that do not exist or are
	// owned by a different caller. The two cases are deliberately
	// indistinguishable so ownership cannot be probed.
	ErrNotFound = errors.New("conversation not found")

	// ErrCapacityExceeded is returned when a send targets a conversation
	// already at the message cap.
	ErrCapacityExceeded = errors.New("conversation message limit reached")
)

// CodeConversationLimitReached is the machine-readable code attached to
// capacity-exceeded error responses.
const CodeConversationLimitReached = "CONVERSATION_LIMIT_REACHED"
