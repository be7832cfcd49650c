package claude

import (
	"encoding/json"
	"fmt"
)

/*
	ANTHROPIC MESSAGES API - WIRE TYPES

	Request types model the subset of the Messages API the gateway uses:
	plain chat turns whose content is a list of text, image, and document
	blocks. Streaming responses use SSE with "event:" lines identifying event
	types and "data:" lines containing JSON payloads; the SSEScanner only
	processes "data:" lines, so the "type" field inside the JSON payload is
	used to discriminate events.

	Event lifecycle:
	  message_start → content_block_start → content_block_delta →
	  content_block_stop → message_delta → message_stop
*/

// claudeRequest is the request body for POST /v1/messages.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
	Stream    bool            `json:"stream,omitempty"`
}

// claudeMessage is one turn; Anthropic requires alternating user/assistant roles.
type claudeMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is one block of message content. Type selects which of the
// optional fields is populated: "text" uses Text, "image" and "document" use
// Source with base64-encoded bytes.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *blockSource `json:"source,omitempty"`
}

// blockSource carries inline binary content for image and document blocks.
type blockSource struct {
	Type      string `json:"type"` // always "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"` // base64-encoded bytes
}

// claudeStreamEvent is the top-level envelope for all Anthropic SSE events.
// The Type field discriminates which optional fields are populated.
type claudeStreamEvent struct {
	Type  string       `json:"type"`            // Event discriminator
	Index int          `json:"index,omitempty"` // For content_block_start/delta/stop
	Delta *streamDelta `json:"delta,omitempty"` // For "content_block_delta" and "message_delta"
	Error *claudeError `json:"error,omitempty"` // For "error" events
}

// streamDelta carries incremental content within a content_block_delta or
// message_delta event. The Type field discriminates the kind of delta; only
// text_delta carries reply text, everything else is control traffic for this
// gateway's purposes.
type streamDelta struct {
	Type       string `json:"type,omitempty"`        // "text_delta", "thinking_delta", ...
	Text       string `json:"text,omitempty"`        // For text_delta
	StopReason string `json:"stop_reason,omitempty"` // For message_delta
}

// claudeError represents an error event in the Anthropic SSE stream.
type claudeError struct {
	Type    string `json:"type"`    // Error type (e.g., "overloaded_error", "api_error")
	Message string `json:"message"` // Human-readable error description
}

// unmarshalStreamEvent parses a JSON payload string into a claudeStreamEvent.
// Returns an error if the JSON is invalid or the type field is missing.
func unmarshalStreamEvent(payload string) (*claudeStreamEvent, error) {
	var event claudeStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("missing type field in stream event")
	}
	return &event, nil
}
