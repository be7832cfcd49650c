package deepseek

import (
	"encoding/json"
	"strings"

	"github.com/davext/chatgate/providers/ai"
)

/*
	DEEPSEEK CHAT COMPLETIONS API - WIRE TYPES

	These types model the OpenAI-compatible SSE chunks returned by
	/chat/completions when stream=true. Each chunk carries incremental
	deltas per choice, and the stream ends with the [DONE] sentinel
	(consumed by the SSEScanner).
*/

// chatRequest is the request body for POST /chat/completions.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatMessage is one turn in the OpenAI message format. Content is always
// plain text — DeepSeek has no binary content blocks, so attachments arrive
// pre-flattened through the Transcoder's text fallback.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamChunk represents a single SSE chunk from the streaming endpoint.
type streamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion.chunk"
	Choices []streamChoice `json:"choices"`
}

// streamChoice represents a single choice in a streaming chunk. Unlike the
// non-streaming format, it carries Delta instead of Message.
type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"` // Nullable; nil until the final chunk
}

// streamDelta carries the incremental content for a streaming chunk.
// Content is nullable to distinguish an empty-string delta from an absent one.
type streamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// unmarshalStreamChunk parses a raw SSE data payload into a streamChunk.
func unmarshalStreamChunk(data string) (*streamChunk, error) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// historyToChat converts the generic conversation history to OpenAI-format
// messages. Roles map directly; transcoded attachment parts are flattened to
// text ahead of the turn's own content, separated by blank lines.
func historyToChat(history []ai.Message) []chatMessage {
	messages := make([]chatMessage, 0, len(history))

	for _, msg := range history {
		var sections []string
		for _, part := range msg.Parts {
			if part.Type == ai.ContentTypeText && part.Text != "" {
				sections = append(sections, part.Text)
			}
		}
		if msg.Content != "" || len(sections) == 0 {
			sections = append(sections, msg.Content)
		}

		messages = append(messages, chatMessage{
			Role:    string(msg.Role),
			Content: strings.Join(sections, "\n\n"),
		})
	}

	return messages
}
