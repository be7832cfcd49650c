package claude

import (
	"context"
	"fmt"
	"io"

	"github.com/davext/chatgate/internal/utils"
	"github.com/davext/chatgate/providers/ai"
)

// StreamReply implements [ai.Provider] for Anthropic's Messages API.
// It sends a streaming request (stream=true) and returns a [ai.ReplyStream]
// that yields text deltas as SSE events arrive from the API.
//
// Pre-stream errors (missing API key, non-2xx HTTP response, network failure)
// are returned immediately as a non-nil error, classified via [ai.Classify].
// Mid-stream errors (an Anthropic "error" event, SSE parse failure) are
// yielded through the iterator.
//
// Anthropic SSE lifecycle:
//
//	message_start → content_block_start → content_block_delta(s) →
//	content_block_stop → message_delta → message_stop
func (provider *ClaudeProvider) StreamReply(ctx context.Context, history []ai.Message) (*ai.ReplyStream, error) {
	// Guard against missing credentials before making a network call.
	if provider.apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ai.ErrAuth)
	}

	streamURL := provider.baseURL + messagesEndpoint

	request := claudeRequest{
		Model:     defaultModel,
		MaxTokens: defaultMaxTokens,
		Messages:  historyToClaude(history),
		Stream:    true,
	}

	// Send the streaming request — body is left open for SSE reading.
	// Pass empty apiKey so DoPostStream does not inject a Bearer token;
	// Anthropic authenticates via x-api-key (set inside buildHeaders).
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, "", request, provider.buildHeaders()...)
	if err != nil {
		return nil, ai.Classify(err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	// iteratorFunc reads SSE events and yields only the text deltas, treating
	// every other event kind as control traffic.
	iteratorFunc := func(yield func(string, error) bool) {
		// Ensure the response body is closed when the iterator is exhausted or
		// the caller breaks out of the loop early.
		defer utils.CloseWithLog(httpResponse.Body)

		for {
			// Respect context cancellation between SSE reads.
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// Stream finished normally.
				return
			}
			if sseErr != nil {
				yield("", fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			event, parseErr := unmarshalStreamEvent(payload)
			if parseErr != nil {
				yield("", fmt.Errorf("failed to parse stream event: %w", parseErr))
				return
			}

			switch event.Type {

			case "content_block_delta":
				// Only text_delta carries reply text; thinking and tool deltas
				// are discarded.
				if event.Delta != nil && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
					if !yield(event.Delta.Text, nil) {
						return
					}
				}

			case "message_stop":
				// Terminal event; the reply is complete.
				return

			case "error":
				// Anthropic "error" events signal a server-side failure mid-stream.
				errMsg := "unknown stream error"
				if event.Error != nil {
					errMsg = event.Error.Message
				}
				yield("", fmt.Errorf("anthropic stream error: %s", errMsg))
				return

			case "message_start", "content_block_start", "content_block_stop", "message_delta", "ping":
				// Control and keep-alive events; nothing to yield.

			default:
				// Unknown event types are silently skipped for forward-compatibility
				// with future Anthropic SSE additions.
			}
		}
	}

	return ai.NewReplyStream(iteratorFunc), nil
}
