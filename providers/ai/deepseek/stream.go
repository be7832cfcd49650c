package deepseek

import (
	"context"
	"fmt"
	"io"

	"github.com/davext/chatgate/internal/utils"
	"github.com/davext/chatgate/providers/ai"
)

// StreamReply implements [ai.Provider] for DeepSeek's chat completions
// endpoint. It sends a streaming request with stream=true and returns a
// [ai.ReplyStream] that yields content deltas as SSE chunks arrive.
//
// Pre-stream errors (missing API key, non-2xx HTTP response, network failure)
// are returned immediately, classified via [ai.Classify]. Mid-stream errors
// are yielded through the iterator. The [DONE] sentinel is consumed by the
// SSEScanner and surfaces here as io.EOF.
func (provider *DeepSeekProvider) StreamReply(ctx context.Context, history []ai.Message) (*ai.ReplyStream, error) {
	// Check API key before making a network call.
	if provider.apiKey == "" {
		return nil, fmt.Errorf("%w: DEEPSEEK_API_KEY is not set", ai.ErrAuth)
	}

	request := chatRequest{
		Model:    defaultModel,
		Messages: historyToChat(history),
		Stream:   true,
	}

	// Send the streaming request — body is left open for SSE reading.
	// DeepSeek uses standard Bearer authentication.
	streamURL := provider.baseURL + chatCompletionsEndpoint
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, provider.apiKey, request)
	if err != nil {
		return nil, ai.Classify(err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(string, error) bool) {
		// Ensure the response body is closed when the iterator is done.
		defer utils.CloseWithLog(httpResponse.Body)

		for {
			// Respect context cancellation between SSE reads.
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// [DONE] sentinel or natural end of stream.
				return
			}
			if sseErr != nil {
				yield("", fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			chunk, parseErr := unmarshalStreamChunk(payload)
			if parseErr != nil {
				yield("", fmt.Errorf("failed to parse stream chunk: %w", parseErr))
				return
			}

			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			if choice.Delta.Content != nil && *choice.Delta.Content != "" {
				if !yield(*choice.Delta.Content, nil) {
					return
				}
			}

			if choice.FinishReason != nil && *choice.FinishReason != "" {
				// Final chunk for this choice; the [DONE] sentinel follows but
				// there is nothing left to read.
				return
			}
		}
	}

	return ai.NewReplyStream(iteratorFunc), nil
}
