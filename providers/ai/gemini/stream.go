package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/davext/chatgate/internal/utils"
	"github.com/davext/chatgate/providers/ai"
)

// StreamReply implements ai.Provider for the Gemini API.
// It uses the streamGenerateContent endpoint with alt=sse to receive
// incremental response chunks as SSE events.
//
// Unlike the other backends, Gemini SSE events each carry a full
// generateContentResponse snapshot (not a delta). To produce text fragments,
// the iterator tracks the cumulative text length across events and emits
// only the new portion.
func (provider *GeminiProvider) StreamReply(ctx context.Context, history []ai.Message) (*ai.ReplyStream, error) {
	// Validate API key before making a network call.
	if provider.apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ai.ErrAuth)
	}

	// Build streaming URL: streamGenerateContent with alt=sse
	streamURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", provider.baseURL, defaultModel)

	request := generateContentRequest{Contents: historyToContents(history)}

	// Send the streaming request with Gemini-specific auth header.
	httpResponse, err := utils.DoPostStream(
		ctx,
		provider.client,
		streamURL,
		"", // Empty apiKey: Gemini authenticates via x-goog-api-key
		request,
		utils.HeaderOption{Key: "x-goog-api-key", Value: provider.apiKey},
	)
	if err != nil {
		return nil, ai.Classify(err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(string, error) bool) {
		// Ensure the response body is closed when the iterator is done.
		defer utils.CloseWithLog(httpResponse.Body)

		// Track cumulative text to compute deltas (Gemini sends full text, not incremental).
		previousTextLength := 0

		for {
			// Check for context cancellation between SSE reads.
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

			// Each SSE event is a full generateContentResponse.
			var response generateContentResponse
			if parseErr := json.Unmarshal([]byte(payload), &response); parseErr != nil {
				yield("", fmt.Errorf("failed to parse Gemini streaming chunk: %w", parseErr))
				return
			}

			if response.Error != nil {
				yield("", fmt.Errorf("gemini stream error %d %s: %s", response.Error.Code, response.Error.Status, response.Error.Message))
				return
			}

			delta, finished := chunkDelta(&response, &previousTextLength)
			if delta != "" {
				if !yield(delta, nil) {
					return // Caller stopped iterating.
				}
			}
			if finished {
				return
			}
		}
	}

	return ai.NewReplyStream(iteratorFunc), nil
}

// chunkDelta extracts the new text carried by one cumulative response
// snapshot and reports whether the candidate has finished. Reasoning parts
// (Thought) and non-text parts are discarded.
func chunkDelta(response *generateContentResponse, previousTextLength *int) (delta string, finished bool) {
	if len(response.Candidates) == 0 {
		return "", false
	}

	candidate := response.Candidates[0]
	finished = candidate.FinishReason != ""
	if candidate.Content == nil {
		return "", finished
	}

	var textParts []string
	for _, responsePart := range candidate.Content.Parts {
		if responsePart.Text != "" && !responsePart.Thought {
			textParts = append(textParts, responsePart.Text)
		}
	}

	fullText := strings.Join(textParts, "\n")
	if len(fullText) > *previousTextLength {
		delta = fullText[*previousTextLength:]
		*previousTextLength = len(fullText)
	}

	return delta, finished
}
