package ai

import (
	"context"
	"fmt"
	"net/http"
)

// Provider is the interface every chat backend implementation must satisfy.
// It covers a single concern: turning a conversation history into a lazy
// stream of reply fragments. Authentication and endpoint configuration are
// handled at construction time (see each provider package's New) and can be
// overridden with the With* methods.
type Provider interface {
	// StreamReply sends the conversation history to the backend and returns
	// a ReplyStream that yields incremental text fragments as they arrive.
	// Pre-stream errors (missing credentials, non-2xx HTTP response, network
	// failure) are returned as a normal error before anything is yielded.
	// Mid-stream errors are yielded through the iterator.
	//
	// The last message in history is always the pending user turn to answer.
	StreamReply(ctx context.Context, history []Message) (*ReplyStream, error)

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

// ProviderID identifies one of the supported chat backends. The set is
// closed: every identifier accepted anywhere in the gateway is one of the
// three constants below.
type ProviderID string

const (
	ProviderClaude   ProviderID = "claude"
	ProviderGemini   ProviderID = "gemini"
	ProviderDeepSeek ProviderID = "deepseek"
)

// ProviderIDs returns the closed set of supported provider identifiers in a
// stable order. Callers must not mutate the returned slice.
func ProviderIDs() []ProviderID {
	return []ProviderID{ProviderClaude, ProviderGemini, ProviderDeepSeek}
}

// SupportsBinaryInput reports whether a provider accepts inline binary
// content blocks (images, PDFs). DeepSeek's chat completions format is
// text-only, so its attachments go through the Transcoder's text fallback.
func SupportsBinaryInput(id ProviderID) bool {
	return id != ProviderDeepSeek
}

// ParseProviderID validates a raw identifier against the closed provider set.
// Unknown values fail with ErrUnknownProvider so callers can reject the
// request before any network call is made.
func ParseProviderID(raw string) (ProviderID, error) {
	switch id := ProviderID(raw); id {
	case ProviderClaude, ProviderGemini, ProviderDeepSeek:
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
}
