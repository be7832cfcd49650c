package deepseek

import (
	"net/http"
	"os"

	"github.com/davext/chatgate/providers/ai"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"

	// chatCompletionsEndpoint is the OpenAI-compatible completions path.
	chatCompletionsEndpoint = "/chat/completions"
)

// DeepSeekProvider implements [ai.Provider] for DeepSeek's OpenAI-compatible
// chat completions API. Use [New] to construct a ready-to-use instance.
type DeepSeekProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a [DeepSeekProvider] initialized from environment variables.
// It reads DEEPSEEK_API_KEY for authentication and DEEPSEEK_API_BASE_URL for
// the endpoint base (defaulting to https://api.deepseek.com when unset).
func New() *DeepSeekProvider {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	baseURL := os.Getenv("DEEPSEEK_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &DeepSeekProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (provider *DeepSeekProvider) WithAPIKey(apiKey string) ai.Provider {
	provider.apiKey = apiKey
	return provider
}

// WithBaseURL overrides the API base URL.
func (provider *DeepSeekProvider) WithBaseURL(baseURL string) ai.Provider {
	provider.baseURL = baseURL
	return provider
}

// WithHttpClient sets a custom HTTP client.
func (provider *DeepSeekProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	provider.client = httpClient
	return provider
}
