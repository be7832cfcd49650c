package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davext/chatgate/internal/alert"
	"github.com/davext/chatgate/internal/chat"
	"github.com/davext/chatgate/internal/config"
	"github.com/davext/chatgate/providers/ai"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is an in-memory chat.ConversationStore for server tests.
type fakeStore struct {
	conversations map[string]*chat.Conversation
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[string]*chat.Conversation)}
}

func (store *fakeStore) Insert(ctx context.Context, conversation *chat.Conversation) error {
	copied := *conversation
	store.conversations[conversation.ID] = &copied
	return nil
}

func (store *fakeStore) Get(ctx context.Context, id, userID string) (*chat.Conversation, error) {
	conversation, ok := store.conversations[id]
	if !ok || conversation.UserID != userID {
		return nil, chat.ErrNotFound
	}
	copied := *conversation
	return &copied, nil
}

func (store *fakeStore) Save(ctx context.Context, conversation *chat.Conversation) error {
	copied := *conversation
	store.conversations[conversation.ID] = &copied
	return nil
}

func (store *fakeStore) List(ctx context.Context, userID string, limit int) ([]chat.Summary, error) {
	summaries := []chat.Summary{}
	for _, conversation := range store.conversations {
		if conversation.UserID == userID && len(summaries) < limit {
			summaries = append(summaries, chat.Summary{
				ID:       conversation.ID,
				Title:    conversation.Title,
				Provider: conversation.Provider,
			})
		}
	}
	return summaries, nil
}

func (store *fakeStore) Delete(ctx context.Context, id, userID string) error {
	if _, err := store.Get(ctx, id, userID); err != nil {
		return err
	}
	delete(store.conversations, id)
	return nil
}

// fakeProvider is a scripted ai.Provider for handler tests.
type fakeProvider struct {
	fragments []string
	streamErr error
}

func (provider *fakeProvider) StreamReply(ctx context.Context, history []ai.Message) (*ai.ReplyStream, error) {
	if provider.streamErr != nil {
		return nil, provider.streamErr
	}
	return ai.NewReplyStream(func(yield func(string, error) bool) {
		for _, fragment := range provider.fragments {
			if !yield(fragment, nil) {
				return
			}
		}
	}), nil
}

func (provider *fakeProvider) WithAPIKey(apiKey string) ai.Provider      { return provider }
func (provider *fakeProvider) WithBaseURL(baseURL string) ai.Provider    { return provider }
func (provider *fakeProvider) WithHttpClient(c *http.Client) ai.Provider { return provider }

// newTestServer assembles a Server over fakes. The claude slot gets the given
// provider; gemini and deepseek get a trivially healthy one.
func newTestServer(t *testing.T, store *fakeStore, claude *fakeProvider) *Server {
	t.Helper()

	registry := ai.NewRegistry()
	registry.Register(ai.ProviderClaude, func() ai.Provider { return claude })
	registry.Register(ai.ProviderGemini, func() ai.Provider { return &fakeProvider{fragments: []string{"ok"}} })
	registry.Register(ai.ProviderDeepSeek, func() ai.Provider { return &fakeProvider{fragments: []string{"ok"}} })

	cfg := &config.Config{Address: ":0"}
	manager := chat.NewManager(store, ai.NewTranscoder(nil), nil)
	verifier := StaticTokens{"valid-token": "user-1"}
	notifier := alert.NewNotifier("", nil)

	return New(cfg, manager, store, registry, verifier, notifier, nil)
}

func doRequest(server *Server, method, path, token string, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.engine.ServeHTTP(recorder, request)
	return recorder
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeProvider{})

	recorder := doRequest(server, http.MethodGet, "/healthz", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", recorder.Code, http.StatusOK)
	}
	if recorder.Body.String() != "Server is alive" {
		t.Errorf("body: got %q, want %q", recorder.Body.String(), "Server is alive")
	}
}

func TestAuthMiddleware_RejectsBadCredentials(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeProvider{})

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "unknown token", token: "wrong-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doRequest(server, http.MethodGet, "/api/chat/conversations", tt.token, "")
			if recorder.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want %d", recorder.Code, http.StatusUnauthorized)
			}
			if !strings.Contains(recorder.Body.String(), "Unauthorized.") {
				t.Errorf("body: got %q", recorder.Body.String())
			}
		})
	}
}

func TestSendMessage_Validation(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeProvider{})

	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "malformed body",
			body:        "{not json",
			wantMessage: "Invalid request body.",
		},
		{
			name:        "missing provider",
			body:        `{"message":"hi"}`,
			wantMessage: "Provider and message are required.",
		},
		{
			name:        "missing message",
			body:        `{"provider":"claude"}`,
			wantMessage: "Provider and message are required.",
		},
		{
			name:        "unknown provider",
			body:        `{"provider":"gpt4","message":"hi"}`,
			wantMessage: "Invalid provider. Must be claude, gemini, or deepseek.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doRequest(server, http.MethodPost, "/api/chat/send", "valid-token", tt.body)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", recorder.Code, http.StatusBadRequest)
			}
			if !strings.Contains(recorder.Body.String(), tt.wantMessage) {
				t.Errorf("body: got %q, want it to contain %q", recorder.Body.String(), tt.wantMessage)
			}
		})
	}
}

func TestSendMessage_StreamsAndPersists(t *testing.T) {
	store := newFakeStore()
	server := newTestServer(t, store, &fakeProvider{fragments: []string{"Hel", "lo"}})

	recorder := doRequest(server, http.MethodPost, "/api/chat/send", "valid-token",
		`{"provider":"claude","message":"say hello"}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body: %s)", recorder.Code, http.StatusOK, recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type: got %q, want %q", got, "text/event-stream")
	}

	events := relayEvents(t, recorder.Body.String())
	if len(events) < 2 {
		t.Fatalf("expected at least meta and done events, got %v", events)
	}
	if events[0]["type"] != "meta" {
		t.Fatalf("first event should be meta, got %v", events[0])
	}
	conversationID, _ := events[0]["conversationId"].(string)
	if conversationID == "" {
		t.Fatal("meta event should carry the conversation id")
	}
	if events[len(events)-1]["type"] != "done" {
		t.Errorf("final event should be done, got %v", events[len(events)-1])
	}

	// Both turns are persisted: the user message immediately, the assistant
	// reply after the stream completes.
	persisted, err := store.Get(context.Background(), conversationID, "user-1")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if len(persisted.Messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(persisted.Messages))
	}
	if persisted.Messages[0].Role != chat.RoleUser || persisted.Messages[0].Content != "say hello" {
		t.Errorf("user turn: got %+v", persisted.Messages[0])
	}
	if persisted.Messages[1].Role != chat.RoleAssistant || persisted.Messages[1].Content != "Hello" {
		t.Errorf("assistant turn: got %+v", persisted.Messages[1])
	}
	if persisted.Title != "say hello" {
		t.Errorf("title: got %q, want %q", persisted.Title, "say hello")
	}
}

func TestSendMessage_CapacityLimit(t *testing.T) {
	store := newFakeStore()
	server := newTestServer(t, store, &fakeProvider{fragments: []string{"ok"}})

	full := &chat.Conversation{
		ID:       uuid.NewString(),
		UserID:   "user-1",
		Title:    "full",
		Provider: ai.ProviderClaude,
		Messages: make([]chat.Message, chat.MaxMessagesPerConversation),
	}
	if err := store.Insert(context.Background(), full); err != nil {
		t.Fatalf("Insert returned unexpected error: %v", err)
	}

	recorder := doRequest(server, http.MethodPost, "/api/chat/send", "valid-token",
		fmt.Sprintf(`{"conversationId":%q,"provider":"claude","message":"one more"}`, full.ID))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", recorder.Code, http.StatusBadRequest)
	}

	var response map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unparseable response: %v", err)
	}
	if response["code"] != chat.CodeConversationLimitReached {
		t.Errorf("code: got %v, want %q", response["code"], chat.CodeConversationLimitReached)
	}
	if !strings.Contains(response["message"].(string), "50-message limit") {
		t.Errorf("message: got %v", response["message"])
	}

	// The rejected turn must not have been appended.
	persisted, err := store.Get(context.Background(), full.ID, "user-1")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if len(persisted.Messages) != chat.MaxMessagesPerConversation {
		t.Errorf("message count after rejection: got %d, want %d", len(persisted.Messages), chat.MaxMessagesPerConversation)
	}
}

// A provider failure ahead of the first fragment surfaces as an ordinary 502
// response, never a committed stream.
func TestSendMessage_PreStreamProviderFailure(t *testing.T) {
	store := newFakeStore()
	server := newTestServer(t, store, &fakeProvider{
		streamErr: fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ai.ErrAuth),
	})

	recorder := doRequest(server, http.MethodPost, "/api/chat/send", "valid-token",
		`{"provider":"claude","message":"hi"}`)

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", recorder.Code, http.StatusBadGateway)
	}
	if !strings.Contains(recorder.Body.String(), clientErrorMessage) {
		t.Errorf("body should carry the generic provider error, got %q", recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); strings.Contains(got, "text/event-stream") {
		t.Error("failed send should not commit SSE headers")
	}
}

func TestSendMessage_ProviderSwitchRecorded(t *testing.T) {
	store := newFakeStore()
	server := newTestServer(t, store, &fakeProvider{fragments: []string{"ok"}})

	existing := &chat.Conversation{
		ID:       uuid.NewString(),
		UserID:   "user-1",
		Title:    "switching",
		Provider: ai.ProviderGemini,
		Messages: []chat.Message{},
	}
	if err := store.Insert(context.Background(), existing); err != nil {
		t.Fatalf("Insert returned unexpected error: %v", err)
	}

	recorder := doRequest(server, http.MethodPost, "/api/chat/send", "valid-token",
		fmt.Sprintf(`{"conversationId":%q,"provider":"claude","message":"now via claude"}`, existing.ID))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", recorder.Code, recorder.Body.String())
	}

	persisted, err := store.Get(context.Background(), existing.ID, "user-1")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if persisted.Provider != ai.ProviderClaude {
		t.Errorf("conversation provider after switch: got %q, want %q", persisted.Provider, ai.ProviderClaude)
	}
	assistant := persisted.Messages[len(persisted.Messages)-1]
	if assistant.Provider != ai.ProviderClaude {
		t.Errorf("assistant turn provider: got %q, want %q", assistant.Provider, ai.ProviderClaude)
	}
}

func TestConversationCRUD(t *testing.T) {
	store := newFakeStore()
	server := newTestServer(t, store, &fakeProvider{})

	conversation := &chat.Conversation{
		ID:       uuid.NewString(),
		UserID:   "user-1",
		Title:    "to fetch",
		Provider: ai.ProviderDeepSeek,
		Messages: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	}
	if err := store.Insert(context.Background(), conversation); err != nil {
		t.Fatalf("Insert returned unexpected error: %v", err)
	}

	// List
	recorder := doRequest(server, http.MethodGet, "/api/chat/conversations", "valid-token", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("list status: got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Conversations retrieved successfully.") {
		t.Errorf("list body: got %q", recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), conversation.ID) {
		t.Error("list should include the stored conversation")
	}

	// Get
	recorder = doRequest(server, http.MethodGet, "/api/chat/conversations/"+conversation.ID, "valid-token", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("get status: got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Conversation retrieved successfully.") {
		t.Errorf("get body: got %q", recorder.Body.String())
	}

	// Get unknown
	recorder = doRequest(server, http.MethodGet, "/api/chat/conversations/"+uuid.NewString(), "valid-token", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("get unknown status: got %d, want %d", recorder.Code, http.StatusNotFound)
	}
	if !strings.Contains(recorder.Body.String(), "Conversation not found.") {
		t.Errorf("get unknown body: got %q", recorder.Body.String())
	}

	// Delete
	recorder = doRequest(server, http.MethodDelete, "/api/chat/conversations/"+conversation.ID, "valid-token", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Conversation deleted successfully.") {
		t.Errorf("delete body: got %q", recorder.Body.String())
	}

	// Delete again misses.
	recorder = doRequest(server, http.MethodDelete, "/api/chat/conversations/"+conversation.ID, "valid-token", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("repeat delete status: got %d, want %d", recorder.Code, http.StatusNotFound)
	}
}

func TestProviderStatusEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeProvider{
		streamErr: fmt.Errorf("%w: bad key", ai.ErrAuth),
	})

	recorder := doRequest(server, http.MethodGet, "/api/chat/providers/status", "valid-token", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d", recorder.Code)
	}

	var response struct {
		Message   string                         `json:"message"`
		Providers map[string]chat.ProviderStatus `json:"providers"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unparseable response: %v", err)
	}

	if len(response.Providers) != 3 {
		t.Fatalf("expected 3 provider statuses, got %d", len(response.Providers))
	}
	claude := response.Providers["claude"]
	if claude.Available {
		t.Error("claude should be unavailable with a bad key")
	}
	if claude.Error != "Invalid API key." {
		t.Errorf("claude error: got %q, want %q", claude.Error, "Invalid API key.")
	}
	if !response.Providers["gemini"].Available {
		t.Error("gemini should be available")
	}
}

func TestCORSMiddleware(t *testing.T) {
	server := newTestServerWithOrigins(t, newFakeStore(), []string{"https://app.example.com"})

	// Allowed origin gets the CORS headers.
	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set("Origin", "https://app.example.com")
	recorder := httptest.NewRecorder()
	server.engine.ServeHTTP(recorder, request)
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin: got %q", got)
	}

	// Disallowed origin gets nothing.
	request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set("Origin", "https://evil.example.com")
	recorder = httptest.NewRecorder()
	server.engine.ServeHTTP(recorder, request)
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin should get no CORS header, got %q", got)
	}

	// Preflight short-circuits with 204.
	request = httptest.NewRequest(http.MethodOptions, "/api/chat/send", nil)
	request.Header.Set("Origin", "https://app.example.com")
	recorder = httptest.NewRecorder()
	server.engine.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusNoContent {
		t.Errorf("preflight status: got %d, want %d", recorder.Code, http.StatusNoContent)
	}
}

func newTestServerWithOrigins(t *testing.T, store *fakeStore, origins []string) *Server {
	t.Helper()

	registry := ai.NewRegistry()
	registry.Register(ai.ProviderClaude, func() ai.Provider { return &fakeProvider{fragments: []string{"ok"}} })

	cfg := &config.Config{Address: ":0", CORSOrigins: origins}
	manager := chat.NewManager(store, ai.NewTranscoder(nil), nil)

	return New(cfg, manager, store, registry, StaticTokens{"valid-token": "user-1"}, alert.NewNotifier("", nil), nil)
}
