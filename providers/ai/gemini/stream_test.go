package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davext/chatgate/providers/ai"
)

// writeSSE writes one SSE data event and flushes it. Gemini streams do not use
// "event:" discriminators; every event is a JSON generateContentResponse.
func writeSSE(writer http.ResponseWriter, data string) {
	fmt.Fprintf(writer, "data: %s\n\n", data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

// TestStreamReply_CumulativeSnapshots verifies the delta computation: Gemini
// events carry the full text so far, and the iterator must emit only the new
// suffix of each snapshot.
func TestStreamReply_CumulativeSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("x-goog-api-key header: got %q, want %q", got, "test-key")
		}
		if !strings.Contains(request.URL.RawQuery, "alt=sse") {
			t.Errorf("request should use alt=sse, got query %q", request.URL.RawQuery)
		}

		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]}}]}`)
		writeSSE(writer,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello"}]}}]}`)
		writeSSE(writer,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello world"}]},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	stream, err := provider.StreamReply(context.Background(), []ai.Message{
		{Role: ai.RoleUser, Content: "Hi"},
	})
	if err != nil {
		t.Fatalf("StreamReply returned unexpected error: %v", err)
	}

	var fragments []string
	for fragment, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("stream iterator returned unexpected error: %v", iterErr)
		}
		fragments = append(fragments, fragment)
	}

	want := []string{"Hel", "lo", " world"}
	if len(fragments) != len(want) {
		t.Fatalf("expected %d fragments, got %d: %v", len(want), len(fragments), fragments)
	}
	for i := range want {
		if fragments[i] != want[i] {
			t.Errorf("fragment %d: got %q, want %q", i, fragments[i], want[i])
		}
	}
}

// TestStreamReply_SkipsThoughtParts verifies that reasoning parts marked with
// thought=true never surface as reply text.
func TestStreamReply_SkipsThoughtParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Considering...","thought":true}]}}]}`)
		writeSSE(writer,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"The answer is 42."}]},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	stream, err := provider.StreamReply(context.Background(), []ai.Message{
		{Role: ai.RoleUser, Content: "What is 6*7?"},
	})
	if err != nil {
		t.Fatalf("StreamReply returned unexpected error: %v", err)
	}

	text, collectErr := stream.Collect()
	if collectErr != nil {
		t.Fatalf("Collect returned unexpected error: %v", collectErr)
	}
	if text != "The answer is 42." {
		t.Errorf("collected text: got %q, want %q", text, "The answer is 42.")
	}
}

// TestStreamReply_RoleMapping verifies that assistant history turns are sent
// with role "model" and binary parts as inlineData.
func TestStreamReply_RoleMapping(t *testing.T) {
	var captured generateContentRequest
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, readErr := io.ReadAll(request.Body)
		if readErr != nil {
			t.Errorf("failed to read request body: %v", readErr)
			return
		}
		if unmarshalErr := json.Unmarshal(body, &captured); unmarshalErr != nil {
			t.Errorf("failed to unmarshal request body: %v", unmarshalErr)
			return
		}

		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)
		writeSSE(writer,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	history := []ai.Message{
		{Role: ai.RoleUser, Content: "describe this", Parts: []ai.ContentPart{
			{Type: ai.ContentTypeFile, Data: []byte{0x25, 0x50}, MIMEType: "application/pdf", Name: "doc.pdf"},
			{Type: ai.ContentTypeText, Text: "describe this"},
		}},
		{Role: ai.RoleAssistant, Content: "It is a PDF."},
		{Role: ai.RoleUser, Content: "thanks"},
	}

	stream, err := provider.StreamReply(context.Background(), history)
	if err != nil {
		t.Fatalf("StreamReply returned unexpected error: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect returned unexpected error: %v", err)
	}

	if len(captured.Contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" {
		t.Errorf("first content role: got %q, want %q", captured.Contents[0].Role, "user")
	}
	if captured.Contents[1].Role != "model" {
		t.Errorf("assistant turn role: got %q, want %q", captured.Contents[1].Role, "model")
	}

	firstParts := captured.Contents[0].Parts
	if len(firstParts) != 2 {
		t.Fatalf("expected 2 parts in first content, got %d", len(firstParts))
	}
	if firstParts[0].InlineData == nil || firstParts[0].InlineData.MIMEType != "application/pdf" {
		t.Error("binary part should be sent as inlineData with the original MIME type")
	}
	if firstParts[1].Text != "describe this" {
		t.Errorf("text part: got %q, want %q", firstParts[1].Text, "describe this")
	}
}

// TestStreamReply_EmbeddedError verifies that an error object embedded in a
// stream event is propagated through the iterator.
func TestStreamReply_EmbeddedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"partial"}]}}]}`)
		writeSSE(writer,
			`{"error":{"code":503,"message":"The model is overloaded.","status":"UNAVAILABLE"}}`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	stream, err := provider.StreamReply(context.Background(), []ai.Message{
		{Role: ai.RoleUser, Content: "Hi"},
	})
	if err != nil {
		t.Fatalf("StreamReply returned unexpected pre-stream error: %v", err)
	}

	text, iterErr := stream.Collect()
	if iterErr == nil {
		t.Fatal("expected a mid-stream error, got nil")
	}
	if !strings.Contains(iterErr.Error(), "overloaded") {
		t.Errorf("error message should mention the overload, got: %v", iterErr)
	}
	if text != "partial" {
		t.Errorf("partial text before failure: got %q, want %q", text, "partial")
	}
}

// TestStreamReply_PreStreamError verifies classification of a non-2xx response.
func TestStreamReply_PreStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(writer, `{"error":{"code":401,"message":"API key not valid.","status":"UNAUTHENTICATED"}}`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("bad-key")

	_, err := provider.StreamReply(context.Background(), []ai.Message{
		{Role: ai.RoleUser, Content: "Hi"},
	})
	if err == nil {
		t.Fatal("expected error for non-2xx response, got nil")
	}
	if !errors.Is(err, ai.ErrAuth) {
		t.Errorf("expected error to wrap ai.ErrAuth, got: %v", err)
	}
}

// TestStreamReply_NoAPIKey verifies the missing-credential guard.
func TestStreamReply_NoAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Error("server should not have been called when API key is missing")
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.apiKey = ""

	_, err := provider.StreamReply(context.Background(), []ai.Message{
		{Role: ai.RoleUser, Content: "Hi"},
	})
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY is not set") {
		t.Errorf("expected API key error, got: %v", err)
	}
}
