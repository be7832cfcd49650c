package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davext/chatgate/internal/chat"
	"github.com/davext/chatgate/internal/metrics"
	"github.com/davext/chatgate/providers/ai"
)

// relayState tracks the relay's progress through its lifecycle:
//
//	relayIdle → relayMetaSent → relayStreaming → relayCompleted | relayFailed
//
// Terminal states close the event stream exactly once; nothing is emitted
// afterward.
type relayState int

const (
	relayIdle relayState = iota
	relayMetaSent
	relayStreaming
	relayCompleted
	relayFailed
)

// clientErrorMessage is the only error detail ever sent to a client inside a
// stream; provider failure internals stay server-side.
const clientErrorMessage = "AI provider error. Please try again."

// StreamRelay drives a provider's reply stream onto one client response:
// it forwards each fragment verbatim as a chunk event (no batching or
// coalescing), accumulates the full reply, and finalizes conversation state
// on completion or mid-stream failure.
type StreamRelay struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	manager *chat.Manager
	logger  *zap.Logger
	state   relayState
}

// NewStreamRelay prepares a relay over writer. The response must not have
// been written to yet: Run commits the streaming headers itself.
func NewStreamRelay(writer http.ResponseWriter, manager *chat.Manager, logger *zap.Logger) *StreamRelay {
	flusher, _ := writer.(http.Flusher)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamRelay{
		writer:  writer,
		flusher: flusher,
		manager: manager,
		logger:  logger,
		state:   relayIdle,
	}
}

// Run relays stream to the client and persists the outcome.
//
// Flow: commit the SSE framing headers, emit a meta event carrying the
// conversation id (so the client can continue a newly created conversation),
// then forward fragments as chunk events while accumulating them. When the
// stream exhausts normally the accumulated text is persisted as an assistant
// turn tagged with provider and a done event closes the stream. When the
// stream fails mid-flight an error event closes the stream and the partial
// accumulation is discarded — the already-persisted user turn stands on its
// own, and a truncated reply is never saved.
//
// A failed write means the client disconnected: the relay stops consuming,
// which releases the provider's underlying connection via the abandoned
// iterator, and nothing further is persisted.
func (relay *StreamRelay) Run(ctx context.Context, conversation *chat.Conversation, provider ai.ProviderID, stream *ai.ReplyStream) {
	// Disable caching and intermediary buffering before the first event.
	header := relay.writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	relay.writer.WriteHeader(http.StatusOK)

	if err := relay.emit(map[string]any{"type": "meta", "conversationId": conversation.ID}); err != nil {
		relay.logger.Info("client disconnected before meta event", zap.Error(err))
		relay.state = relayFailed
		return
	}
	relay.state = relayMetaSent

	var accumulated strings.Builder
	started := time.Now()
	relay.state = relayStreaming

	for fragment, err := range stream.Iter() {
		if err != nil {
			relay.fail(provider, err)
			return
		}

		accumulated.WriteString(fragment)
		metrics.StreamFragments.WithLabelValues(string(provider)).Inc()

		if writeErr := relay.emit(map[string]any{"type": "chunk", "content": fragment}); writeErr != nil {
			// Client gone: abandon the stream (breaking out releases the
			// provider connection) and persist nothing further.
			relay.logger.Info("client disconnected mid-stream",
				zap.String("conversation_id", conversation.ID), zap.Error(writeErr))
			relay.state = relayFailed
			metrics.SendRequests.WithLabelValues(string(provider), "disconnected").Inc()
			return
		}
	}

	metrics.StreamDuration.WithLabelValues(string(provider)).Observe(time.Since(started).Seconds())

	// An assistant turn is only appended when text was actually accumulated.
	if accumulated.Len() > 0 {
		if err := relay.manager.AppendAssistantTurn(ctx, conversation, accumulated.String(), provider); err != nil {
			relay.logger.Error("failed to persist assistant turn",
				zap.String("conversation_id", conversation.ID), zap.Error(err))
			relay.fail(provider, err)
			return
		}
	}

	if !relay.finish(relayCompleted) {
		return
	}
	metrics.SendRequests.WithLabelValues(string(provider), "completed").Inc()
	_ = relay.emit(map[string]any{"type": "done"})
}

// fail emits the terminal error event with a generic client-safe message.
// Once the relay has reached a terminal state further failures are only
// logged; the closing event is never sent twice.
func (relay *StreamRelay) fail(provider ai.ProviderID, err error) {
	relay.logger.Error("stream failed", zap.String("provider", string(provider)), zap.Error(err))
	if !relay.finish(relayFailed) {
		return
	}
	metrics.SendRequests.WithLabelValues(string(provider), "failed").Inc()
	metrics.ProviderErrors.WithLabelValues(string(provider), classification(err)).Inc()
	_ = relay.emit(map[string]any{"type": "error", "message": clientErrorMessage})
}

// finish moves the relay into a terminal state. It reports false when a
// terminal state was already reached, in which case the caller must not
// emit another closing event.
func (relay *StreamRelay) finish(terminal relayState) bool {
	if relay.state == relayCompleted || relay.state == relayFailed {
		return false
	}
	relay.state = terminal
	return true
}

// emit writes one SSE event frame and flushes it to the client immediately.
func (relay *StreamRelay) emit(event map[string]any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(relay.writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	if relay.flusher != nil {
		relay.flusher.Flush()
	}
	return nil
}

// classification labels a provider error for metrics.
func classification(err error) string {
	switch classified := ai.Classify(err); {
	case errors.Is(classified, ai.ErrQuota):
		return "quota"
	case errors.Is(classified, ai.ErrAuth):
		return "auth"
	default:
		return "unavailable"
	}
}
