package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davext/chatgate/internal/chat"
	"github.com/davext/chatgate/internal/metrics"
	"github.com/davext/chatgate/providers/ai"
)

// listLimit caps the number of conversation summaries returned per request.
const listLimit = 50

// sendRequest is the body of POST /api/chat/send. Files carry references to
// already-stored attachments (upload mechanics live upstream).
type sendRequest struct {
	ConversationID string          `json:"conversationId"`
	Provider       string          `json:"provider"`
	Message        string          `json:"message"`
	Files          []ai.Attachment `json:"files"`
}

// sendMessage handles the streaming send path. Everything that can be
// rejected is rejected before the SSE headers commit: validation, ownership,
// capacity, and provider errors ahead of the first fragment all return
// ordinary structured error responses. Once streaming starts, failures can
// only surface as a terminal error event inside the stream.
func (server *Server) sendMessage(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var request sendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	if request.Provider == "" || request.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Provider and message are required."})
		return
	}

	providerID, err := ai.ParseProviderID(request.Provider)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid provider. Must be claude, gemini, or deepseek."})
		return
	}

	ctx := c.Request.Context()

	conversation, err := server.manager.ResolveOrCreate(ctx, userID, request.ConversationID, request.Message, providerID)
	if err != nil {
		server.respondError(c, err)
		return
	}

	if err := server.manager.CheckCapacity(conversation); err != nil {
		metrics.SendRequests.WithLabelValues(string(providerID), "rejected").Inc()
		server.respondError(c, err)
		return
	}

	server.manager.RecordProviderSwitch(conversation, providerID)

	if err := server.manager.AppendUserTurn(ctx, conversation, request.Message, request.Files); err != nil {
		server.respondError(c, err)
		return
	}

	window := server.manager.WindowForContinuation(conversation, providerID)

	provider, err := server.registry.Resolve(providerID)
	if err != nil {
		server.respondError(c, err)
		return
	}

	stream, err := provider.StreamReply(ctx, window)
	if err != nil {
		// Pre-first-fragment failure: headers have not committed, so this is
		// still an ordinary error response.
		metrics.SendRequests.WithLabelValues(string(providerID), "failed").Inc()
		metrics.ProviderErrors.WithLabelValues(string(providerID), classification(err)).Inc()
		server.respondError(c, err)
		return
	}

	relay := NewStreamRelay(c.Writer, server.manager, server.logger)
	relay.Run(ctx, conversation, providerID, stream)
}

func (server *Server) listConversations(c *gin.Context) {
	userID := c.GetString(userIDKey)

	summaries, err := server.store.List(c.Request.Context(), userID, listLimit)
	if err != nil {
		server.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Conversations retrieved successfully.",
		"conversations": summaries,
	})
}

func (server *Server) getConversation(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	conversation, err := server.store.Get(c.Request.Context(), id, userID)
	if err != nil {
		server.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Conversation retrieved successfully.",
		"conversation": conversation,
	})
}

func (server *Server) deleteConversation(c *gin.Context) {
	userID := c.GetString(userIDKey)
	id := c.Param("id")

	if err := server.store.Delete(c.Request.Context(), id, userID); err != nil {
		server.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully."})
}

func (server *Server) providerStatus(c *gin.Context) {
	statuses := server.probe.Check(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"message":   "Provider status retrieved successfully.",
		"providers": statuses,
	})
}

// respondError maps an error onto the HTTP taxonomy. Anything unclassified
// degrades to a generic internal error that never leaks internals; the
// detailed failure is logged and mirrored to the alerting channel.
func (server *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrCapacityExceeded):
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "This conversation has reached the 50-message limit. Please start a new chat to continue.",
			"code":    chat.CodeConversationLimitReached,
		})

	case errors.Is(err, chat.ErrValidation), errors.Is(err, ai.ErrUnknownProvider):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})

	case errors.Is(err, chat.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized."})

	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Conversation not found."})

	case errors.Is(err, ai.ErrAuth), errors.Is(err, ai.ErrQuota), errors.Is(err, ai.ErrUnavailable):
		server.logger.Error("provider request failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": clientErrorMessage})

	default:
		server.logger.Error("internal error", zap.Error(err))
		server.notifier.ServerFault("Internal server error.", http.StatusInternalServerError, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error."})
	}
}
