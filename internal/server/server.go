// Package server exposes the gateway's HTTP surface: the authenticated chat
// API (send with SSE streaming, conversation CRUD, provider status) plus the
// liveness and metrics endpoints. Routing and dispatch are gin; the streaming
// relay lives in relay.go.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/davext/chatgate/internal/alert"
	"github.com/davext/chatgate/internal/chat"
	"github.com/davext/chatgate/internal/config"
	"github.com/davext/chatgate/providers/ai"
)

// idleTimeout bounds how long a single request (including a full provider
// stream) may stay open.
const idleTimeout = 10 * time.Minute

type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	manager  *chat.Manager
	registry *ai.Registry
	probe    *chat.HealthProbe
	store    chat.ConversationStore
	notifier *alert.Notifier
	logger   *zap.Logger
}

// New assembles the HTTP server around an already-wired registry, state
// manager and store. The registry must be populated before New is called so
// the health and send paths share one switchboard.
func New(cfg *config.Config, manager *chat.Manager, store chat.ConversationStore, registry *ai.Registry, verifier TokenVerifier, notifier *alert.Notifier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	server := &Server{
		cfg:      cfg,
		engine:   engine,
		manager:  manager,
		registry: registry,
		probe:    chat.NewHealthProbe(registry, logger),
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
	server.registerRoutes(verifier)
	return server
}

func (server *Server) registerRoutes(verifier TokenVerifier) {
	server.engine.Use(CORSMiddleware(server.cfg.CORSOrigins))

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is alive")
	})
	server.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := server.engine.Group("/api/chat")
	api.Use(AuthMiddleware(verifier))

	api.GET("/providers/status", server.providerStatus)
	api.POST("/send", server.sendMessage)
	api.GET("/conversations", server.listConversations)
	api.GET("/conversations/:id", server.getConversation)
	api.DELETE("/conversations/:id", server.deleteConversation)
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
// ReadHeaderTimeout stays short while the write/idle timeouts accommodate
// long-lived streams.
func (server *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              server.cfg.Address,
		Handler:           server.engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      idleTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	server.logger.Info("server listening", zap.String("address", server.cfg.Address))
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
