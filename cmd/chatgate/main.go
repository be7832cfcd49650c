package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/davext/chatgate/internal/alert"
	"github.com/davext/chatgate/internal/chat"
	"github.com/davext/chatgate/internal/config"
	"github.com/davext/chatgate/internal/server"
	"github.com/davext/chatgate/internal/store"
	"github.com/davext/chatgate/providers/ai"
	"github.com/davext/chatgate/providers/ai/claude"
	"github.com/davext/chatgate/providers/ai/deepseek"
	"github.com/davext/chatgate/providers/ai/gemini"
)

func main() {
	// Provider clients read their credentials from the environment, so .env
	// must load before anything constructs a client.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	conversations, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open conversation store",
			zap.Error(err), zap.String("db_path", cfg.DBPath))
	}
	defer conversations.Close()

	// The registry is populated after configuration is loaded; clients are
	// still constructed lazily, once, on first use.
	registry := ai.NewRegistry()
	registry.Register(ai.ProviderClaude, func() ai.Provider { return claude.New() })
	registry.Register(ai.ProviderGemini, func() ai.Provider { return gemini.New() })
	registry.Register(ai.ProviderDeepSeek, func() ai.Provider { return deepseek.New() })

	transcoder := ai.NewTranscoder(logger)
	manager := chat.NewManager(conversations, transcoder, logger)
	notifier := alert.NewNotifier(cfg.SlackWebhookURL, logger)

	srv := server.New(cfg, manager, conversations, registry, server.StaticTokens(cfg.AuthTokens), notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
