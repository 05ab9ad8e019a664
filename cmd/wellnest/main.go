package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/wellnest/assistant/internal/agent"
	"github.com/wellnest/assistant/internal/chat"
	"github.com/wellnest/assistant/internal/config"
	"github.com/wellnest/assistant/internal/httpapi"
	"github.com/wellnest/assistant/internal/memory"
	"github.com/wellnest/assistant/internal/observability"
	"github.com/wellnest/assistant/internal/rag"
	"github.com/wellnest/assistant/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer memoryStore.Close()

	embedder := rag.NewOpenAIEmbedder(rag.OpenAIEmbedderConfig{
		APIKey:  cfg.EmbeddingAPIKey,
		BaseURL: cfg.EmbeddingBaseURL,
		Model:   cfg.EmbeddingModel,
	})
	kb := rag.NewStore(rag.Config{
		DataDir:      cfg.DataDir,
		VectorDir:    cfg.VectorDir,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		DefaultDim:   cfg.EmbeddingDim,
	}, embedder)
	if err := kb.LoadOrBuild(ctx); err != nil {
		log.Fatalf("knowledge base init failed: %v", err)
	}

	var searchClient search.Client
	if cfg.TavilyAPIKey != "" {
		searchClient = search.NewTavily(search.TavilyConfig{
			APIKey:  cfg.TavilyAPIKey,
			BaseURL: cfg.TavilyBaseURL,
		})
		log.Printf("web search: tavily")
	} else {
		searchClient = search.Noop{}
		log.Printf("web search: disabled (no TAVILY_API_KEY)")
	}

	tools := []agent.ToolDefinition{
		agent.RetrievalTool(kb, cfg.TopK),
		agent.WebSearchTool(searchClient, cfg.TopK),
	}

	var (
		assistant  agent.Agent
		summarizer memory.Summarizer
	)
	if cfg.AnthropicAPIKey != "" {
		client := anthropic.NewClient()
		assistant = agent.NewAnthropicAgent(&client, agent.AnthropicAgentConfig{
			Model:     anthropic.Model(cfg.AssistantModel),
			MaxTokens: int64(cfg.AssistantMaxTokens),
			MaxSteps:  cfg.AssistantMaxSteps,
		}, tools)
		summarizer = memory.NewAnthropicSummarizer(&client, cfg.AssistantModel)
		log.Printf("assistant: %s", cfg.AssistantModel)
	} else {
		assistant = agent.MockAgent{}
		summarizer = memory.ExtractiveSummarizer{}
		log.Printf("assistant: mock (no ANTHROPIC_API_KEY)")
	}

	manager := memory.NewManager(memoryStore, summarizer, cfg.SummaryInterval, cfg.KeepLastN)
	chatService := chat.NewService(manager, assistant, metrics)

	api := httpapi.New(cfg, chatService, metrics, kb.Rows)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
