package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	WSIdleTimeout    time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	// Conversation memory policy.
	SummaryInterval int
	KeepLastN       int

	// Retrieval settings.
	TopK         int
	ChunkSize    int
	ChunkOverlap int
	DataDir      string
	VectorDir    string

	// Embedding provider (OpenAI-compatible endpoint).
	EmbeddingAPIKey  string
	EmbeddingBaseURL string
	EmbeddingModel   string
	EmbeddingDim     int

	// Reasoning agent. The Anthropic SDK reads ANTHROPIC_API_KEY itself;
	// it is mirrored here so startup can pick the mock agent when unset.
	AnthropicAPIKey    string
	AssistantModel     string
	AssistantMaxTokens int
	AssistantMaxSteps  int

	// Web search provider.
	TavilyAPIKey  string
	TavilyBaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "wellnest"),
		AllowAnyOrigin:   false,
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		SummaryInterval:  12,
		KeepLastN:        4,
		TopK:             5,
		ChunkSize:        800,
		ChunkOverlap:     120,
		DataDir:          envOrDefault("DATA_DIR", "data"),
		VectorDir:        envOrDefault("VECTOR_DIR", "vectorstore"),
		EmbeddingAPIKey:  stringsTrimSpace("EMBEDDING_API_KEY"),
		EmbeddingBaseURL: envOrDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:   envOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:     1536,
		AnthropicAPIKey:  stringsTrimSpace("ANTHROPIC_API_KEY"),
		AssistantModel:   envOrDefault("ASSISTANT_MODEL", "claude-sonnet-4-20250514"),
		// 4096 covers long evidence-grounded answers without runaway cost.
		AssistantMaxTokens: 4096,
		AssistantMaxSteps:  8,
		TavilyAPIKey:       stringsTrimSpace("TAVILY_API_KEY"),
		TavilyBaseURL:      envOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
		ShutdownTimeout:    15 * time.Second,
		WSIdleTimeout:      120 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WSIdleTimeout, err = durationFromEnv("APP_WS_IDLE_TIMEOUT", cfg.WSIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	for _, opt := range []struct {
		key string
		dst *int
	}{
		{"SUMMARY_INTERVAL", &cfg.SummaryInterval},
		{"KEEP_LAST_N", &cfg.KeepLastN},
		{"TOP_K", &cfg.TopK},
		{"CHUNK_SIZE", &cfg.ChunkSize},
		{"CHUNK_OVERLAP", &cfg.ChunkOverlap},
		{"EMBEDDING_DIM", &cfg.EmbeddingDim},
		{"ASSISTANT_MAX_TOKENS", &cfg.AssistantMaxTokens},
		{"ASSISTANT_MAX_STEPS", &cfg.AssistantMaxSteps},
	} {
		*opt.dst, err = intFromEnv(opt.key, *opt.dst)
		if err != nil {
			return Config{}, err
		}
	}

	if cfg.SummaryInterval <= 0 {
		return Config{}, fmt.Errorf("SUMMARY_INTERVAL must be positive")
	}
	if cfg.KeepLastN <= 0 {
		return Config{}, fmt.Errorf("KEEP_LAST_N must be positive")
	}
	if cfg.TopK <= 0 {
		return Config{}, fmt.Errorf("TOP_K must be positive")
	}
	if cfg.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if cfg.ChunkOverlap < 0 {
		return Config{}, fmt.Errorf("CHUNK_OVERLAP must be >= 0")
	}
	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if cfg.AssistantMaxTokens <= 0 {
		return Config{}, fmt.Errorf("ASSISTANT_MAX_TOKENS must be positive")
	}
	if cfg.AssistantMaxSteps <= 0 {
		return Config{}, fmt.Errorf("ASSISTANT_MAX_STEPS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
