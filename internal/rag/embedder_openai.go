package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wellnest/assistant/internal/reliability"
)

const defaultEmbeddingTimeout = 60 * time.Second

// OpenAIEmbedderConfig configures the embeddings client.
type OpenAIEmbedderConfig struct {
	// APIKey is the bearer token. Required: embedding has no degraded mode.
	APIKey string

	// BaseURL is the API endpoint, e.g. https://api.openai.com/v1. Works
	// with any OpenAI-compatible embeddings server.
	BaseURL string

	// Model is the embedding model id.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 60 s; ingestion
	// batches can be large.
	Timeout time.Duration
}

// OpenAIEmbedder implements Embedder over the OpenAI-compatible
// /embeddings API, sending each batch as a single request. Safe for
// concurrent use.
type OpenAIEmbedder struct {
	cfg    OpenAIEmbedderConfig
	client *http.Client
}

func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) *OpenAIEmbedder {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultEmbeddingTimeout
	}
	return &OpenAIEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal embeddings wire types ---

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// Embed produces one vector per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.cfg.APIKey == "" {
		return nil, reliability.Mark(reliability.KindConfiguration,
			errors.New("embedder: EMBEDDING_API_KEY is not set"))
	}

	body := embeddingRequest{Input: texts, Model: e.cfg.Model}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.cfg.BaseURL+"/embeddings",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("embedder: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("embedder: http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("embedder: read response body: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, reliability.MarkUpstreamStatus(resp.StatusCode,
			fmt.Errorf("embedder: unexpected HTTP status %d", resp.StatusCode))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("embedder: decode response: %w", err))
	}

	if embResp.Error != nil {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("embedder: API error (%s): %s", embResp.Error.Type, embResp.Error.Message))
	}
	if len(embResp.Data) != len(texts) {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("embedder: got %d embeddings for %d inputs", len(embResp.Data), len(texts)))
	}

	// The API reports an index per item; order by it rather than trusting
	// response order.
	out := make([][]float32, len(texts))
	for _, d := range embResp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, reliability.Mark(reliability.KindUpstream,
				fmt.Errorf("embedder: embedding index %d out of range", d.Index))
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, reliability.Mark(reliability.KindUpstream,
				fmt.Errorf("embedder: missing embedding for input %d", i))
		}
	}
	return out, nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
