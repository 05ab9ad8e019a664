package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wellnest/assistant/internal/reliability"
)

const defaultSearchTimeout = 20 * time.Second

// TavilyConfig configures the Tavily search client.
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Tavily implements Client over the Tavily search API. Safe for
// concurrent use.
type Tavily struct {
	cfg    TavilyConfig
	client *http.Client
}

func NewTavily(cfg TavilyConfig) *Tavily {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultSearchTimeout
	}
	return &Tavily{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:     t.cfg.APIKey,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("search: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.cfg.BaseURL+"/search",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("search: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("search: http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("search: read response body: %w", err))
	}
	if resp.StatusCode >= 400 {
		return nil, reliability.MarkUpstreamStatus(resp.StatusCode,
			fmt.Errorf("search: unexpected HTTP status %d", resp.StatusCode))
	}

	var tavilyResp tavilyResponse
	if err := json.Unmarshal(respBody, &tavilyResp); err != nil {
		return nil, reliability.Mark(reliability.KindUpstream,
			fmt.Errorf("search: decode response: %w", err))
	}

	results := make([]Result, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
		results = append(results, Result(r))
	}
	return results, nil
}

var _ Client = (*Tavily)(nil)
