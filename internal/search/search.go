// Package search provides the web search capability the assistant can
// call as a tool. When no provider is configured the Noop client keeps
// the tool callable but always empty-handed, so the rest of the service
// degrades instead of failing.
package search

import "context"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Client performs a web search and returns up to maxResults hits.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Noop is the degraded client used when no search provider is
// configured. It never errors and never returns results.
type Noop struct{}

func (Noop) Search(context.Context, string, int) ([]Result, error) {
	return nil, nil
}

var _ Client = Noop{}
