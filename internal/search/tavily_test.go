package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wellnest/assistant/internal/reliability"
)

func TestTavilySearch(t *testing.T) {
	var gotReq tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Flu guidance", "url": "https://example.org/flu", "content": "Rest and fluids."},
				{"title": "Fever basics", "url": "https://example.org/fever", "content": "When to see a doctor."},
			},
		})
	}))
	defer srv.Close()

	client := NewTavily(TavilyConfig{APIKey: "key", BaseURL: srv.URL})
	results, err := client.Search(context.Background(), "flu symptoms", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotReq.APIKey != "key" || gotReq.Query != "flu symptoms" || gotReq.MaxResults != 3 {
		t.Fatalf("request = %+v", gotReq)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	want := Result{Title: "Flu guidance", URL: "https://example.org/flu", Content: "Rest and fluids."}
	if results[0] != want {
		t.Fatalf("results[0] = %+v, want %+v", results[0], want)
	}
}

func TestTavilySearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewTavily(TavilyConfig{APIKey: "key", BaseURL: srv.URL})
	_, err := client.Search(context.Background(), "q", 1)
	if err == nil {
		t.Fatalf("Search() error = nil, want upstream error")
	}
	if kind := reliability.KindOf(err); kind != reliability.KindUpstream {
		t.Fatalf("KindOf(err) = %v, want %v", kind, reliability.KindUpstream)
	}
	if !reliability.Retryable(err) {
		t.Fatalf("rate-limited search should be retryable")
	}
}

func TestTavilySearchAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewTavily(TavilyConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := client.Search(context.Background(), "q", 1)
	if err == nil {
		t.Fatalf("Search() error = nil, want configuration error")
	}
	if kind := reliability.KindOf(err); kind != reliability.KindConfiguration {
		t.Fatalf("KindOf(err) = %v, want %v", kind, reliability.KindConfiguration)
	}
	if reliability.Retryable(err) {
		t.Fatalf("rejected credentials are not retryable")
	}
}

func TestNoopSearch(t *testing.T) {
	results, err := Noop{}.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0", len(results))
	}
}
