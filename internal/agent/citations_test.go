package agent

import (
	"reflect"
	"testing"
)

func TestExtractCitationsFromToolOutputs(t *testing.T) {
	outputs := []ToolOutput{
		{Kind: OutputRAG, Title: "flu.txt", Text: "chunk"},
		{Kind: OutputRAG, Title: "flu.txt", Text: "another chunk"},
		{Kind: OutputWeb, Title: "Fever basics", URL: "https://example.org/fever", Text: "content"},
	}

	got := ExtractCitations(outputs, "")
	want := []Citation{
		{Type: "rag", Source: "flu.txt"},
		{Type: "web", Title: "Fever basics", URL: "https://example.org/fever"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractCitations() = %+v, want %+v", got, want)
	}
}

func TestExtractCitationsPatternFallback(t *testing.T) {
	transcript := "Based on what I found:\n" +
		"[RAG] Source: sleep.txt\nSleep hygiene matters.\n" +
		"[WEB] Clinic hours | https://example.org/clinic\nOpen weekdays.\n"

	got := ExtractCitations(nil, transcript)
	want := []Citation{
		{Type: "rag", Source: "sleep.txt"},
		{Type: "web", Title: "Clinic hours", URL: "https://example.org/clinic"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractCitations() = %+v, want %+v", got, want)
	}
}

func TestExtractCitationsDedupesAcrossSources(t *testing.T) {
	outputs := []ToolOutput{
		{Kind: OutputRAG, Title: "flu.txt", Text: "chunk"},
	}
	// The same source also shows up in the transcript rendering; it must
	// not be counted twice.
	transcript := "[RAG] Source: flu.txt\nchunk\n[RAG] Source: diet.txt\nother"

	got := ExtractCitations(outputs, transcript)
	want := []Citation{
		{Type: "rag", Source: "flu.txt"},
		{Type: "rag", Source: "diet.txt"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractCitations() = %+v, want %+v", got, want)
	}
}

func TestExtractCitationsFirstSeenOrder(t *testing.T) {
	transcript := "[WEB] B | https://example.org/b\n...\n[WEB] A | https://example.org/a\n...\n[WEB] B | https://example.org/b\n"

	got := ExtractCitations(nil, transcript)
	want := []Citation{
		{Type: "web", Title: "B", URL: "https://example.org/b"},
		{Type: "web", Title: "A", URL: "https://example.org/a"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractCitations() = %+v, want %+v", got, want)
	}
}

func TestExtractCitationsKeepsRetitledWebHits(t *testing.T) {
	// Same page surfaced under two titles is two distinct citations.
	outputs := []ToolOutput{
		{Kind: OutputWeb, Title: "Fever basics", URL: "https://example.org/fever"},
		{Kind: OutputWeb, Title: "Fever FAQ", URL: "https://example.org/fever"},
	}

	got := ExtractCitations(outputs, "")
	want := []Citation{
		{Type: "web", Title: "Fever basics", URL: "https://example.org/fever"},
		{Type: "web", Title: "Fever FAQ", URL: "https://example.org/fever"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractCitations() = %+v, want %+v", got, want)
	}
}

func TestExtractCitationsUntitledWebFallback(t *testing.T) {
	outputs := []ToolOutput{
		{Kind: OutputWeb, Title: "", URL: "https://example.org/page"},
	}

	got := ExtractCitations(outputs, "")
	want := []Citation{
		{Type: "web", Title: "web", URL: "https://example.org/page"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractCitations() = %+v, want %+v", got, want)
	}
}

func TestExtractCitationsEmpty(t *testing.T) {
	if got := ExtractCitations(nil, "plain reply with no tags"); got != nil {
		t.Fatalf("ExtractCitations() = %+v, want nil", got)
	}
}
