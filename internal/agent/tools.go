package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/wellnest/assistant/internal/rag"
	"github.com/wellnest/assistant/internal/search"
)

// ToolOutputKind tags the provenance of a tool result.
type ToolOutputKind string

const (
	OutputRAG ToolOutputKind = "rag"
	OutputWeb ToolOutputKind = "web"
)

// ToolOutput is one structured tool result. Title holds the source
// document name for retrieval hits and the page title for web hits.
type ToolOutput struct {
	Kind  ToolOutputKind
	Title string
	URL   string
	Text  string
}

// Render produces the tagged text form sent back to the model. The tags
// double as the pattern the citation fallback recognizes.
func (o ToolOutput) Render() string {
	switch o.Kind {
	case OutputWeb:
		return fmt.Sprintf("[WEB] %s | %s\n%s", o.Title, o.URL, o.Text)
	default:
		return fmt.Sprintf("[RAG] Source: %s\n%s", o.Title, o.Text)
	}
}

// ToolDefinition pairs a model-facing tool declaration with its handler.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Run         func(ctx context.Context, input json.RawMessage) ([]ToolOutput, error)
}

// Retriever is the slice of the retrieval store the knowledge base tool
// needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]rag.Result, error)
}

type queryInput struct {
	Query string `json:"query"`
}

func queryInputSchema(description string) anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Properties: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		Required: []string{"query"},
	}
}

// RetrievalTool searches the local health knowledge base.
func RetrievalTool(retriever Retriever, topK int) ToolDefinition {
	return ToolDefinition{
		Name: "search_knowledge_base",
		Description: "Search the curated health knowledge base for information " +
			"relevant to the user's question. Use this before answering medical " +
			"or wellness questions.",
		InputSchema: queryInputSchema("What to look up in the knowledge base."),
		Run: func(ctx context.Context, input json.RawMessage) ([]ToolOutput, error) {
			var in queryInput
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("search_knowledge_base: decode input: %w", err)
			}
			results, err := retriever.Retrieve(ctx, in.Query, topK)
			if err != nil {
				return nil, err
			}
			outputs := make([]ToolOutput, 0, len(results))
			for _, r := range results {
				outputs = append(outputs, ToolOutput{
					Kind:  OutputRAG,
					Title: r.Source,
					Text:  r.Text,
				})
			}
			return outputs, nil
		},
	}
}

// WebSearchTool searches the web for current information. With the noop
// search client it stays callable but always comes back empty.
func WebSearchTool(client search.Client, maxResults int) ToolDefinition {
	return ToolDefinition{
		Name: "search_web",
		Description: "Search the web for current information not covered by " +
			"the knowledge base, such as recent health news or local services.",
		InputSchema: queryInputSchema("The web search query."),
		Run: func(ctx context.Context, input json.RawMessage) ([]ToolOutput, error) {
			var in queryInput
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("search_web: decode input: %w", err)
			}
			results, err := client.Search(ctx, in.Query, maxResults)
			if err != nil {
				return nil, err
			}
			outputs := make([]ToolOutput, 0, len(results))
			for _, r := range results {
				outputs = append(outputs, ToolOutput{
					Kind:  OutputWeb,
					Title: r.Title,
					URL:   r.URL,
					Text:  r.Content,
				})
			}
			return outputs, nil
		},
	}
}

// renderToolResult joins tool outputs into the text returned to the model.
func renderToolResult(outputs []ToolOutput) string {
	if len(outputs) == 0 {
		return "No relevant information found."
	}
	parts := make([]string, 0, len(outputs))
	for _, o := range outputs {
		parts = append(parts, o.Render())
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n\n" + p
	}
	return out
}
