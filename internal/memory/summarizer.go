package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/wellnest/assistant/internal/reliability"
)

// Summarizer folds a conversation into a short running narrative. The
// existing summary is passed in so the new one can extend it rather than
// start over.
type Summarizer interface {
	Summarize(ctx context.Context, existingSummary string, messages []Message) (string, error)
}

const summarizerPrompt = "You maintain a running summary of a healthcare support conversation. " +
	"Merge the previous summary with the new transcript into a concise narrative (3-5 sentences). " +
	"Keep reported symptoms, durations, medications, advice already given, and follow-ups still open. " +
	"Reply with the summary only."

// AnthropicSummarizer produces summaries with a single non-streaming model
// call per compaction.
type AnthropicSummarizer struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicSummarizer(client *anthropic.Client, model string) *AnthropicSummarizer {
	return &AnthropicSummarizer{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: 512,
	}
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, existingSummary string, messages []Message) (string, error) {
	if len(messages) == 0 {
		return existingSummary, nil
	}

	var b strings.Builder
	if existingSummary != "" {
		fmt.Fprintf(&b, "Previous summary:\n%s\n\n", existingSummary)
	}
	b.WriteString("Transcript:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: summarizerPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(b.String())),
		},
	})
	if err != nil {
		return "", reliability.Mark(reliability.KindUpstream, fmt.Errorf("summarize conversation: %w", err))
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	summary := strings.TrimSpace(out.String())
	if summary == "" {
		return "", reliability.Mark(reliability.KindUpstream, fmt.Errorf("summarize conversation: empty model response"))
	}
	return summary, nil
}

var _ Summarizer = (*AnthropicSummarizer)(nil)
