package memory

import (
	"context"
	"strings"
)

const defaultMaxTopics = 8

// ExtractiveSummarizer is the model-free fallback used when no API key is
// configured. It keeps a rolling "Topics discussed" line built from the
// user's messages, so compaction still bounds memory in mock mode.
type ExtractiveSummarizer struct {
	// MaxTopics caps the rolling topic list. Zero means 8.
	MaxTopics int
}

const topicsPrefix = "Topics discussed: "

func (s ExtractiveSummarizer) Summarize(_ context.Context, existingSummary string, messages []Message) (string, error) {
	max := s.MaxTopics
	if max <= 0 {
		max = defaultMaxTopics
	}

	var topics []string
	if rest, ok := strings.CutPrefix(existingSummary, topicsPrefix); ok {
		for _, t := range strings.Split(rest, "; ") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		topics = append(topics, topicOf(m.Content))
	}
	if len(topics) > max {
		topics = topics[len(topics)-max:]
	}
	if len(topics) == 0 {
		return existingSummary, nil
	}
	return topicsPrefix + strings.Join(topics, "; "), nil
}

// topicOf clips a message to its first clause.
func topicOf(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.IndexAny(content, ".!?\n"); i > 0 {
		content = content[:i]
	}
	const maxRunes = 80
	r := []rune(content)
	if len(r) > maxRunes {
		content = string(r[:maxRunes])
	}
	return content
}

var _ Summarizer = ExtractiveSummarizer{}
