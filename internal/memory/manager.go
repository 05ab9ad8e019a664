package memory

import (
	"context"
	"fmt"
)

// Manager owns all conversation-document mutation: turn accounting, context
// assembly, and periodic compaction of old turns into a running summary.
//
// A document cycles between growing (turns appended verbatim) and
// compacting: when the monotonic user-turn counter hits a multiple of the
// summary interval, the full message sequence is folded into the summary
// and only the most recent complete pairs are kept verbatim.
type Manager struct {
	store      Store
	summarizer Summarizer
	interval   int
	keepLastN  int
}

func NewManager(store Store, summarizer Summarizer, interval, keepLastN int) *Manager {
	return &Manager{
		store:      store,
		summarizer: summarizer,
		interval:   interval,
		keepLastN:  keepLastN,
	}
}

// LoadContext assembles the exact message sequence handed to the reasoning
// step: a synthetic system entry carrying the summary (when non-empty)
// followed by the verbatim recent messages in order. Read-only; calling it
// twice without an intervening RecordTurn yields identical output.
func (m *Manager) LoadContext(ctx context.Context, key string, signedIn bool) ([]Message, error) {
	doc, err := m.store.Load(ctx, key, signedIn)
	if err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(doc.Messages)+1)
	if doc.Summary != "" {
		out = append(out, Message{
			Role:    RoleSystem,
			Content: fmt.Sprintf("Conversation summary:\n%s", doc.Summary),
		})
	}
	out = append(out, doc.Messages...)
	return out, nil
}

// RecordTurn appends the user/assistant pair, runs compaction when the turn
// counter reaches the summary interval, and persists the document. Exactly
// one store write per call; the summarizer runs only on compaction turns.
// Reports whether a compaction happened. On any error nothing is persisted
// and the stored document keeps its prior state.
func (m *Manager) RecordTurn(ctx context.Context, key string, signedIn bool, userMessage, assistantMessage string) (compacted bool, err error) {
	doc, err := m.store.Load(ctx, key, signedIn)
	if err != nil {
		return false, err
	}

	doc.Messages = append(doc.Messages,
		Message{Role: RoleUser, Content: userMessage},
		Message{Role: RoleAssistant, Content: assistantMessage},
	)
	doc.Turns++

	if doc.Turns > 0 && doc.Turns%m.interval == 0 {
		summary, err := m.summarizer.Summarize(ctx, doc.Summary, doc.Messages)
		if err != nil {
			return false, err
		}
		doc.Summary = summary
		doc.Messages = lastCompletePairs(doc.Messages, m.keepLastN)
		compacted = true
	}

	if err := m.store.Save(ctx, key, signedIn, doc); err != nil {
		return false, err
	}
	return compacted, nil
}

// lastCompletePairs scans backward collecting up to n adjacent
// (user, assistant) pairs and returns them in original chronological order.
// Entries that do not form a complete pair are skipped, not an error:
// malformed history should not wedge compaction.
func lastCompletePairs(msgs []Message, n int) []Message {
	collected := make([]Message, 0, 2*n)
	i := len(msgs) - 1
	for i >= 1 && len(collected) < 2*n {
		if msgs[i].Role == RoleAssistant && msgs[i-1].Role == RoleUser {
			collected = append(collected, msgs[i-1], msgs[i])
			i -= 2
			continue
		}
		i--
	}

	// collected holds pairs newest-first; restore chronological order.
	out := make([]Message, 0, len(collected))
	for j := len(collected) - 2; j >= 0; j -= 2 {
		out = append(out, collected[j], collected[j+1])
	}
	return out
}
