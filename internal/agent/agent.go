// Package agent runs the assistant reply loop: given conversation context
// and a user message it produces a reply, calling the retrieval and web
// search tools as needed.
package agent

import (
	"context"
	"strings"

	"github.com/wellnest/assistant/internal/memory"
)

// BlockKind tags a response block variant.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolOutput BlockKind = "tool_output"
)

// Block is one element of the assistant's response stream. Text blocks
// carry model prose; tool output blocks carry a structured tool result
// that also has a legacy text rendering.
type Block struct {
	Kind   BlockKind
	Text   string
	Output *ToolOutput
}

// FlattenBlocks renders all blocks to one transcript string, the form the
// pattern-based citation fallback scans.
func FlattenBlocks(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		switch blk.Kind {
		case BlockText:
			b.WriteString(blk.Text)
		case BlockToolOutput:
			if blk.Output != nil {
				b.WriteString(blk.Output.Render())
			}
		}
	}
	return b.String()
}

// Invocation is one assistant turn request.
type Invocation struct {
	// System is the system prompt.
	System string

	// Context is the prior conversation, as produced by the memory
	// manager. System-role entries are folded into the system prompt.
	Context []memory.Message

	// UserMessage is the new user message.
	UserMessage string

	// OnDelta, when set, receives reply text fragments as the model
	// streams them. The full reply is still returned at the end.
	OnDelta func(delta string)
}

// Result is the outcome of one assistant turn.
type Result struct {
	// Reply is the assistant's prose answer.
	Reply string

	// Blocks is the full response stream in order, tool outputs included.
	Blocks []Block

	// ToolOutputs collects every tool result produced during the turn,
	// the primary input to citation extraction.
	ToolOutputs []ToolOutput
}

// Agent produces one assistant reply per invocation.
type Agent interface {
	Invoke(ctx context.Context, inv Invocation) (*Result, error)
}
