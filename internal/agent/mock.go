package agent

import (
	"context"
	"fmt"
	"strings"
)

// MockAgent is a canned-response agent used when no model API key is
// configured and in tests. It echoes the user message, streaming it word
// by word when a delta callback is set.
type MockAgent struct{}

func (MockAgent) Invoke(_ context.Context, inv Invocation) (*Result, error) {
	reply := fmt.Sprintf("I hear you. You said: %q. A configured model would give a real answer here.", inv.UserMessage)
	if inv.OnDelta != nil {
		for _, word := range strings.SplitAfter(reply, " ") {
			inv.OnDelta(word)
		}
	}
	return &Result{
		Reply:  reply,
		Blocks: []Block{{Kind: BlockText, Text: reply}},
	}, nil
}

var _ Agent = MockAgent{}
