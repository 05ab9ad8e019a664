package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/wellnest/assistant/internal/memory"
	"github.com/wellnest/assistant/internal/reliability"
)

// AnthropicAgentConfig configures the Claude-backed agent.
type AnthropicAgentConfig struct {
	Model     anthropic.Model
	MaxTokens int64

	// MaxSteps bounds the tool loop: each step is one model call. A turn
	// that still wants tools after the last step fails rather than
	// looping forever.
	MaxSteps int
}

// AnthropicAgent implements Agent on the Claude Messages API with a
// bounded tool loop.
type AnthropicAgent struct {
	client *anthropic.Client
	cfg    AnthropicAgentConfig
	tools  []ToolDefinition
}

func NewAnthropicAgent(client *anthropic.Client, cfg AnthropicAgentConfig, tools []ToolDefinition) *AnthropicAgent {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 8
	}
	return &AnthropicAgent{client: client, cfg: cfg, tools: tools}
}

func (a *AnthropicAgent) apiTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(a.tools))
	for _, t := range a.tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

// buildConversation converts memory messages to API params. System-role
// entries (the running summary) are folded into the system prompt text
// instead of the message list.
func buildConversation(system string, context []memory.Message, userMessage string) (string, []anthropic.MessageParam) {
	systemParts := []string{system}
	messages := make([]anthropic.MessageParam, 0, len(context)+1)
	for _, m := range context {
		switch m.Role {
		case memory.RoleSystem:
			systemParts = append(systemParts, m.Content)
		case memory.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))
	return strings.Join(systemParts, "\n\n"), messages
}

// Invoke runs the tool loop until the model answers without requesting a
// tool, then returns the accumulated reply and tool outputs.
func (a *AnthropicAgent) Invoke(ctx context.Context, inv Invocation) (*Result, error) {
	system, messages := buildConversation(inv.System, inv.Context, inv.UserMessage)

	result := &Result{}
	for step := 0; step < a.cfg.MaxSteps; step++ {
		params := anthropic.MessageNewParams{
			Model:     a.cfg.Model,
			MaxTokens: a.cfg.MaxTokens,
			Messages:  messages,
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
		}
		if len(a.tools) > 0 {
			params.Tools = a.apiTools()
		}

		var resp *anthropic.Message
		var err error
		if inv.OnDelta != nil {
			resp, err = a.createStreaming(ctx, params, inv.OnDelta)
		} else {
			resp, err = a.client.Messages.New(ctx, params)
		}
		if err != nil {
			return nil, reliability.Mark(reliability.KindUpstream,
				fmt.Errorf("assistant: message request: %w", err))
		}

		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				result.Reply += block.Text
				result.Blocks = append(result.Blocks, Block{Kind: BlockText, Text: block.Text})
			case "tool_use":
				resultBlock := a.execTool(ctx, result, block.ID, block.Name, block.Input)
				toolResults = append(toolResults, resultBlock)
			}
		}

		if len(toolResults) == 0 {
			return result, nil
		}
		messages = append(messages, resp.ToParam())
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}

	return nil, reliability.Mark(reliability.KindUpstream,
		fmt.Errorf("assistant: tool loop did not settle within %d steps", a.cfg.MaxSteps))
}

// execTool runs one tool call, records its outputs on the result, and
// builds the tool_result block for the next model call. Tool failures go
// back to the model as error results rather than aborting the turn.
func (a *AnthropicAgent) execTool(ctx context.Context, result *Result, id, name string, input []byte) anthropic.ContentBlockParamUnion {
	var def *ToolDefinition
	for i := range a.tools {
		if a.tools[i].Name == name {
			def = &a.tools[i]
			break
		}
	}
	if def == nil {
		return anthropic.NewToolResultBlock(id, fmt.Sprintf("unknown tool: %s", name), true)
	}

	outputs, err := def.Run(ctx, input)
	if err != nil {
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}
	for _, o := range outputs {
		out := o
		result.ToolOutputs = append(result.ToolOutputs, out)
		result.Blocks = append(result.Blocks, Block{Kind: BlockToolOutput, Output: &out})
	}
	return anthropic.NewToolResultBlock(id, renderToolResult(outputs), false)
}

// createStreaming issues a streaming request, forwarding text deltas to
// the callback while accumulating the complete message.
func (a *AnthropicAgent) createStreaming(ctx context.Context, params anthropic.MessageNewParams, onDelta func(string)) (*anthropic.Message, error) {
	stream := a.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("assistant: accumulate stream event: %w", err)
		}
		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := evt.Delta.AsAny().(anthropic.TextDelta); ok {
				onDelta(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &message, nil
}

var _ Agent = (*AnthropicAgent)(nil)
