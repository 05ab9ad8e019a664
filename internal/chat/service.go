// Package chat orchestrates one conversational turn: redact, recall
// context, invoke the agent, extract citations, record the exchange.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wellnest/assistant/internal/agent"
	"github.com/wellnest/assistant/internal/memory"
	"github.com/wellnest/assistant/internal/observability"
	"github.com/wellnest/assistant/internal/policy"
	"github.com/wellnest/assistant/internal/reliability"
)

// systemPrompt frames every assistant turn. Tool hints stay in the tool
// descriptions; this covers tone and safety posture.
const systemPrompt = `You are Wellnest, a warm and careful health and wellness assistant.

GUIDELINES:
- Be supportive and conversational; answer in plain language.
- Ground health answers in the knowledge base when it has relevant material, and say so.
- You are not a doctor. For anything that sounds urgent or serious, advise seeing a medical professional.
- Never invent sources. Only reference material the tools returned.`

// Identity names the conversation owner. Signed-in users get durable
// memory; guests get the in-process store.
type Identity struct {
	Key      string
	SignedIn bool
}

func (id Identity) label() string {
	if id.SignedIn {
		return "signed_in"
	}
	return "guest"
}

// Turn is the outcome of one handled chat message.
type Turn struct {
	Reply     string           `json:"reply"`
	Citations []agent.Citation `json:"citations"`
	Compacted bool             `json:"-"`
}

// Service wires the memory manager and the agent into the chat flow.
type Service struct {
	memory  *memory.Manager
	agent   agent.Agent
	metrics *observability.Metrics
}

func NewService(mem *memory.Manager, ag agent.Agent, metrics *observability.Metrics) *Service {
	return &Service{memory: mem, agent: ag, metrics: metrics}
}

// Handle processes one user message and returns the completed turn.
func (s *Service) Handle(ctx context.Context, id Identity, text string) (*Turn, error) {
	return s.handle(ctx, id, text, nil)
}

// HandleStream is Handle with reply fragments forwarded to onDelta as
// the model produces them.
func (s *Service) HandleStream(ctx context.Context, id Identity, text string, onDelta func(string)) (*Turn, error) {
	return s.handle(ctx, id, text, onDelta)
}

func (s *Service) handle(ctx context.Context, id Identity, text string, onDelta func(string)) (*Turn, error) {
	start := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, reliability.Mark(reliability.KindRequest, errors.New("chat: empty message"))
	}
	// Contact details have no business in the transcript or the durable
	// store. Symptoms and complaints stay verbatim.
	text, _ = policy.RedactPII(text)

	turn, err := s.run(ctx, id, text, onDelta)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.metrics.ProviderErrors.WithLabelValues("chat", string(reliability.KindOf(err))).Inc()
	}
	s.metrics.ChatTurns.WithLabelValues(id.label(), outcome).Inc()
	s.metrics.ObserveChatLatency(time.Since(start))
	return turn, err
}

func (s *Service) run(ctx context.Context, id Identity, text string, onDelta func(string)) (*Turn, error) {
	history, err := s.memory.LoadContext(ctx, id.Key, id.SignedIn)
	if err != nil {
		return nil, err
	}

	result, err := s.agent.Invoke(ctx, agent.Invocation{
		System:      systemPrompt,
		Context:     history,
		UserMessage: text,
		OnDelta:     onDelta,
	})
	if err != nil {
		return nil, err
	}

	retrieved := 0
	for _, o := range result.ToolOutputs {
		if o.Kind == agent.OutputRAG {
			retrieved++
		}
	}
	s.metrics.RetrievalResults.Observe(float64(retrieved))

	citations := agent.ExtractCitations(result.ToolOutputs, agent.FlattenBlocks(result.Blocks))

	// The caller sees the reply verbatim; the stored copy is redacted the
	// same way user text is.
	storedReply, _ := policy.RedactPII(result.Reply)
	compacted, err := s.memory.RecordTurn(ctx, id.Key, id.SignedIn, text, storedReply)
	if err != nil {
		return nil, err
	}
	if compacted {
		s.metrics.Compactions.Inc()
	}

	return &Turn{Reply: result.Reply, Citations: citations, Compacted: compacted}, nil
}
