package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/wellnest/assistant/internal/agent"
)

func TestParseClientMessage(t *testing.T) {
	raw := []byte(`{"type":"client_message","session_id":"s1","text":"I have a headache","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	cm, ok := msg.(ClientMessage)
	if !ok {
		t.Fatalf("message type = %T, want ClientMessage", msg)
	}
	if cm.SessionID != "s1" || cm.Text != "I have a headache" {
		t.Fatalf("unexpected client message: %+v", cm)
	}
	if cm.TSMs != 123 {
		t.Fatalf("TSMs = %d, want 123", cm.TSMs)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsEmptyText(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_message","session_id":"s1","text":"   "}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsInvalidJSON(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{`))
	if err == nil {
		t.Fatalf("expected envelope error")
	}
}

func TestAssistantTurnEndSerializesCitations(t *testing.T) {
	end := AssistantTurnEnd{
		Type:      TypeAssistantTurnEnd,
		SessionID: "s1",
		TurnID:    "t1",
		Reply:     "Rest and drink fluids.",
		Citations: []agent.Citation{{Type: "rag", Source: "flu.txt"}},
		Reason:    "complete",
	}
	data, err := json.Marshal(end)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	citations, ok := decoded["citations"].([]any)
	if !ok || len(citations) != 1 {
		t.Fatalf("citations = %v", decoded["citations"])
	}
	first := citations[0].(map[string]any)
	if first["source"] != "flu.txt" || first["type"] != "rag" {
		t.Fatalf("citation = %v", first)
	}
}
