package protocol

import (
	"errors"
	"testing"

	"github.com/ent0n29/folio/internal/conversation"
)

func TestParseClientMessageUserMessage(t *testing.T) {
	raw := []byte(`{"type":"user_message","session_id":"s1","text":"what's the time?"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	um, ok := msg.(UserMessage)
	if !ok {
		t.Fatalf("message type = %T, want UserMessage", msg)
	}
	if um.SessionID != "s1" || um.Text != "what's the time?" {
		t.Fatalf("unexpected user message: %+v", um)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":" Reset "}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.SessionID != "s1" || control.Action != ActionReset {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"type":"user_message","text":"hi"}`,
		`{"type":"client_control","session_id":"s1","action":"stop"}`,
		`{"type":"client_control","action":"reset"}`,
	} {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("ParseClientMessage(%s) expected error", raw)
		}
	}
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot("s1", conversation.Snapshot{
		Turns:   []conversation.Turn{{Role: conversation.RoleAssistant, Content: "Hi there!"}},
		Pending: true,
	})
	if snap.Type != TypeTranscriptSnapshot || snap.SessionID != "s1" || !snap.Pending || len(snap.Turns) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func BenchmarkParseClientMessageUserMessage(b *testing.B) {
	raw := []byte(`{"type":"user_message","session_id":"s1","text":"tell me about your projects"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(UserMessage); !ok {
			b.Fatalf("message type = %T, want UserMessage", msg)
		}
	}
}
