package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/folio/internal/conversation"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage        MessageType = "user_message"
	TypeClientControl      MessageType = "client_control"
	TypeTranscriptSnapshot MessageType = "transcript_snapshot"
	TypeAssistantTurn      MessageType = "assistant_turn"
	TypeSystemEvent        MessageType = "system_event"
	TypeErrorEvent         MessageType = "error_event"
)

// Client control actions.
const (
	ActionReset    = "reset"
	ActionSnapshot = "snapshot"
)

// System event codes.
const (
	EventConversationReset = "conversation_reset"
	EventPending           = "pending"
	EventIgnored           = "ignored"
)

// Error event codes.
const (
	ErrorAssistantUnavailable = "assistant_unavailable"
	ErrorInvalidClientMessage = "invalid_client_message"
	ErrorBusy                 = "busy"
	ErrorRateLimited          = "rate_limited"
	ErrorSessionNotFound      = "session_not_found"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type UserMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type TranscriptSnapshot struct {
	Type      MessageType         `json:"type"`
	SessionID string              `json:"session_id"`
	Turns     []conversation.Turn `json:"turns"`
	Pending   bool                `json:"pending"`
	UserName  string              `json:"user_name,omitempty"`
}

type AssistantTurn struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func NewSnapshot(sessionID string, snap conversation.Snapshot) TranscriptSnapshot {
	return TranscriptSnapshot{
		Type:      TypeTranscriptSnapshot,
		SessionID: sessionID,
		Turns:     snap.Turns,
		Pending:   snap.Pending,
		UserName:  snap.UserName,
	}
}

// ParseClientMessage decodes a client frame. Blank user text is valid here;
// the conversation store ignores it.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid user_message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.Action = strings.ToLower(strings.TrimSpace(msg.Action))
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_control")
		}
		switch msg.Action {
		case ActionReset, ActionSnapshot:
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
