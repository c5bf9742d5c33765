package session

import (
	"time"

	"github.com/ent0n29/folio/internal/conversation"
)

// View is the JSON shape returned for a session.
type View struct {
	SessionID       string                `json:"session_id"`
	Status          Status                `json:"status"`
	StartedAt       time.Time             `json:"started_at"`
	LastActivityAt  time.Time             `json:"last_activity_at"`
	InactivityTTLMS int64                 `json:"inactivity_ttl_ms"`
	Conversation    conversation.Snapshot `json:"conversation"`
}
