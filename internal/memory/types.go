package memory

import (
	"context"
	"time"
)

// Record is one logged transcript turn. The log is diagnostic only; live
// conversations are never rebuilt from it.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store appends and reads transcript log records.
type Store interface {
	Append(ctx context.Context, record Record) error
	// Recent returns up to limit records for the session in chronological order.
	Recent(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Close() error
}

const defaultRecentLimit = 50

func normalize(r Record, newID func() string) Record {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return r
}
