package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ent0n29/folio/internal/conversation"
	"github.com/ent0n29/folio/internal/gateway"
	"github.com/ent0n29/folio/internal/memory"
	"github.com/ent0n29/folio/internal/observability"
	"github.com/ent0n29/folio/internal/policy"
	"github.com/ent0n29/folio/internal/session"
)

// GenericNotice is shown to the visitor whenever the assistant could not respond.
const GenericNotice = "Sorry, I seem to be having some trouble right now. Please try again later."

type OutcomeKind string

const (
	OutcomeIgnored   OutcomeKind = "ignored"
	OutcomeReplied   OutcomeKind = "replied"
	OutcomeReset     OutcomeKind = "reset"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeDiscarded OutcomeKind = "discarded"
)

// Outcome describes what one submit did to the conversation.
type Outcome struct {
	Kind     OutcomeKind           `json:"outcome"`
	Reply    string                `json:"reply,omitempty"`
	Notice   string                `json:"notice,omitempty"`
	Snapshot conversation.Snapshot `json:"conversation"`
}

var ErrRateLimited = errors.New("too many messages, slow down")

// Sender is the gateway surface the service depends on.
type Sender interface {
	Send(ctx context.Context, req gateway.Request) (gateway.Reply, error)
}

type Service struct {
	sessions *session.Manager
	gateway  Sender
	log      memory.Store
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewService(sessions *session.Manager, gw Sender, log memory.Store, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	if log == nil {
		log = memory.NewInMemoryStore()
	}
	return &Service{
		sessions: sessions,
		gateway:  gw,
		log:      log,
		metrics:  metrics,
		logger:   logger.With().Str("component", "chat").Logger(),
	}
}

// Submit runs one visitor message through the conversation: provisional user
// turn, gateway round trip, then commit or rollback.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (Outcome, error) {
	return s.SubmitNotify(ctx, sessionID, text, nil)
}

// SubmitNotify is Submit with a callback run once the user turn is accepted
// and the gateway is about to be called. It is not run for ignored, busy or
// rate-limited messages.
func (s *Service) SubmitNotify(ctx context.Context, sessionID, text string, onAccepted func()) (Outcome, error) {
	sess, err := s.sessions.Active(sessionID)
	if err != nil {
		return Outcome{}, err
	}
	store := sess.Conversation
	_ = s.sessions.Touch(sessionID)

	appended, err := store.AppendUserTurn(text)
	if err != nil {
		if errors.Is(err, conversation.ErrClosed) {
			return Outcome{}, session.ErrNotFound
		}
		return Outcome{}, err
	}
	if !appended {
		return Outcome{Kind: OutcomeIgnored, Snapshot: store.Snapshot()}, nil
	}
	if !sess.AllowSubmit() {
		_ = store.RollbackLastTurn()
		s.metrics.SessionEvent("rate_limited")
		return Outcome{}, ErrRateLimited
	}
	if onAccepted != nil {
		onAccepted()
	}

	if screen := policy.ScreenMessage(text); screen.Flagged {
		s.metrics.SessionEvent("message_flagged")
		s.logger.Warn().Str("session_id", sessionID).Str("reason", screen.Reason).Msg("visitor message flagged")
	}

	started := time.Now()
	reply, sendErr := s.gateway.Send(ctx, gateway.Request{
		History:  store.History(),
		Message:  text,
		UserName: store.UserName(),
	})
	s.metrics.ObserveStage(observability.StageSubmitTotal, time.Since(started))

	if store.Closed() {
		s.metrics.SessionEvent("reply_discarded")
		s.logger.Info().Str("session_id", sessionID).Msg("session ended before reply, discarding")
		return Outcome{Kind: OutcomeDiscarded}, nil
	}

	if sendErr != nil {
		return s.fail(sessionID, store, sendErr)
	}

	switch reply.Kind {
	case gateway.ReplyReset:
		if err := store.Reset(); err != nil {
			return s.commitFailed(sessionID, err)
		}
		s.metrics.SessionEvent("conversation_reset")
		s.record(ctx, sessionID, conversation.RoleUser, text)
		return Outcome{Kind: OutcomeReset, Snapshot: store.Snapshot()}, nil
	default:
		if err := store.AppendAssistantTurn(reply.Text); err != nil {
			return s.commitFailed(sessionID, err)
		}
		if reply.UserName != "" {
			_ = store.RememberName(reply.UserName)
		}
		s.record(ctx, sessionID, conversation.RoleUser, text)
		s.record(ctx, sessionID, conversation.RoleAssistant, reply.Text)
		return Outcome{Kind: OutcomeReplied, Reply: reply.Text, Snapshot: store.Snapshot()}, nil
	}
}

func (s *Service) fail(sessionID string, store *conversation.Store, sendErr error) (Outcome, error) {
	if err := store.RollbackLastTurn(); err != nil {
		if errors.Is(err, conversation.ErrClosed) {
			return Outcome{Kind: OutcomeDiscarded}, nil
		}
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("rollback failed")
	}

	ev := s.logger.Warn().Err(sendErr).Str("session_id", sessionID)
	var gerr *gateway.Error
	if errors.As(sendErr, &gerr) {
		ev = ev.Str("kind", string(gerr.Kind))
	}
	ev.Msg("assistant could not respond, user turn rolled back")
	s.metrics.SessionEvent("reply_failed")

	return Outcome{Kind: OutcomeFailed, Notice: GenericNotice, Snapshot: store.Snapshot()}, nil
}

// commitFailed covers the store closing between the Closed check and the commit.
func (s *Service) commitFailed(sessionID string, err error) (Outcome, error) {
	if errors.Is(err, conversation.ErrClosed) {
		s.metrics.SessionEvent("reply_discarded")
		return Outcome{Kind: OutcomeDiscarded}, nil
	}
	return Outcome{}, fmt.Errorf("commit reply for session %s: %w", sessionID, err)
}

// Reset clears the conversation on explicit user action. It fails with
// conversation.ErrBusy while a reply is pending.
func (s *Service) Reset(sessionID string) (conversation.Snapshot, error) {
	sess, err := s.sessions.Active(sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	_ = s.sessions.Touch(sessionID)
	if err := sess.Conversation.ResetIdle(); err != nil {
		if errors.Is(err, conversation.ErrClosed) {
			return conversation.Snapshot{}, session.ErrNotFound
		}
		return conversation.Snapshot{}, err
	}
	s.metrics.SessionEvent("conversation_reset")
	return sess.Conversation.Snapshot(), nil
}

func (s *Service) Snapshot(sessionID string) (conversation.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	return sess.Conversation.Snapshot(), nil
}

// Log returns the most recent redacted transcript log records for a session.
func (s *Service) Log(ctx context.Context, sessionID string, limit int) ([]memory.Record, error) {
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}
	return s.log.Recent(ctx, sessionID, limit)
}

func (s *Service) record(ctx context.Context, sessionID string, role conversation.Role, content string) {
	redacted, changed := policy.RedactPII(strings.TrimSpace(content))
	err := s.log.Append(context.WithoutCancel(ctx), memory.Record{
		SessionID:   sessionID,
		Role:        string(role),
		Content:     redacted,
		PIIRedacted: changed,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("transcript log append failed")
	}
}
