package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/folio/internal/chat"
	"github.com/ent0n29/folio/internal/conversation"
	"github.com/ent0n29/folio/internal/protocol"
	"github.com/ent0n29/folio/internal/session"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	sess, err := s.sessions.Active(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					s.metrics.SessionEvent("ws_write_error")
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessage("outbound", string(t))
				}
			}
		}
	}()

	c := &wsConn{server: s, sessionID: sessionID, ctx: ctx, outbound: outbound}
	c.send(protocol.NewSnapshot(sessionID, sess.Conversation.Snapshot()))

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			c.sendError(protocol.ErrorInvalidClientMessage, false, err.Error())
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessage("inbound", string(t))
		}

		switch m := parsed.(type) {
		case protocol.UserMessage:
			if m.SessionID != sessionID {
				c.sendError(protocol.ErrorInvalidClientMessage, false, "session_id does not match this connection")
				continue
			}
			// Submit runs off the read loop so a second message can be answered with busy.
			c.wg.Add(1)
			go func(text string) {
				defer c.wg.Done()
				c.submit(text)
			}(m.Text)
		case protocol.ClientControl:
			if m.SessionID != sessionID {
				c.sendError(protocol.ErrorInvalidClientMessage, false, "session_id does not match this connection")
				continue
			}
			c.control(m.Action)
		}
	}

	cancel()
	c.wg.Wait()
	<-writerDone
	s.metrics.SessionEvent("ws_disconnected")
}

// wsConn is the per-connection state shared by the read loop and submit goroutines.
type wsConn struct {
	server    *Server
	sessionID string
	ctx       context.Context
	outbound  chan<- any
	wg        sync.WaitGroup
}

func (c *wsConn) send(msg any) {
	select {
	case <-c.ctx.Done():
	case c.outbound <- msg:
	}
}

func (c *wsConn) sendError(code string, retryable bool, detail string) {
	c.send(protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: c.sessionID,
		Code:      code,
		Retryable: retryable,
		Detail:    detail,
	})
}

func (c *wsConn) sendEvent(code, detail string) {
	c.send(protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: c.sessionID,
		Code:      code,
		Detail:    detail,
	})
}

func (c *wsConn) submit(text string) {
	out, err := c.server.chat.SubmitNotify(c.ctx, c.sessionID, text, func() {
		c.sendEvent(protocol.EventPending, "")
	})
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrBusy):
			c.sendError(protocol.ErrorBusy, true, "wait for the current reply")
		case errors.Is(err, chat.ErrRateLimited):
			c.sendError(protocol.ErrorRateLimited, true, err.Error())
		case errors.Is(err, session.ErrNotFound):
			c.sendError(protocol.ErrorSessionNotFound, false, err.Error())
		default:
			c.server.log.Error().Err(err).Str("session_id", c.sessionID).Msg("websocket submit failed")
			c.sendError(protocol.ErrorAssistantUnavailable, true, chat.GenericNotice)
		}
		return
	}

	switch out.Kind {
	case chat.OutcomeIgnored:
		c.sendEvent(protocol.EventIgnored, "")
	case chat.OutcomeReplied:
		c.send(protocol.AssistantTurn{Type: protocol.TypeAssistantTurn, SessionID: c.sessionID, Text: out.Reply})
	case chat.OutcomeReset:
		c.sendEvent(protocol.EventConversationReset, "")
		c.send(protocol.NewSnapshot(c.sessionID, out.Snapshot))
	case chat.OutcomeFailed:
		c.sendError(protocol.ErrorAssistantUnavailable, true, out.Notice)
		c.send(protocol.NewSnapshot(c.sessionID, out.Snapshot))
	case chat.OutcomeDiscarded:
	}
}

func (c *wsConn) control(action string) {
	switch action {
	case protocol.ActionReset:
		snap, err := c.server.chat.Reset(c.sessionID)
		if err != nil {
			if errors.Is(err, conversation.ErrBusy) {
				c.sendError(protocol.ErrorBusy, true, "wait for the current reply")
				return
			}
			c.sendError(protocol.ErrorSessionNotFound, false, err.Error())
			return
		}
		c.sendEvent(protocol.EventConversationReset, "")
		c.send(protocol.NewSnapshot(c.sessionID, snap))
	case protocol.ActionSnapshot:
		snap, err := c.server.chat.Snapshot(c.sessionID)
		if err != nil {
			c.sendError(protocol.ErrorSessionNotFound, false, err.Error())
			return
		}
		c.send(protocol.NewSnapshot(c.sessionID, snap))
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.UserMessage:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.TranscriptSnapshot:
		return m.Type, true
	case protocol.AssistantTurn:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
