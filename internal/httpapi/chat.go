package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/folio/internal/aboutme"
	"github.com/ent0n29/folio/internal/chat"
	"github.com/ent0n29/folio/internal/conversation"
	"github.com/ent0n29/folio/internal/gateway"
	"github.com/ent0n29/folio/internal/session"
)

type submitRequest struct {
	Text string `json:"text"`
}

type aboutMeRequest struct {
	Style       string `json:"style"`
	UserDetails string `json:"user_details"`
}

type aboutMeResponse struct {
	AboutMe string `json:"about_me"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	s.metrics.SessionEvent("created")
	respondJSON(w, http.StatusCreated, s.sessions.View(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.sessions.View(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	s.metrics.SessionEvent("ended")
	respondJSON(w, http.StatusOK, s.sessions.View(sess))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.chat.Submit(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		s.respondChatError(w, err)
		return
	}
	switch out.Kind {
	case chat.OutcomeFailed:
		respondJSON(w, http.StatusBadGateway, out)
	case chat.OutcomeDiscarded:
		respondJSON(w, http.StatusGone, out)
	default:
		respondJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.chat.Reset(chi.URLParam(r, "id"))
	if err != nil {
		s.respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversation": snap})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer in [0, 500]")
			return
		}
		limit = n
	}

	records, err := s.chat.Log(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleAboutMe(w http.ResponseWriter, r *http.Request) {
	if s.aboutMe == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "about me generator not configured")
		return
	}
	var req aboutMeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must be JSON with style and user_details")
		return
	}

	text, err := s.aboutMe.Generate(r.Context(), aboutme.Input{Style: req.Style, UserDetails: req.UserDetails})
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, aboutMeResponse{AboutMe: text})
	case errors.Is(err, aboutme.ErrDetailsRequired), errors.Is(err, aboutme.ErrUnknownStyle):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, gateway.ErrTransportFailure), errors.Is(err, gateway.ErrMalformedReply):
		respondError(w, http.StatusBadGateway, "assistant_unavailable", chat.GenericNotice)
	default:
		s.log.Error().Err(err).Msg("about me generation failed")
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, conversation.ErrBusy):
		respondError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, chat.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	default:
		s.log.Error().Err(err).Msg("chat request failed")
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
