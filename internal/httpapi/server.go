package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ent0n29/folio/internal/aboutme"
	"github.com/ent0n29/folio/internal/chat"
	"github.com/ent0n29/folio/internal/config"
	"github.com/ent0n29/folio/internal/gateway"
	"github.com/ent0n29/folio/internal/observability"
	"github.com/ent0n29/folio/internal/profile"
	"github.com/ent0n29/folio/internal/session"
)

// Deps are the collaborators the HTTP surface routes to.
type Deps struct {
	Sessions  *session.Manager
	Chat      *chat.Service
	AboutMe   *aboutme.Generator
	Profile   *profile.Profile
	Commands  []gateway.Command
	Generator string
	LogStore  string
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
}

type Server struct {
	cfg       config.Config
	sessions  *session.Manager
	chat      *chat.Service
	aboutMe   *aboutme.Generator
	profile   *profile.Profile
	commands  []gateway.Command
	generator string
	logStore  string
	metrics   *observability.Metrics
	log       zerolog.Logger
	upgrader  websocket.Upgrader
	static    http.Handler
}

func New(cfg config.Config, deps Deps) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  deps.Sessions,
		chat:      deps.Chat,
		aboutMe:   deps.AboutMe,
		profile:   deps.Profile,
		commands:  deps.Commands,
		generator: deps.Generator,
		logStore:  deps.LogStore,
		metrics:   deps.Metrics,
		log:       deps.Logger.With().Str("component", "httpapi").Logger(),
		static:    newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the page's own origin.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/v1/chat", func(r chi.Router) {
		r.Get("/commands", s.handleCommands)
		r.Get("/ws", s.handleChatWS)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/messages", s.handleSubmit)
			r.Post("/reset", s.handleReset)
			r.Post("/end", s.handleEndSession)
			r.Get("/log", s.handleLog)
		})
	})
	r.Post("/v1/about-me", s.handleAboutMe)
	r.Get("/v1/profile", s.handleProfile)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"generator": s.generator,
		"log_store": s.logStore,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.chat == nil || s.sessions == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "chat service not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"generator":       s.generator,
		"log_store":       s.logStore,
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"commands": s.commands})
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	if s.profile == nil {
		respondError(w, http.StatusNotFound, "profile_not_found", "no profile loaded")
		return
	}
	respondJSON(w, http.StatusOK, s.profile)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 64<<10))
	if err := dec.Decode(out); err != nil {
		// io.EOF means no JSON at all; a truncated document is io.ErrUnexpectedEOF.
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
