package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ent0n29/folio/internal/conversation"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session is one visitor's chat. Conversation and the submit limiter are
// shared between clones; the remaining fields are copied.
type Session struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`

	Conversation *conversation.Store `json:"-"`
	limiter      *rate.Limiter
}

// AllowSubmit reports whether the session may submit another message now.
func (s *Session) AllowSubmit() bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

type Config struct {
	InactivityTimeout time.Duration
	Seeds             conversation.Seeds
	SubmitRate        rate.Limit
	SubmitBurst       int
	Logger            zerolog.Logger
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	seeds             conversation.Seeds
	submitRate        rate.Limit
	submitBurst       int
	onExpire          func(*Session)
	log               zerolog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 30 * time.Minute
	}
	if cfg.SubmitBurst <= 0 {
		cfg.SubmitBurst = 1
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: cfg.InactivityTimeout,
		seeds:             cfg.Seeds,
		submitRate:        cfg.SubmitRate,
		submitBurst:       cfg.SubmitBurst,
		log:               cfg.Logger.With().Str("component", "session").Logger(),
	}
}

func (m *Manager) InactivityTimeout() time.Duration { return m.inactivityTimeout }

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create starts a session whose transcript holds only the seed greeting.
func (m *Manager) Create() *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
		Conversation:   conversation.New(m.seeds),
	}
	if m.submitRate > 0 {
		s.limiter = rate.NewLimiter(m.submitRate, m.submitBurst)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// Active returns the session only while it has not ended.
func (m *Manager) Active(sessionID string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// End tears the session down. Its conversation is closed so replies still in
// flight are discarded.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status == StatusActive {
		s.Status = StatusEnded
		s.LastActivityAt = time.Now().UTC()
		s.Conversation.Close()
	}
	return clone(s), nil
}

func (m *Manager) View(s *Session) View {
	return View{
		SessionID:       s.ID,
		Status:          s.Status,
		StartedAt:       s.StartedAt,
		LastActivityAt:  s.LastActivityAt,
		InactivityTTLMS: m.inactivityTimeout.Milliseconds(),
		Conversation:    s.Conversation.Snapshot(),
	}
}

// StartJanitor sweeps inactive sessions on a cron schedule until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), m.expireInactive); err != nil {
		return fmt.Errorf("schedule session janitor: %w", err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

// expireInactive ends idle sessions and forgets sessions that ended more than
// one inactivity timeout ago.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		idle := now.Sub(s.LastActivityAt)
		if s.Status != StatusActive {
			if idle >= m.inactivityTimeout {
				delete(m.sessions, id)
			}
			continue
		}
		if idle < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		s.Conversation.Close()
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if len(expired) > 0 {
		m.log.Info().Int("count", len(expired)).Msg("expired inactive sessions")
	}
	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
