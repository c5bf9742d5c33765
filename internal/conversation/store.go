package conversation

import (
	"errors"
	"strings"
	"sync"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the transcript. Turns are values and never mutated in place.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const (
	DefaultGreeting = "Hi there! I'm a personal AI assistant. Feel free to ask me anything about my owner's work or skills."
	DefaultCleared  = "Memory cleared. Let's start over!"
)

var (
	ErrBusy       = errors.New("a reply is already pending")
	ErrNotPending = errors.New("no user turn is awaiting a reply")
	ErrEmpty      = errors.New("transcript is empty")
	ErrClosed     = errors.New("conversation closed")
)

// Seeds holds the assistant texts used to (re)start a transcript.
type Seeds struct {
	Greeting string
	Cleared  string
}

// Snapshot is a point-in-time copy of the conversation state.
type Snapshot struct {
	Turns    []Turn `json:"turns"`
	Pending  bool   `json:"pending"`
	UserName string `json:"user_name,omitempty"`
}

// Store is the single source of truth for one session's transcript and loading flag.
//
// The pending flag serializes requests: while it is set no further user turn is
// accepted. After Close every mutation fails with ErrClosed so a reply arriving
// for a torn-down session cannot touch it.
type Store struct {
	mu       sync.Mutex
	seeds    Seeds
	turns    []Turn
	pending  bool
	userName string
	closed   bool
}

func New(seeds Seeds) *Store {
	if strings.TrimSpace(seeds.Greeting) == "" {
		seeds.Greeting = DefaultGreeting
	}
	if strings.TrimSpace(seeds.Cleared) == "" {
		seeds.Cleared = DefaultCleared
	}
	return &Store{
		seeds: seeds,
		turns: []Turn{{Role: RoleAssistant, Content: seeds.Greeting}},
	}
}

// AppendUserTurn appends a provisional user turn and marks the store pending.
// Blank input is ignored and reported as (false, nil).
func (s *Store) AppendUserTurn(text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.pending {
		return false, ErrBusy
	}
	s.turns = append(s.turns, Turn{Role: RoleUser, Content: text})
	s.pending = true
	return true, nil
}

// AppendAssistantTurn answers the outstanding user turn.
func (s *Store) AppendAssistantTurn(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.pending {
		return ErrNotPending
	}
	s.turns = append(s.turns, Turn{Role: RoleAssistant, Content: text})
	s.pending = false
	return nil
}

// RollbackLastTurn drops the most recent turn and clears the pending flag.
func (s *Store) RollbackLastTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(s.turns) == 0 {
		return ErrEmpty
	}
	s.turns = s.turns[:len(s.turns)-1]
	s.pending = false
	return nil
}

// Reset replaces the transcript with a single fresh seed turn.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.turns = []Turn{{Role: RoleAssistant, Content: s.seeds.Cleared}}
	s.pending = false
	s.userName = ""
	return nil
}

// ResetIdle is Reset for user-initiated clears: it refuses with ErrBusy while a
// reply is pending so the in-flight reply cannot land in the fresh transcript.
func (s *Store) ResetIdle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.pending {
		return ErrBusy
	}
	s.turns = []Turn{{Role: RoleAssistant, Content: s.seeds.Cleared}}
	s.userName = ""
	return nil
}

// RememberName stores the visitor's name for later prompts. It lives only as long as the store.
func (s *Store) RememberName(name string) error {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if name != "" {
		s.userName = name
	}
	return nil
}

// Close tears the store down. It is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Store) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userName
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Turns returns a copy of the transcript.
func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTurns(s.turns)
}

// History returns the transcript without a trailing provisional user turn, which
// is the history forwarded alongside that turn's text.
func (s *Store) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns
	if s.pending && len(turns) > 0 && turns[len(turns)-1].Role == RoleUser {
		turns = turns[:len(turns)-1]
	}
	return cloneTurns(turns)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Turns:    cloneTurns(s.turns),
		Pending:  s.pending,
		UserName: s.userName,
	}
}

func cloneTurns(in []Turn) []Turn {
	out := make([]Turn, len(in))
	copy(out, in)
	return out
}
