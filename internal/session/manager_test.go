package session

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/ent0n29/folio/internal/conversation"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(Config{InactivityTimeout: time.Minute, Seeds: conversation.Seeds{Greeting: "Hi there!"}})
	s := m.Create()
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}
	turns := got.Conversation.Turns()
	if len(turns) != 1 || turns[0].Content != "Hi there!" {
		t.Fatalf("seed transcript = %+v", turns)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if !ended.Conversation.Closed() {
		t.Fatalf("conversation should be closed after End")
	}
	if _, err := m.Active(s.ID); err != ErrNotFound {
		t.Fatalf("Active() error = %v, want ErrNotFound", err)
	}
	if _, err := m.End("missing"); err != ErrNotFound {
		t.Fatalf("End(missing) error = %v, want ErrNotFound", err)
	}
}

func TestManagerClonesShareConversation(t *testing.T) {
	m := NewManager(Config{})
	s := m.Create()
	if _, err := s.Conversation.AppendUserTurn("hi"); err != nil {
		t.Fatalf("AppendUserTurn() error = %v", err)
	}

	got, _ := m.Get(s.ID)
	if !got.Conversation.Pending() {
		t.Fatalf("clone should observe the pending turn")
	}
	view := m.View(got)
	if view.Conversation.Pending != true || len(view.Conversation.Turns) != 2 {
		t.Fatalf("view = %+v", view)
	}
	if view.InactivityTTLMS != (30 * time.Minute).Milliseconds() {
		t.Fatalf("InactivityTTLMS = %d", view.InactivityTTLMS)
	}
}

func TestManagerExpireInactive(t *testing.T) {
	m := NewManager(Config{InactivityTimeout: 30 * time.Millisecond})
	var hooked []string
	m.SetExpireHook(func(s *Session) { hooked = append(hooked, s.ID) })

	idle := m.Create()
	fresh := m.Create()
	time.Sleep(40 * time.Millisecond)
	if err := m.Touch(fresh.ID); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	m.expireInactive()
	got, err := m.Get(idle.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded || !got.Conversation.Closed() {
		t.Fatalf("idle session = %+v, closed=%v", got, got.Conversation.Closed())
	}
	if len(hooked) != 1 || hooked[0] != idle.ID {
		t.Fatalf("expire hook calls = %v", hooked)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", m.ActiveCount())
	}

	time.Sleep(40 * time.Millisecond)
	m.expireInactive()
	if _, err := m.Get(idle.ID); err != ErrNotFound {
		t.Fatalf("ended session should be forgotten, Get() error = %v", err)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(Config{InactivityTimeout: 30 * time.Millisecond})
	s := m.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartJanitor(ctx, time.Second); err != nil {
		t.Fatalf("StartJanitor() error = %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.ActiveCount() == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	got, _ := m.Get(s.ID)
	t.Fatalf("session not expired by janitor: %+v", got)
}

func TestSessionSubmitLimiter(t *testing.T) {
	m := NewManager(Config{SubmitRate: rate.Every(time.Hour), SubmitBurst: 2})
	s := m.Create()
	if !s.AllowSubmit() || !s.AllowSubmit() {
		t.Fatalf("burst of 2 should be allowed")
	}
	if s.AllowSubmit() {
		t.Fatalf("third submit should be limited")
	}

	unlimited := NewManager(Config{}).Create()
	for i := 0; i < 10; i++ {
		if !unlimited.AllowSubmit() {
			t.Fatalf("unlimited session rejected submit %d", i)
		}
	}
}
