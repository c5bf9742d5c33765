package capability

import (
	"errors"
	"fmt"
	"time"
)

const (
	CurrentTime = "getCurrentTime"
	CurrentDate = "getCurrentDate"
)

var ErrUnknown = errors.New("unknown capability")

// Capability is a named, side-effect-free function the generation collaborator may call.
type Capability struct {
	Name        string
	Description string
	Invoke      func() string
}

// Table is an ordered set of capabilities addressable by name.
type Table struct {
	order []string
	byKey map[string]Capability
}

func NewTable(caps ...Capability) *Table {
	t := &Table{byKey: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		t.Register(c)
	}
	return t
}

// Register adds or replaces a capability. Entries without a name or function are ignored.
func (t *Table) Register(c Capability) {
	if c.Name == "" || c.Invoke == nil {
		return
	}
	if _, exists := t.byKey[c.Name]; !exists {
		t.order = append(t.order, c.Name)
	}
	t.byKey[c.Name] = c
}

// List returns capabilities in registration order.
func (t *Table) List() []Capability {
	if t == nil {
		return nil
	}
	out := make([]Capability, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byKey[name])
	}
	return out
}

func (t *Table) Lookup(name string) (Capability, bool) {
	if t == nil {
		return Capability{}, false
	}
	c, ok := t.byKey[name]
	return c, ok
}

func (t *Table) Invoke(name string) (string, error) {
	c, ok := t.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return c.Invoke(), nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Defaults returns the time and date capabilities backed by clock.
func Defaults(clock func() time.Time) *Table {
	if clock == nil {
		clock = time.Now
	}
	return NewTable(
		Capability{
			Name:        CurrentTime,
			Description: "Gets the current time.",
			Invoke: func() string {
				return clock().Format("3:04:05 PM")
			},
		},
		Capability{
			Name:        CurrentDate,
			Description: "Gets the current date.",
			Invoke: func() string {
				return clock().Format("1/2/2006")
			},
		},
	)
}
