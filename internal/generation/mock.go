package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ent0n29/folio/internal/capability"
)

// MockGenerator provides deterministic local replies when no backend is configured.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Name() string { return ModeMock }

func (g *MockGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	text, calls := buildMockReply(req)
	raw, err := json.Marshal(map[string]string{responseField(req): text})
	if err != nil {
		return Response{}, fmt.Errorf("marshal mock reply: %w", err)
	}
	return Response{Text: string(raw), CapabilityCalls: calls}, nil
}

func buildMockReply(req Request) (string, []string) {
	base := strings.TrimSpace(req.Message)
	lower := strings.ToLower(base)

	switch {
	case strings.Contains(lower, "time"):
		if v, err := req.Capabilities.Invoke(capability.CurrentTime); err == nil {
			return fmt.Sprintf("It's %s! ⏰", v), []string{capability.CurrentTime}
		}
	case strings.Contains(lower, "date") || strings.Contains(lower, "today"):
		if v, err := req.Capabilities.Invoke(capability.CurrentDate); err == nil {
			return fmt.Sprintf("Today is %s. 📅", v), []string{capability.CurrentDate}
		}
	}

	if base == "" {
		base = "I am listening."
	}
	return fmt.Sprintf("I heard you: %s", base), nil
}
