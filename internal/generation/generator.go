package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ent0n29/folio/internal/capability"
	"github.com/ent0n29/folio/internal/conversation"
)

// Request is everything the generation collaborator sees for one reply.
type Request struct {
	Instructions  string              `json:"instructions"`
	History       []conversation.Turn `json:"history"`
	Message       string              `json:"message"`
	ResponseField string              `json:"response_field"`
	Capabilities  *capability.Table   `json:"-"`
}

// Response carries the raw reply text; callers validate its shape.
type Response struct {
	Text            string
	CapabilityCalls []string
}

// Generator produces a reply for a request. Errors are transport failures.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config controls generator construction.
type Config struct {
	Mode          string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	HTTPURL       string
	HTTPTimeout   time.Duration
	MaxToolRounds int
	Retries       int
	Logger        zerolog.Logger
}

const (
	ModeAuto   = "auto"
	ModeOpenAI = "openai"
	ModeHTTP   = "http"
	ModeMock   = "mock"

	defaultResponseField = "response"
	defaultMaxToolRounds = 4
)

func NewGenerator(cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeAuto
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}

	switch mode {
	case ModeAuto:
		return newAutoGenerator(cfg), nil
	case ModeOpenAI:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("openai api key is required for openai mode")
		}
		return NewOpenAIGenerator(cfg), nil
	case ModeHTTP:
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("generator HTTP url is required for http mode")
		}
		return NewHTTPGenerator(cfg), nil
	case ModeMock:
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported generator mode %q", cfg.Mode)
	}
}

func newAutoGenerator(cfg Config) Generator {
	hasKey := strings.TrimSpace(cfg.OpenAIAPIKey) != ""
	hasURL := strings.TrimSpace(cfg.HTTPURL) != ""

	switch {
	case hasKey && hasURL:
		return NewFallbackGenerator(NewOpenAIGenerator(cfg), NewHTTPGenerator(cfg))
	case hasKey:
		return NewOpenAIGenerator(cfg)
	case hasURL:
		return NewHTTPGenerator(cfg)
	default:
		cfg.Logger.Warn().Msg("no generation backend configured, replies come from the mock generator")
		return NewMockGenerator()
	}
}

func responseField(req Request) string {
	if f := strings.TrimSpace(req.ResponseField); f != "" {
		return f
	}
	return defaultResponseField
}
