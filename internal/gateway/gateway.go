package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ent0n29/folio/internal/capability"
	"github.com/ent0n29/folio/internal/conversation"
	"github.com/ent0n29/folio/internal/generation"
	"github.com/ent0n29/folio/internal/observability"
)

const (
	DefaultTimeout = 30 * time.Second
	ResponseField  = "response"
)

type ReplyKind string

const (
	ReplyAssistant ReplyKind = "assistant"
	ReplyHelp      ReplyKind = "help"
	ReplyReset     ReplyKind = "reset"
)

// Request is one user message plus the transcript that precedes it.
type Request struct {
	History  []conversation.Turn
	Message  string
	UserName string
}

// Reply is the outcome of a successful send. UserName is set when the
// message stated a name; the caller remembers it for later sends.
type Reply struct {
	Kind            ReplyKind
	Text            string
	UserName        string
	CapabilityCalls []string
}

type Config struct {
	Generator      generation.Generator
	Capabilities   *capability.Table
	OwnerName      string
	ProfileContext string
	Policy         *CommandPolicy
	Timeout        time.Duration
	Logger         zerolog.Logger
	Metrics        *observability.Metrics
}

// Gateway turns (history, message) into at most one collaborator round trip.
type Gateway struct {
	gen          generation.Generator
	capabilities *capability.Table
	owner        string
	profile      string
	policy       CommandPolicy
	timeout      time.Duration
	log          zerolog.Logger
	metrics      *observability.Metrics
}

func New(cfg Config) (*Gateway, error) {
	if cfg.Generator == nil {
		return nil, errors.New("gateway generator is required")
	}
	policy := DefaultCommandPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	owner := strings.TrimSpace(cfg.OwnerName)
	if owner == "" {
		owner = "the site owner"
	}
	return &Gateway{
		gen:          cfg.Generator,
		capabilities: cfg.Capabilities,
		owner:        owner,
		profile:      strings.TrimSpace(cfg.ProfileContext),
		policy:       policy,
		timeout:      timeout,
		log:          cfg.Logger.With().Str("component", "gateway").Logger(),
		metrics:      cfg.Metrics,
	}, nil
}

func (g *Gateway) Policy() CommandPolicy { return g.policy }

func (g *Gateway) GeneratorName() string { return g.gen.Name() }

// Send never appends turns; on error the caller rolls back its provisional turn.
func (g *Gateway) Send(ctx context.Context, req Request) (Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	switch {
	case g.policy.IsHelp(message):
		g.metrics.GatewayResult("help")
		g.log.Debug().Msg("help command answered locally")
		return Reply{Kind: ReplyHelp, Text: g.policy.HelpText}, nil
	case g.policy.IsReset(message):
		g.metrics.GatewayResult("reset")
		g.log.Debug().Msg("reset command answered locally")
		return Reply{Kind: ReplyReset}, nil
	}

	userName := strings.TrimSpace(req.UserName)
	stated, ok := g.policy.ExtractName(message)
	if ok {
		userName = stated
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.gen.Generate(ctx, generation.Request{
		Instructions:  g.instructions(userName),
		History:       append([]conversation.Turn(nil), req.History...),
		Message:       message,
		ResponseField: ResponseField,
		Capabilities:  g.capabilities,
	})
	elapsed := time.Since(started)
	g.metrics.ObserveGatewayLatency(elapsed)
	for _, name := range resp.CapabilityCalls {
		g.metrics.CapabilityCall(name)
	}

	if err != nil {
		gerr := transportFailure(err)
		g.fail(gerr, elapsed, len(req.History))
		return Reply{}, gerr
	}

	text, err := generation.DecodeField(resp.Text, ResponseField)
	if err != nil {
		gerr := malformedReply(err)
		g.log.Debug().Str("raw_reply", truncate(resp.Text, 512)).Msg("reply rejected")
		g.fail(gerr, elapsed, len(req.History))
		return Reply{}, gerr
	}

	g.metrics.GatewayResult("ok")
	g.log.Info().
		Str("generator", g.gen.Name()).
		Int("history_turns", len(req.History)).
		Strs("capability_calls", resp.CapabilityCalls).
		Dur("elapsed", elapsed).
		Msg("assistant reply received")

	reply := Reply{Kind: ReplyAssistant, Text: text, CapabilityCalls: resp.CapabilityCalls}
	if ok {
		reply.UserName = stated
	}
	return reply, nil
}

func (g *Gateway) fail(err *Error, elapsed time.Duration, historyTurns int) {
	g.metrics.GatewayResult(string(err.Kind))
	g.metrics.ProviderError(g.gen.Name(), string(err.Kind))
	g.log.Warn().
		Err(err.Err).
		Str("kind", string(err.Kind)).
		Str("generator", g.gen.Name()).
		Int("history_turns", historyTurns).
		Dur("elapsed", elapsed).
		Msg("gateway send failed")
}

func (g *Gateway) instructions(userName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s's personal website assistant. ", g.owner)
	b.WriteString("Help visitors learn about their profile, projects, skills and career in a friendly, conversational tone. ")
	b.WriteString("Use emojis occasionally and present longer answers as short sections or bullet points. ")
	fmt.Fprintf(&b, "If you don't know an answer, suggest contacting %s by email.\n", g.owner)

	if g.capabilities.Len() > 0 {
		names := make([]string, 0, g.capabilities.Len())
		for _, c := range g.capabilities.List() {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "You must use your tools (%s) to answer questions about the current time or date.\n", strings.Join(names, ", "))
	}

	if g.profile != "" {
		fmt.Fprintf(&b, "\n### Context about %s:\n%s\n", g.owner, g.profile)
	}
	if userName != "" {
		fmt.Fprintf(&b, "\nThe visitor's name is %s. Use it naturally in your replies.\n", userName)
	}

	fmt.Fprintf(&b, "\nReply with a single JSON object of the form {\"%s\": \"<your reply>\"} and nothing else.", ResponseField)
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
