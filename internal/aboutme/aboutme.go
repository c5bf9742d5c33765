package aboutme

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ent0n29/folio/internal/gateway"
	"github.com/ent0n29/folio/internal/generation"
	"github.com/ent0n29/folio/internal/observability"
)

type Style string

const (
	StyleProfessional Style = "professional"
	StyleCasual       Style = "casual"
	StyleCreative     Style = "creative"

	ResponseField = "aboutMe"
)

var (
	ErrDetailsRequired = errors.New("user details are required")
	ErrUnknownStyle    = errors.New("unknown about me style")
)

type Input struct {
	Style       string `json:"style"`
	UserDetails string `json:"user_details"`
}

// ParseStyle is case-insensitive; empty selects professional.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleProfessional:
		return StyleProfessional, nil
	case StyleCasual:
		return StyleCasual, nil
	case StyleCreative:
		return StyleCreative, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, s)
	}
}

// Generator writes a short "About Me" block in the requested style.
type Generator struct {
	gen     generation.Generator
	timeout time.Duration
	log     zerolog.Logger
	metrics *observability.Metrics
}

func New(gen generation.Generator, timeout time.Duration, logger zerolog.Logger, metrics *observability.Metrics) *Generator {
	if timeout <= 0 {
		timeout = gateway.DefaultTimeout
	}
	return &Generator{
		gen:     gen,
		timeout: timeout,
		log:     logger.With().Str("component", "aboutme").Logger(),
		metrics: metrics,
	}
}

func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	style, err := ParseStyle(in.Style)
	if err != nil {
		return "", err
	}
	details := strings.TrimSpace(in.UserDetails)
	if details == "" {
		return "", ErrDetailsRequired
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.gen.Generate(ctx, generation.Request{
		Instructions:  instructions(style),
		Message:       details,
		ResponseField: ResponseField,
	})
	if err != nil {
		g.metrics.ProviderError(g.gen.Name(), string(gateway.KindTransportFailure))
		g.log.Warn().Err(err).Str("style", string(style)).Msg("about me generation failed")
		return "", &gateway.Error{Kind: gateway.KindTransportFailure, Err: err}
	}

	text, err := generation.DecodeField(resp.Text, ResponseField)
	if err != nil {
		g.metrics.ProviderError(g.gen.Name(), string(gateway.KindMalformedReply))
		g.log.Warn().Err(err).Str("style", string(style)).Msg("about me reply rejected")
		return "", &gateway.Error{Kind: gateway.KindMalformedReply, Err: err}
	}
	g.log.Info().Str("style", string(style)).Int("chars", len(text)).Msg("about me generated")
	return text, nil
}

func instructions(style Style) string {
	var b strings.Builder
	b.WriteString("You write \"About Me\" blocks for personal portfolio sites.\n")
	fmt.Fprintf(&b, "Write the block in a %s style, based only on the user details in the message.\n", style)
	b.WriteString("Keep it concise and engaging. Do not add any introductory or concluding sentences, only the block itself.\n")
	if style == StyleCreative {
		b.WriteString("Example: A curious mind with a passion for crafting innovative solutions, always eager to explore new possibilities in tech.\n")
	}
	fmt.Fprintf(&b, "Reply with a single JSON object of the form {\"%s\": \"<the block>\"} and nothing else.", ResponseField)
	return b.String()
}
