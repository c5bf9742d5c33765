package aboutme

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/folio/internal/gateway"
	"github.com/ent0n29/folio/internal/generation"
)

type stubGenerator struct {
	calls int
	last  generation.Request
	text  string
	err   error
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, req generation.Request) (generation.Response, error) {
	s.calls++
	s.last = req
	return generation.Response{Text: s.text}, s.err
}

func TestGenerate(t *testing.T) {
	gen := &stubGenerator{text: `{"aboutMe":"A curious builder of data tools."}`}
	g := New(gen, 0, zerolog.Nop(), nil)

	out, err := g.Generate(context.Background(), Input{Style: "Creative", UserDetails: " likes Go and data "})
	require.NoError(t, err)
	assert.Equal(t, "A curious builder of data tools.", out)
	assert.Equal(t, "likes Go and data", gen.last.Message)
	assert.Equal(t, ResponseField, gen.last.ResponseField)
	assert.Contains(t, gen.last.Instructions, "creative style")
	assert.Empty(t, gen.last.History)
}

func TestGenerateValidation(t *testing.T) {
	gen := &stubGenerator{text: `{"aboutMe":"x"}`}
	g := New(gen, 0, zerolog.Nop(), nil)

	_, err := g.Generate(context.Background(), Input{Style: "casual", UserDetails: "   "})
	assert.ErrorIs(t, err, ErrDetailsRequired)

	_, err = g.Generate(context.Background(), Input{Style: "poetic", UserDetails: "x"})
	assert.ErrorIs(t, err, ErrUnknownStyle)
	assert.Equal(t, 0, gen.calls)
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]Style{
		"":             StyleProfessional,
		"PROFESSIONAL": StyleProfessional,
		" casual ":     StyleCasual,
		"Creative":     StyleCreative,
	} {
		got, err := ParseStyle(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestGenerateErrorsAreClassified(t *testing.T) {
	g := New(&stubGenerator{err: errors.New("boom")}, 0, zerolog.Nop(), nil)
	_, err := g.Generate(context.Background(), Input{UserDetails: "x"})
	assert.ErrorIs(t, err, gateway.ErrTransportFailure)

	g = New(&stubGenerator{text: `{"response":"wrong field"}`}, 0, zerolog.Nop(), nil)
	_, err = g.Generate(context.Background(), Input{UserDetails: "x"})
	assert.ErrorIs(t, err, gateway.ErrMalformedReply)
}

func TestGenerateWithMockGenerator(t *testing.T) {
	g := New(generation.NewMockGenerator(), 0, zerolog.Nop(), nil)
	out, err := g.Generate(context.Background(), Input{Style: "casual", UserDetails: "student who likes Go"})
	require.NoError(t, err)
	assert.Contains(t, out, "student who likes Go")
}
