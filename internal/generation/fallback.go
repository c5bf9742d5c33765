package generation

import (
	"context"
	"errors"
	"fmt"
)

// FallbackGenerator attempts a primary generator first and falls back on error.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
}

func NewFallbackGenerator(primary, fallback Generator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback}
}

func (g *FallbackGenerator) Name() string {
	if g == nil || g.primary == nil {
		return "fallback"
	}
	if g.fallback == nil {
		return g.primary.Name()
	}
	return g.primary.Name() + "+" + g.fallback.Name()
}

// Primary returns the preferred generator used before fallback.
func (g *FallbackGenerator) Primary() Generator {
	if g == nil {
		return nil
	}
	return g.primary
}

// Secondary returns the fallback generator.
func (g *FallbackGenerator) Secondary() Generator {
	if g == nil {
		return nil
	}
	return g.fallback
}

func (g *FallbackGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	if g == nil || g.primary == nil {
		if g != nil && g.fallback != nil {
			return g.fallback.Generate(ctx, req)
		}
		return Response{}, fmt.Errorf("fallback generator misconfigured")
	}

	resp, err := g.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Response{}, err
	}
	if g.fallback == nil {
		return Response{}, err
	}

	fallbackResp, fallbackErr := g.fallback.Generate(ctx, req)
	if fallbackErr != nil {
		return Response{}, fmt.Errorf("primary generator error: %w; fallback generator error: %v", err, fallbackErr)
	}
	return fallbackResp, nil
}
