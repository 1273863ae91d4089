package resilience

import (
	"context"

	"pdfrag/internal/domain"
)

// Generator retries a wrapped generator.
type Generator struct {
	inner  domain.Generator
	policy Policy
}

// WrapGenerator returns g unchanged when the policy allows no retries.
func WrapGenerator(g domain.Generator, p Policy) domain.Generator {
	if p.MaxRetries <= 0 {
		return g
	}
	return &Generator{inner: g, policy: p}
}

var _ domain.Generator = (*Generator)(nil)

func (g *Generator) Name() string { return g.inner.Name() }

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := Retry(ctx, g.policy, func(ctx context.Context) error {
		s, err := g.inner.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}
