// Package anthropic generates answers with the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"pdfrag/internal/domain"
	"pdfrag/internal/generator"
	"pdfrag/internal/resilience"
)

type Generator struct {
	options generator.Options
	client  *anthropic.Client
}

var _ domain.Generator = (*Generator)(nil)

func NewGenerator(opts ...generator.Option) *Generator {
	options := generator.NewOptions(opts...)

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.ApiKey),
		anthropicopt.WithHTTPClient(&http.Client{Timeout: options.Timeout}),
		// retries are handled by resilience.WrapGenerator
		anthropicopt.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Generator{
		options: options,
		client:  &client,
	}
}

func (g *Generator) Name() string { return "anthropic" }

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.options.Model),
		MaxTokens: int64(g.options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.options.Temperature > 0 {
		req.Temperature = anthropic.Float(float64(g.options.Temperature))
	}

	rsp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", fmt.Errorf("%w: no response from Anthropic", domain.ErrGenerationService)
	}

	return result, nil
}

func classify(err error) error {
	wrapped := fmt.Errorf("%w: anthropic: %w", domain.ErrGenerationService, err)
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return resilience.Permanent(wrapped)
		}
	}
	return wrapped
}
