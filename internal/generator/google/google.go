// Package google generates answers with the Gemini API.
package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"pdfrag/internal/domain"
	"pdfrag/internal/generator"
)

type Generator struct {
	options generator.Options
	client  *genai.Client
}

var _ domain.Generator = (*Generator)(nil)

func NewGenerator(ctx context.Context, opts ...generator.Option) (*Generator, error) {
	options := generator.NewOptions(opts...)

	clientOpts := []genaiopt.ClientOption{genaiopt.WithAPIKey(options.ApiKey)}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, genaiopt.WithEndpoint(options.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}

	return &Generator{options: options, client: client}, nil
}

func (g *Generator) Name() string { return "google" }

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.options.Model)
	model.SetMaxOutputTokens(int32(g.options.MaxTokens))
	if g.options.Temperature > 0 {
		model.SetTemperature(g.options.Temperature)
	}

	rsp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: google: %w", domain.ErrGenerationService, err)
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response from Google", domain.ErrGenerationService)
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", fmt.Errorf("%w: no text from Google", domain.ErrGenerationService)
	}
	return result, nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	return g.client.Close()
}
