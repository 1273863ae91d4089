// Package openai generates answers with any OpenAI-compatible chat
// completions API, including NVIDIA NIM.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"pdfrag/internal/domain"
	"pdfrag/internal/generator"
	"pdfrag/internal/resilience"
)

type Generator struct {
	options generator.Options
	client  *openai.Client
}

var _ domain.Generator = (*Generator)(nil)

func NewGenerator(opts ...generator.Option) *Generator {
	options := generator.NewOptions(opts...)

	cfg := openai.DefaultConfig(options.ApiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: options.Timeout}

	return &Generator{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}
}

func (g *Generator) Name() string { return "openai" }

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	rsp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.options.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.options.MaxTokens,
		Temperature: g.options.Temperature,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", fmt.Errorf("%w: no response from model %s", domain.ErrGenerationService, g.options.Model)
	}

	return rsp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	wrapped := fmt.Errorf("%w: openai chat: %w", domain.ErrGenerationService, err)
	code := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return resilience.Permanent(wrapped)
	}
	return wrapped
}
