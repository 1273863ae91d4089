// Package openai embeds text through any OpenAI-compatible embeddings API,
// including NVIDIA NIM endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"pdfrag/internal/domain"
	"pdfrag/internal/embedding"
	"pdfrag/internal/resilience"
)

// Embedder is an OpenAI-compatible embeddings client.
type Embedder struct {
	options embedding.Options
	client  *openai.Client
	limiter *rate.Limiter

	mu        sync.Mutex
	dimension int
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder. An empty base URL targets api.openai.com.
func NewEmbedder(opts ...embedding.Option) *Embedder {
	options := embedding.NewOptions(opts...)

	cfg := openai.DefaultConfig(options.ApiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: options.Timeout}

	e := &Embedder{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}
	if options.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
	}
	return e
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "openai" }

// Dimension returns the vector size seen so far, 0 before the first call.
func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

// EmbedBatch embeds texts in batches and returns vectors in input order.
// A failed batch is retried on its own; batches already embedded are
// not sent again.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range embedding.Batches(texts, e.options.BatchSize) {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		var vecs [][]float32
		err := resilience.Retry(ctx, e.options.Retry, func(ctx context.Context) error {
			v, err := e.embed(ctx, batch)
			if err != nil {
				return err
			}
			vecs = v
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embed(ctx context.Context, batch []string) ([][]float32, error) {
	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: batch,
		Model: openai.EmbeddingModel(e.options.Model),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(rsp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrEmbeddingService, len(rsp.Data), len(batch))
	}

	vecs := make([][]float32, len(batch))
	for _, d := range rsp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(batch) || vecs[idx] != nil {
			return nil, fmt.Errorf("%w: bad embedding index %d", domain.ErrEmbeddingService, d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingService)
		}
		vecs[idx] = d.Embedding
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range vecs {
		if e.dimension == 0 {
			e.dimension = len(v)
		}
		if len(v) != e.dimension {
			return nil, fmt.Errorf("%w: embedding dimension %d, want %d", domain.ErrEmbeddingService, len(v), e.dimension)
		}
	}
	return vecs, nil
}

// classify wraps err as an embedding service failure. Client errors other
// than rate limiting are not retried.
func classify(err error) error {
	wrapped := fmt.Errorf("%w: openai embeddings: %w", domain.ErrEmbeddingService, err)
	if permanentStatus(statusCode(err)) {
		return resilience.Permanent(wrapped)
	}
	return wrapped
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func permanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
