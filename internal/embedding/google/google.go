// Package google embeds text with the Gemini embedding API.
package google

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"pdfrag/internal/domain"
	"pdfrag/internal/embedding"
	"pdfrag/internal/resilience"
)

type Embedder struct {
	options embedding.Options
	client  *genai.Client

	mu        sync.Mutex
	dimension int
}

var _ domain.Embedder = (*Embedder)(nil)

func NewEmbedder(ctx context.Context, opts ...embedding.Option) (*Embedder, error) {
	options := embedding.NewOptions(opts...)
	if options.Model == "" {
		options.Model = "text-embedding-004"
	}

	clientOpts := []genaiopt.ClientOption{genaiopt.WithAPIKey(options.ApiKey)}
	if options.BaseURL != "" {
		clientOpts = append(clientOpts, genaiopt.WithEndpoint(options.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	return &Embedder{options: options, client: client}, nil
}

func (e *Embedder) Name() string { return "google" }

func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.client.EmbeddingModel(e.options.Model)
	out := make([][]float32, 0, len(texts))
	for _, batch := range embedding.Batches(texts, e.options.BatchSize) {
		b := model.NewBatch()
		for _, t := range batch {
			b.AddContent(genai.Text(t))
		}
		var rsp *genai.BatchEmbedContentsResponse
		err := resilience.Retry(ctx, e.options.Retry, func(ctx context.Context) error {
			r, err := model.BatchEmbedContents(ctx, b)
			if err != nil {
				return err
			}
			rsp = r
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: google embeddings: %w", domain.ErrEmbeddingService, err)
		}
		if rsp == nil || len(rsp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: google embeddings: wrong number of vectors", domain.ErrEmbeddingService)
		}
		for _, emb := range rsp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("%w: google embeddings: empty vector", domain.ErrEmbeddingService)
			}
			if err := e.checkDimension(len(emb.Values)); err != nil {
				return nil, err
			}
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

func (e *Embedder) checkDimension(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimension == 0 {
		e.dimension = n
	}
	if n != e.dimension {
		return fmt.Errorf("%w: embedding dimension %d, want %d", domain.ErrEmbeddingService, n, e.dimension)
	}
	return nil
}

// Close releases the underlying client.
func (e *Embedder) Close() error {
	return e.client.Close()
}
