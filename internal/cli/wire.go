package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdfrag/internal/chunker"
	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/embedding"
	googleemb "pdfrag/internal/embedding/google"
	openaiemb "pdfrag/internal/embedding/openai"
	"pdfrag/internal/embedding/tfidf"
	"pdfrag/internal/generator"
	"pdfrag/internal/generator/anthropic"
	googlegen "pdfrag/internal/generator/google"
	openaigen "pdfrag/internal/generator/openai"
	"pdfrag/internal/loader"
	"pdfrag/internal/resilience"
	"pdfrag/internal/service"
	"pdfrag/internal/session"
	"pdfrag/internal/summarizer"
	"pdfrag/internal/vectorstore/memory"
	"pdfrag/internal/vectorstore/qdrant"
)

// pipelineFactory assembles the pipeline for a config. Tests replace it.
var pipelineFactory = wirePipeline

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func retryPolicy(maxRetries int) resilience.Policy {
	p := resilience.DefaultPolicy()
	p.MaxRetries = maxRetries
	return p
}

// wirePipeline builds every component named by cfg. The returned func
// releases provider clients.
func wirePipeline(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (session.Pipeline, func(), error) {
	emb, closeEmb, err := newEmbedder(ctx, cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}
	gen, closeGen, err := newGenerator(ctx, cfg.Generator)
	if err != nil {
		closeEmb()
		return nil, nil, err
	}
	indexes, err := newIndexFactory(cfg.VectorStore)
	if err != nil {
		closeEmb()
		closeGen()
		return nil, nil, err
	}

	svc := service.NewRAGService(service.Components{
		Loader: loader.New(
			loader.WithStrict(cfg.Loader.Strict),
			loader.WithLogger(logger),
		),
		Chunker: chunker.New(
			chunker.WithChunkSize(cfg.Chunker.Size),
			chunker.WithOverlap(cfg.Chunker.Overlap),
		),
		Embedder:   emb,
		NewIndex:   indexes,
		Generator:  gen,
		Summarizer: newSummarizer(cfg.Summarizer),
	}, service.Settings{
		SourceDir:           cfg.SourceDir,
		MaxDocuments:        cfg.MaxDocuments,
		TopK:                cfg.Retrieval.TopK,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
	}, logger)

	logger.Debug("pipeline assembled",
		"embedder", emb.Name(),
		"generator", gen.Name(),
		"vector_store", cfg.VectorStore.Type,
		"source_dir", cfg.SourceDir)
	return svc, func() { closeEmb(); closeGen() }, nil
}

func newEmbedder(ctx context.Context, c config.EmbedderConfig) (domain.Embedder, func(), error) {
	opts := []embedding.Option{
		embedding.WithApiKey(config.APIKey(c.APIKeyEnv)),
		embedding.WithModel(c.Model),
		embedding.WithBaseURL(c.BaseURL),
		embedding.WithBatchSize(c.BatchSize),
		embedding.WithTimeout(secs(c.TimeoutSecs)),
		embedding.WithRequestsPerSecond(c.RequestsPerSecond),
		embedding.WithRetry(retryPolicy(c.MaxRetries)),
	}
	switch c.Provider {
	case "openai":
		return openaiemb.NewEmbedder(opts...), func() {}, nil
	case "google":
		e, err := googleemb.NewEmbedder(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: google embedder: %w", domain.ErrConfig, err)
		}
		return e, func() { _ = e.Close() }, nil
	case "tfidf":
		return tfidf.NewEmbedder(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown embedder provider %q", domain.ErrConfig, c.Provider)
	}
}

func newGenerator(ctx context.Context, c config.GeneratorConfig) (domain.Generator, func(), error) {
	opts := []generator.Option{
		generator.WithApiKey(config.APIKey(c.APIKeyEnv)),
		generator.WithModel(c.Model),
		generator.WithBaseURL(c.BaseURL),
		generator.WithMaxTokens(c.MaxTokens),
		generator.WithTemperature(c.Temperature),
		generator.WithTimeout(secs(c.TimeoutSecs)),
	}
	policy := retryPolicy(c.MaxRetries)
	switch c.Provider {
	case "openai":
		return resilience.WrapGenerator(openaigen.NewGenerator(opts...), policy), func() {}, nil
	case "anthropic":
		return resilience.WrapGenerator(anthropic.NewGenerator(opts...), policy), func() {}, nil
	case "google":
		g, err := googlegen.NewGenerator(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: google generator: %w", domain.ErrConfig, err)
		}
		return resilience.WrapGenerator(g, policy), func() { _ = g.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown generator provider %q", domain.ErrConfig, c.Provider)
	}
}

func newIndexFactory(c config.VectorStoreConfig) (service.IndexFactory, error) {
	switch c.Type {
	case "memory":
		return func(string) domain.VectorIndex { return memory.NewIndex() }, nil
	case "qdrant":
		if c.Qdrant == nil {
			return nil, fmt.Errorf("%w: qdrant config missing", domain.ErrConfig)
		}
		qcfg := qdrant.Config{
			URL:              c.Qdrant.URL,
			APIKey:           c.Qdrant.APIKey,
			CollectionPrefix: c.Qdrant.CollectionPrefix,
			Timeout:          secs(c.Qdrant.TimeoutSecs),
		}
		return func(sessionID string) domain.VectorIndex { return qdrant.NewIndex(qcfg, sessionID) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrConfig, c.Type)
	}
}

// newSummarizer returns nil when summaries are turned off.
func newSummarizer(c config.SummarizerConfig) domain.Summarizer {
	switch c.Type {
	case "frequency":
		return summarizer.NewFrequencySummarizer()
	default:
		return nil
	}
}
