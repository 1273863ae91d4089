package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pdfrag/internal/answer"
	"pdfrag/internal/domain"
	"pdfrag/internal/logger"
)

const (
	DefaultMaxDocuments = 30
	DefaultTopK         = 4
)

// IndexFactory returns a fresh, unbuilt index for a session.
type IndexFactory func(sessionID string) domain.VectorIndex

// Components are the collaborators of the pipeline. Summarizer is optional.
type Components struct {
	Loader     domain.Loader
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	NewIndex   IndexFactory
	Generator  domain.Generator
	Summarizer domain.Summarizer
}

// Settings tune the pipeline.
type Settings struct {
	SourceDir           string
	MaxDocuments        int
	TopK                int
	SummaryMaxSentences int
}

// BuildResult describes a fully built index. Index is never partially built.
// Embedder is the one that produced the index vectors; questions against
// Index must be embedded with it.
type BuildResult struct {
	Index     domain.VectorIndex
	Embedder  domain.Embedder
	Documents int
	Pages     int
	Chunks    int
	Summary   string
	Elapsed   time.Duration
}

// RAGService runs ingestion and question answering. It keeps no session
// state; the index it builds is owned by the caller.
type RAGService struct {
	loader     domain.Loader
	chunker    domain.Chunker
	embedder   domain.Embedder
	newIndex   IndexFactory
	answerer   *answer.Generator
	summarizer domain.Summarizer
	settings   Settings
	logger     *slog.Logger
}

func NewRAGService(c Components, s Settings, logger *slog.Logger) *RAGService {
	if s.MaxDocuments <= 0 {
		s.MaxDocuments = DefaultMaxDocuments
	}
	if s.TopK <= 0 {
		s.TopK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{
		loader:     c.Loader,
		chunker:    c.Chunker,
		embedder:   c.Embedder,
		newIndex:   c.NewIndex,
		answerer:   answer.New(c.Generator),
		summarizer: c.Summarizer,
		settings:   s,
		logger:     logger,
	}
}

// Settings returns the effective settings.
func (s *RAGService) Settings() Settings { return s.settings }

// Ingest loads, chunks, embeds and indexes the source directory.
func (s *RAGService) Ingest(ctx context.Context, sessionID string) (*BuildResult, error) {
	start := time.Now()
	log := s.logger.With("session", sessionID)
	logger.Section(log, "Build")

	documents, err := s.loader.Load(ctx, s.settings.SourceDir)
	if err != nil {
		return nil, err
	}
	if len(documents) > s.settings.MaxDocuments {
		log.Info("document cap reached", "found", len(documents), "cap", s.settings.MaxDocuments)
		documents = documents[:s.settings.MaxDocuments]
	}

	var chunks []domain.Chunk
	pages := 0
	for _, d := range documents {
		cs, err := s.chunker.Chunk(d)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, cs...)
		pages += len(d.Pages)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrLoad, s.settings.SourceDir)
	}
	log.Debug("chunked documents", "documents", len(documents), "pages", pages, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embedder := s.embedder
	if f, ok := embedder.(domain.Fitter); ok {
		if embedder, err = f.Fit(texts); err != nil {
			return nil, asKind(err, domain.ErrEmbeddingService)
		}
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, asKind(err, domain.ErrEmbeddingService)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrEmbeddingService, len(vectors), len(chunks))
	}
	log.Debug("embedded chunks", "embedder", embedder.Name(), "dimension", embedder.Dimension())

	index := s.newIndex(sessionID)
	if err := index.Build(ctx, chunks, vectors); err != nil {
		if cerr := index.Close(); cerr != nil {
			log.Warn("closing partial index", "error", cerr)
		}
		return nil, err
	}

	result := &BuildResult{
		Index:     index,
		Embedder:  embedder,
		Documents: len(documents),
		Pages:     pages,
		Chunks:    len(chunks),
		Summary:   s.summarize(documents, log),
		Elapsed:   time.Since(start),
	}
	log.Info("vector store ready", "documents", result.Documents, "chunks", result.Chunks, "elapsed", result.Elapsed)
	return result, nil
}

// Answer embeds the question with the build's embedder, retrieves the
// closest chunks from its index and asks the generator. Elapsed covers
// retrieval and generation.
func (s *RAGService) Answer(ctx context.Context, build *BuildResult, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrValidation)
	}
	if build == nil || build.Index == nil {
		return nil, domain.ErrNotBuilt
	}
	start := time.Now()

	embedder := build.Embedder
	if embedder == nil {
		embedder = s.embedder
	}
	vectors, err := embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		return nil, asKind(err, domain.ErrEmbeddingService)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: %d vectors for 1 question", domain.ErrEmbeddingService, len(vectors))
	}
	results, err := build.Index.Query(ctx, vectors[0], s.settings.TopK)
	if err != nil {
		return nil, err
	}
	ans, err := s.answerer.Answer(ctx, question, results)
	if err != nil {
		return nil, err
	}
	ans.Elapsed = time.Since(start)
	s.logger.Info("answered question", "retrieved", len(results), "elapsed", ans.Elapsed)
	return ans, nil
}

func (s *RAGService) summarize(documents []domain.Document, log *slog.Logger) string {
	if s.summarizer == nil {
		return ""
	}
	var b strings.Builder
	for _, d := range documents {
		b.WriteString(d.Text())
		b.WriteString("\n")
	}
	summary, err := s.summarizer.Summarize(b.String(), s.settings.SummaryMaxSentences)
	if err != nil {
		log.Warn("summary failed", "error", err)
		return ""
	}
	return summary
}

// asKind wraps err with kind unless it already carries it or is a
// context error.
func asKind(err, kind error) error {
	if errors.Is(err, kind) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
