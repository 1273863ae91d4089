package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// PageSeparator joins page texts when a document is flattened for chunking.
const PageSeparator = "\n\n"

// Document is a single PDF loaded from the source directory.
// Pages keep their original order; blank pages are empty strings.
type Document struct {
	ID    string
	Path  string
	Pages []string
}

// Text returns the document content with pages joined by PageSeparator.
func (d Document) Text() string {
	return strings.Join(d.Pages, PageSeparator)
}

// PageAt maps a rune offset into Text() to a 1-based page number.
func (d Document) PageAt(offset int) int {
	if len(d.Pages) == 0 {
		return 0
	}
	sep := utf8.RuneCountInString(PageSeparator)
	end := 0
	for i, p := range d.Pages {
		end += utf8.RuneCountInString(p)
		if offset < end+sep || i == len(d.Pages)-1 {
			return i + 1
		}
		end += sep
	}
	return len(d.Pages)
}

// Chunk is a contiguous span of a document's text used for indexing.
// Offset and Length are measured in runes.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Index      int
	Text       string
	Offset     int
	Length     int
	Page       int
}

// SearchResult is a retrieved chunk. Score is cosine similarity and
// Distance is 1-Score, so smaller distances are closer.
type SearchResult struct {
	Chunk    Chunk
	Score    float64
	Distance float64
}

// Answer is the outcome of one question against a built index.
type Answer struct {
	Question string
	Text     string
	Context  []SearchResult
	Elapsed  time.Duration
}

// Loader reads the documents found in a source directory.
type Loader interface {
	Load(ctx context.Context, dir string) ([]Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into fixed-dimension vectors.
// EmbedBatch returns exactly one vector per input, in input order.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Fitter is implemented by embedders that must be fitted on the corpus
// before use. Fit returns a new fitted embedder and leaves the receiver
// unchanged, so one Fitter can serve many independent builds.
type Fitter interface {
	Fit(corpus []string) (Embedder, error)
}

// VectorIndex is built once from chunks and their vectors, then queried.
type VectorIndex interface {
	Build(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	Len() int
	Close() error
}

// Generator sends a prompt to a hosted language model and returns its text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
