// Package chunker splits documents into overlapping, size-bounded chunks.
package chunker

import (
	"strconv"

	"pdfrag/internal/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 700

// DefaultChunkOverlap is the default number of characters shared by
// consecutive chunks.
const DefaultChunkOverlap = 50

// DefaultSeparators lists preferred cut points, strongest first:
// paragraph, line, sentence, word.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// RecursiveChunker cuts text at the strongest boundary that fits in the
// window and falls back to a hard cut. Sizes are measured in runes.
type RecursiveChunker struct {
	size       int
	overlap    int
	separators [][]rune
}

// Option configures the chunker.
type Option func(*RecursiveChunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *RecursiveChunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *RecursiveChunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSeparators replaces the boundary preference list.
func WithSeparators(seps ...string) Option {
	return func(c *RecursiveChunker) {
		c.separators = c.separators[:0]
		for _, s := range seps {
			if s != "" {
				c.separators = append(c.separators, []rune(s))
			}
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *RecursiveChunker {
	c := &RecursiveChunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, s := range DefaultSeparators {
		c.separators = append(c.separators, []rune(s))
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

var _ domain.Chunker = (*RecursiveChunker)(nil)

// Size returns the maximum chunk length.
func (c *RecursiveChunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive chunks.
func (c *RecursiveChunker) Overlap() int { return c.overlap }

// Chunk splits one document. The next chunk always starts exactly
// overlap runes before the previous one ends.
func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	text := []rune(document.Text())
	n := len(text)
	if n == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	start := 0
	for {
		end := n
		if n-start > c.size {
			end = c.cutPoint(text, start)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         document.ID + ":" + strconv.Itoa(len(chunks)),
			DocumentID: document.ID,
			Source:     document.Path,
			Index:      len(chunks),
			Text:       string(text[start:end]),
			Offset:     start,
			Length:     end - start,
			Page:       document.PageAt(start),
		})
		if end == n {
			return chunks, nil
		}
		start = end - c.overlap
	}
}

// Split chunks every document in order.
func (c *RecursiveChunker) Split(documents []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for _, d := range documents {
		chunks, err := c.Chunk(d)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// cutPoint returns the end of the chunk starting at start. The result is
// in (start+overlap, start+size] so every step makes progress.
func (c *RecursiveChunker) cutPoint(text []rune, start int) int {
	limit := start + c.size
	lowest := start + c.overlap + 1
	for _, sep := range c.separators {
		for end := limit; end >= lowest && end >= len(sep); end-- {
			if hasSuffixAt(text, end, sep) {
				return end
			}
		}
	}
	return limit
}

func hasSuffixAt(text []rune, end int, sep []rune) bool {
	if end-len(sep) < 0 {
		return false
	}
	for i, r := range sep {
		if text[end-len(sep)+i] != r {
			return false
		}
	}
	return true
}
