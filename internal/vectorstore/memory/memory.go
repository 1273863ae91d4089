// Package memory is an in-process vector index using exact cosine search.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore"
)

// Index holds copies of the chunks and vectors it was built from.
// It is read-only after Build.
type Index struct {
	mu        sync.RWMutex
	built     bool
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float32
	norms     []float64
}

func NewIndex() *Index { return &Index{} }

var _ domain.VectorIndex = (*Index)(nil)

// Build stores chunks[i] with vectors[i]. All vectors must share one dimension.
func (s *Index) Build(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrValidation, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: nothing to index", domain.ErrValidation)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrValidation)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrValidation, i, len(v), dim)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built {
		return fmt.Errorf("%w: index already built", domain.ErrValidation)
	}
	s.chunks = append([]domain.Chunk(nil), chunks...)
	s.vectors = make([][]float32, len(vectors))
	s.norms = make([]float64, len(vectors))
	for i, v := range vectors {
		s.vectors[i] = append([]float32(nil), v...)
		s.norms[i] = vectorstore.Norm(v)
	}
	s.dimension = dim
	s.built = true
	return nil
}

// Query returns the min(k, Len()) nearest chunks by cosine distance.
// Ties keep insertion order.
func (s *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.built {
		return nil, domain.ErrNotBuilt
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrValidation, len(vector), s.dimension)
	}
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qn := vectorstore.Norm(vector)
	scores := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		if qn > 0 && s.norms[i] > 0 {
			scores[i] = vectorstore.Dot(v, vector) / (qn * s.norms[i])
		}
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{Chunk: s.chunks[j], Score: scores[j], Distance: 1 - scores[j]})
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Close drops the stored vectors. The index answers ErrNotBuilt afterwards.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.built = false
	s.chunks = nil
	s.vectors = nil
	s.norms = nil
	return nil
}
