package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfrag/internal/domain"
)

// DefaultUpsertBatch is the number of points sent per upsert request.
const DefaultUpsertBatch = 256

// Index is a minimal REST client to Qdrant. Each Index owns one
// collection, created on Build with cosine distance and dropped on Close.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu        sync.RWMutex
	created   bool
	built     bool
	dimension int
	count     int
}

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

var _ domain.VectorIndex = (*Index)(nil)

// NewIndex creates an index whose collection is named after the session.
func NewIndex(cfg Config, sessionID string) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "pdfrag"
	}
	return &Index{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: prefix + "-" + sessionID,
		client:     &http.Client{Timeout: timeout},
	}
}

// Collection returns the name of the backing collection.
func (s *Index) Collection() string { return s.collection }

func (s *Index) Build(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrValidation, len(chunks), len(vectors))
	}
	if len(chunks) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("%w: nothing to index", domain.ErrValidation)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrValidation, i, len(v), dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built {
		return fmt.Errorf("%w: index already built", domain.ErrValidation)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return err
	}
	s.created = true

	for start := 0; start < len(chunks); start += DefaultUpsertBatch {
		end := start + DefaultUpsertBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, map[string]any{
				"id":      pointID(chunks[i].ID),
				"vector":  vectors[i],
				"payload": toPayload(chunks[i], i),
			})
		}
		if err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
			if derr := s.dropLocked(); derr != nil {
				return errors.Join(err, derr)
			}
			return err
		}
	}

	s.dimension = dim
	s.count = len(chunks)
	s.built = true
	return nil
}

func (s *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	built, dim := s.built, s.dimension
	s.mu.RUnlock()
	if !built {
		return nil, domain.ErrNotBuilt
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrValidation, len(vector), dim)
	}
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	orders := make([]int, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{Chunk: r.Payload.chunk(), Score: r.Score, Distance: 1 - r.Score})
		orders = append(orders, r.Payload.Order)
	}
	// Equal scores keep insertion order, as in the memory index.
	sort.Sort(byScoreThenOrder{results: results, orders: orders})
	return results, nil
}

type byScoreThenOrder struct {
	results []domain.SearchResult
	orders  []int
}

func (b byScoreThenOrder) Len() int { return len(b.results) }

func (b byScoreThenOrder) Less(i, j int) bool {
	if b.results[i].Score != b.results[j].Score {
		return b.results[i].Score > b.results[j].Score
	}
	return b.orders[i] < b.orders[j]
}

func (b byScoreThenOrder) Swap(i, j int) {
	b.results[i], b.results[j] = b.results[j], b.results[i]
	b.orders[i], b.orders[j] = b.orders[j], b.orders[i]
}

func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close drops the collection, including one left by a failed Build.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropLocked()
}

func (s *Index) dropLocked() error {
	s.built = false
	s.count = 0
	s.dimension = 0
	if !s.created {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil); err != nil {
		return err
	}
	s.created = false
	return nil
}

type payload struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Offset     int    `json:"offset"`
	Length     int    `json:"length"`
	Page       int    `json:"page"`
	Order      int    `json:"order"`
}

func toPayload(c domain.Chunk, order int) payload {
	return payload{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		Source:     c.Source,
		Index:      c.Index,
		Text:       c.Text,
		Offset:     c.Offset,
		Length:     c.Length,
		Page:       c.Page,
		Order:      order,
	}
}

func (p payload) chunk() domain.Chunk {
	return domain.Chunk{
		ID:         p.ChunkID,
		DocumentID: p.DocumentID,
		Source:     p.Source,
		Index:      p.Index,
		Text:       p.Text,
		Offset:     p.Offset,
		Length:     p.Length,
		Page:       p.Page,
	}
}

// pointID derives a stable UUID from the chunk ID; Qdrant only accepts
// unsigned integers or UUIDs.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func (s *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Index) do(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
