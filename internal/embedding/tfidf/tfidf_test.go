package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func fit(t *testing.T, corpus []string) domain.Embedder {
	t.Helper()
	e, err := NewEmbedder().Fit(corpus)
	require.NoError(t, err)
	return e
}

func TestEmbedBeforeFit(t *testing.T) {
	_, err := NewEmbedder().EmbedBatch(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestFitEmptyCorpus(t *testing.T) {
	_, err := NewEmbedder().Fit(nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
	_, err = NewEmbedder().Fit([]string{"the and of"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestEmbedBatch(t *testing.T) {
	corpus := []string{
		"Population of the United States grew to 331 million.",
		"Median household income increased in 2021.",
		"Health insurance coverage statistics by state.",
	}
	e := fit(t, corpus)
	assert.Greater(t, e.Dimension(), 0)
	assert.Equal(t, "tfidf", e.Name())

	vecs, err := e.EmbedBatch(context.Background(), corpus)
	require.NoError(t, err)
	require.Len(t, vecs, len(corpus))
	for _, v := range vecs {
		assert.Len(t, v, e.Dimension())
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}

	q, err := e.EmbedBatch(context.Background(), []string{"household income"})
	require.NoError(t, err)
	assert.Greater(t, dot(q[0], vecs[1]), dot(q[0], vecs[0]))
	assert.Greater(t, dot(q[0], vecs[1]), dot(q[0], vecs[2]))
}

func TestFitLeavesEarlierFitsIntact(t *testing.T) {
	base := NewEmbedder()
	first, err := base.Fit([]string{"census income", "housing units"})
	require.NoError(t, err)
	dim := first.Dimension()

	second, err := base.Fit([]string{"alpha beta gamma delta", "epsilon zeta eta theta iota"})
	require.NoError(t, err)
	assert.NotEqual(t, dim, second.Dimension())

	assert.Equal(t, dim, first.Dimension())
	assert.Zero(t, base.Dimension())
	vecs, err := first.EmbedBatch(context.Background(), []string{"income"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], dim)
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-5)
}

func TestEmbedUnknownTermsIsZero(t *testing.T) {
	e := fit(t, []string{"census data"})

	vecs, err := e.EmbedBatch(context.Background(), []string{"zebra"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, norm(vecs[0]))
}

func TestEmbedDoesNotMutateInput(t *testing.T) {
	in := []string{"Census Bureau", "Survey"}
	e := fit(t, in)
	_, err := e.EmbedBatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Census Bureau", "Survey"}, in)
}
