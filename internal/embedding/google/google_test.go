package google

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfrag/internal/domain"
)

func TestCheckDimension(t *testing.T) {
	e := &Embedder{}
	assert.NoError(t, e.checkDimension(768))
	assert.Equal(t, 768, e.Dimension())
	assert.NoError(t, e.checkDimension(768))
	assert.ErrorIs(t, e.checkDimension(512), domain.ErrEmbeddingService)
	assert.Equal(t, "google", e.Name())
}
