package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func doc(pages ...string) domain.Document {
	return domain.Document{ID: "doc", Path: "/data/doc.pdf", Pages: pages}
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func reconstruct(chunks []domain.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		r := []rune(c.Text)
		if i > 0 {
			r = r[overlap:]
		}
		b.WriteString(string(r))
	}
	return b.String()
}

func TestChunkWordBoundaries(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(2))
	chunks, err := c.Chunk(doc("aaaa bbbb cccc dddd"))
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa bbbb ", "b cccc ", "c dddd"}, texts(chunks))
	assert.Equal(t, "aaaa bbbb cccc dddd", reconstruct(chunks, 2))
}

func TestChunkPrefersParagraphs(t *testing.T) {
	c := New(WithChunkSize(20), WithOverlap(0))
	chunks, err := c.Chunk(doc("para one.\n\npara two is here"))
	require.NoError(t, err)
	assert.Equal(t, []string{"para one.\n\n", "para two is here"}, texts(chunks))
}

func TestChunkHardCut(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(3))
	chunks, err := c.Chunk(doc("abcdefghijklmnopqrstuvwxyz"))
	require.NoError(t, err)
	assert.Equal(t, []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxyz"}, texts(chunks))
}

func TestChunkShortText(t *testing.T) {
	chunks, err := New().Chunk(doc("The census counts every resident."))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "The census counts every resident.", chunks[0].Text)
	assert.Equal(t, "doc:0", chunks[0].ID)
	assert.Equal(t, "/data/doc.pdf", chunks[0].Source)
	assert.Equal(t, 1, chunks[0].Page)
}

func TestChunkEmptyDocument(t *testing.T) {
	chunks, err := New().Chunk(doc())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRunesNotBytes(t *testing.T) {
	c := New(WithChunkSize(6), WithOverlap(1))
	chunks, err := c.Chunk(doc("ééééé ééééé"))
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 6)
		assert.Equal(t, utf8.RuneCountInString(ch.Text), ch.Length)
	}
	assert.Equal(t, "ééééé ééééé", reconstruct(chunks, 1))
}

func TestChunkPages(t *testing.T) {
	c := New(WithChunkSize(30), WithOverlap(5))
	d := doc("First page talks about housing.", "Second page covers income levels.")
	chunks, err := c.Chunk(d)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 2, chunks[len(chunks)-1].Page)
}

func TestOverlapClamped(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(10))
	assert.Equal(t, 10, c.Size())
	assert.Equal(t, 2, c.Overlap())
}

func TestDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, 700, c.Size())
	assert.Equal(t, 50, c.Overlap())
}

func TestChunkProperties(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("The American Community Survey samples households every month. ")
		if i%7 == 0 {
			b.WriteString("\n\n")
		}
		if i%11 == 0 {
			b.WriteString("Table-")
			b.WriteString(strings.Repeat("x", 90))
			b.WriteString("\n")
		}
	}
	text := b.String()

	configs := []struct{ size, overlap int }{
		{700, 50},
		{100, 0},
		{64, 20},
		{5, 4},
	}
	for _, cfg := range configs {
		c := New(WithChunkSize(cfg.size), WithOverlap(cfg.overlap))
		chunks, err := c.Chunk(doc(text))
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		for i, ch := range chunks {
			assert.NotEmpty(t, ch.Text)
			assert.LessOrEqual(t, ch.Length, cfg.size)
			assert.Equal(t, i, ch.Index)
			if i > 0 {
				prev := chunks[i-1]
				assert.Equal(t, prev.Offset+prev.Length-cfg.overlap, ch.Offset)
			}
		}
		assert.Equal(t, text, reconstruct(chunks, cfg.overlap), "size=%d overlap=%d", cfg.size, cfg.overlap)

		again, err := c.Chunk(doc(text))
		require.NoError(t, err)
		assert.Equal(t, chunks, again)
	}
}

func TestSplitKeepsDocumentOrder(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(0))
	docs := []domain.Document{
		{ID: "a", Path: "a.pdf", Pages: []string{"alpha beta gamma"}},
		{ID: "b", Path: "b.pdf", Pages: []string{"delta"}},
	}
	chunks, err := c.Split(docs)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a", chunks[0].DocumentID)
	assert.Equal(t, "a", chunks[1].DocumentID)
	assert.Equal(t, "b:0", chunks[2].ID)
}
