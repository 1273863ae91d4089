package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
	"pdfrag/internal/pdftest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "census.pdf")
	pdftest.Write(t, path, "Population in 2020 was 331 million.", "Median household income rose.")

	pages, err := ReadPDF(path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Population in 2020 was 331 million.")
	assert.Contains(t, pages[1], "Median household income rose.")
}

func TestReadPDFNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("just some text, not a pdf at all"), 0o644))

	_, err := ReadPDF(path)
	assert.Error(t, err)
}

func TestLoadOrderAndFiltering(t *testing.T) {
	dir := t.TempDir()
	pdftest.Write(t, filepath.Join(dir, "b.pdf"), "second")
	pdftest.Write(t, filepath.Join(dir, "a.PDF"), "first")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	docs, err := New(WithLogger(quietLogger())).Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, filepath.Join(dir, "a.PDF"), docs[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), docs[1].Path)
	assert.Contains(t, docs[0].Text(), "first")
	assert.NotEmpty(t, docs[0].ID)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, domain.ErrLoad)
}

func TestLoadNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := New().Load(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrLoad)
}

func TestLoadEmptyDirectory(t *testing.T) {
	_, err := New().Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrLoad)
}

func fakeExtractor(bad string) PageExtractor {
	return func(path string) ([]string, error) {
		if filepath.Base(path) == bad {
			return nil, errors.New("corrupt xref")
		}
		return []string{"text of " + filepath.Base(path)}, nil
	}
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
}

func TestLoadSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "broken.pdf", "c.pdf")

	l := New(WithExtractor(fakeExtractor("broken.pdf")), WithLogger(quietLogger()))
	docs, err := l.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"text of a.pdf"}, docs[0].Pages)
	assert.Equal(t, []string{"text of c.pdf"}, docs[1].Pages)
}

func TestLoadStrictFailsOnUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "broken.pdf")

	l := New(WithExtractor(fakeExtractor("broken.pdf")), WithStrict(true))
	_, err := l.Load(context.Background(), dir)
	assert.ErrorIs(t, err, domain.ErrLoad)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestLoadAllUnreadable(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "broken.pdf")

	l := New(WithExtractor(fakeExtractor("broken.pdf")), WithLogger(quietLogger()))
	_, err := l.Load(context.Background(), dir)
	assert.ErrorIs(t, err, domain.ErrLoad)
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithExtractor(fakeExtractor(""))).Load(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
