// Package loader reads PDF documents from a directory.
package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfrag/internal/domain"
)

// PageExtractor returns the plain text of every page of the file at path.
type PageExtractor func(path string) ([]string, error)

// Loader loads every PDF of a directory, in lexical file name order.
type Loader struct {
	extract PageExtractor
	strict  bool
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithStrict makes any unreadable PDF fail the whole load instead of being skipped.
func WithStrict(strict bool) Option {
	return func(l *Loader) { l.strict = strict }
}

// WithExtractor replaces the PDF text extractor.
func WithExtractor(fn PageExtractor) Option {
	return func(l *Loader) {
		if fn != nil {
			l.extract = fn
		}
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader that extracts text with ReadPDF.
func New(opts ...Option) *Loader {
	l := &Loader{extract: ReadPDF, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ domain.Loader = (*Loader)(nil)

// Load returns one Document per parseable PDF in dir.
func (l *Loader) Load(ctx context.Context, dir string) ([]domain.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrLoad, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}

	var documents []domain.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name())
		pages, err := l.extract(path)
		if err != nil {
			if l.strict {
				return nil, fmt.Errorf("%w: %s: %v", domain.ErrLoad, path, err)
			}
			l.logger.Warn("skipping unreadable pdf", "path", path, "error", err)
			continue
		}
		documents = append(documents, domain.Document{ID: hashString(path), Path: path, Pages: pages})
		l.logger.Debug("loaded pdf", "path", path, "pages", len(pages))
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: no PDF documents found in %s", domain.ErrLoad, dir)
	}
	return documents, nil
}

// ReadPDF extracts the trimmed plain text of each page. Pages without
// content yield empty strings so page numbering is preserved.
func ReadPDF(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
