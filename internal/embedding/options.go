// Package embedding holds the options shared by remote embedding providers.
package embedding

import (
	"time"

	"pdfrag/internal/resilience"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 32

type Option func(*Options)

type Options struct {
	ApiKey            string
	Model             string
	BaseURL           string
	BatchSize         int
	Timeout           time.Duration
	RequestsPerSecond float64
	// Retry applies to each batch request on its own. The zero value
	// sends every batch once.
	Retry resilience.Policy
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

func WithBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithRequestsPerSecond paces batch requests; 0 disables pacing.
func WithRequestsPerSecond(rps float64) Option {
	return func(o *Options) {
		if rps >= 0 {
			o.RequestsPerSecond = rps
		}
	}
}

func WithRetry(p resilience.Policy) Option {
	return func(o *Options) {
		o.Retry = p
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		BatchSize: DefaultBatchSize,
		Timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Batches splits texts into consecutive slices of at most size elements.
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}
