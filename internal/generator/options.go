// Package generator holds the options shared by hosted LLM providers.
package generator

import "time"

// DefaultMaxTokens bounds the length of generated answers.
const DefaultMaxTokens = 1024

type Option func(*Options)

type Options struct {
	ApiKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
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

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

func WithTemperature(t float32) Option {
	return func(o *Options) {
		if t >= 0 {
			o.Temperature = t
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

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxTokens: DefaultMaxTokens,
		Timeout:   60 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
