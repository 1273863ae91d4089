package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, DefaultMaxTokens, o.MaxTokens)
	assert.Equal(t, 60*time.Second, o.Timeout)
	assert.Equal(t, float32(0), o.Temperature)
}

func TestNewOptions(t *testing.T) {
	o := NewOptions(
		WithApiKey("k"),
		WithModel("meta/llama3-70b-instruct"),
		WithBaseURL("https://integrate.api.nvidia.com/v1"),
		WithMaxTokens(256),
		WithTemperature(0.2),
		WithTimeout(5*time.Second),
	)
	assert.Equal(t, "k", o.ApiKey)
	assert.Equal(t, "meta/llama3-70b-instruct", o.Model)
	assert.Equal(t, "https://integrate.api.nvidia.com/v1", o.BaseURL)
	assert.Equal(t, 256, o.MaxTokens)
	assert.Equal(t, float32(0.2), o.Temperature)
	assert.Equal(t, 5*time.Second, o.Timeout)
}
