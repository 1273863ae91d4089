package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pdfrag/internal/domain"
)

// Defaults mirror the hosted NVIDIA NIM setup the app was built around.
const (
	DefaultSourceDir      = "./us_census"
	DefaultMaxDocuments   = 30
	DefaultChunkSize      = 700
	DefaultChunkOverlap   = 50
	DefaultTopK           = 4
	DefaultNIMBaseURL     = "https://integrate.api.nvidia.com/v1"
	DefaultAPIKeyEnv      = "NVIDIA_API_KEY"
	DefaultEmbeddingModel = "nvidia/nv-embed-v1"
	DefaultChatModel      = "meta/llama3-70b-instruct"
	DefaultServerAddr     = ":8080"
)

// LoaderConfig controls how unreadable PDFs are handled.
type LoaderConfig struct {
	Strict bool `yaml:"strict"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type    string `yaml:"type"`
	Size    int    `yaml:"size"`
	Overlap int    `yaml:"overlap"`
}

// EmbedderConfig selects and configures the text embedder.
// Provider is one of openai, google or tfidf. MaxRetries of -1 disables
// retries.
type EmbedderConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env,omitempty"`
	Model             string  `yaml:"model,omitempty"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// GeneratorConfig selects and configures the answer model.
// Provider is one of openai, anthropic or google. MaxRetries of -1
// disables retries.
type GeneratorConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens"`
	// Temperature 0 is left out of openai requests by go-openai, so the
	// server's default applies. Use a small positive value such as 0.01
	// for near-greedy decoding there.
	Temperature float32 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
}

// RetrievalConfig controls how many chunks back each answer.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// VectorStoreConfig selects and configures the vector index.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key,omitempty"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// SummarizerConfig selects and configures the corpus summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// ServerConfig configures the web UI.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	SourceDir    string            `yaml:"source_dir"`
	MaxDocuments int               `yaml:"max_documents"`
	Watch        bool              `yaml:"watch"`
	Loader       LoaderConfig      `yaml:"loader"`
	Chunker      ChunkerConfig     `yaml:"chunker"`
	Embedder     EmbedderConfig    `yaml:"embedder"`
	Generator    GeneratorConfig   `yaml:"generator"`
	Retrieval    RetrievalConfig   `yaml:"retrieval"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	Summarizer   SummarizerConfig  `yaml:"summarizer"`
	Server       ServerConfig      `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdfrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/pdfrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfrag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.SourceDir == "" {
		cfg.SourceDir = DefaultSourceDir
	}
	if cfg.MaxDocuments == 0 {
		cfg.MaxDocuments = DefaultMaxDocuments
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = DefaultChunkSize
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = DefaultChunkOverlap
		}
	}

	e := &cfg.Embedder
	if e.Provider == "" {
		e.Provider = "openai"
	}
	switch e.Provider {
	case "openai":
		if e.BaseURL == "" {
			e.BaseURL = DefaultNIMBaseURL
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = DefaultAPIKeyEnv
		}
		if e.Model == "" {
			e.Model = DefaultEmbeddingModel
		}
	case "google":
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "GEMINI_API_KEY"
		}
		if e.Model == "" {
			e.Model = "text-embedding-004"
		}
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 30
	}
	if e.BatchSize == 0 {
		e.BatchSize = 32
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = 2
	}

	g := &cfg.Generator
	if g.Provider == "" {
		g.Provider = "openai"
	}
	switch g.Provider {
	case "openai":
		if g.BaseURL == "" {
			g.BaseURL = DefaultNIMBaseURL
		}
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = DefaultAPIKeyEnv
		}
		if g.Model == "" {
			g.Model = DefaultChatModel
		}
	case "anthropic":
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
		if g.Model == "" {
			g.Model = "claude-sonnet-4-5"
		}
	case "google":
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "GEMINI_API_KEY"
		}
		if g.Model == "" {
			g.Model = "gemini-2.0-flash"
		}
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 60
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 1024
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = 2
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.CollectionPrefix == "" {
			q.CollectionPrefix = "pdfrag"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
}

// Validate checks values that cannot be defaulted. Every failure wraps
// domain.ErrConfig.
func (c *AppConfig) Validate() error {
	var problems []string
	if c.Chunker.Size <= 0 {
		problems = append(problems, "chunker.size must be positive")
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		problems = append(problems, "chunker.overlap must be in [0, chunker.size)")
	}
	if c.Chunker.Type != "recursive" {
		problems = append(problems, fmt.Sprintf("unknown chunker %q", c.Chunker.Type))
	}
	if c.MaxDocuments < 0 {
		problems = append(problems, "max_documents must not be negative")
	}
	if c.Retrieval.TopK < 0 {
		problems = append(problems, "retrieval.top_k must not be negative")
	}
	switch c.Embedder.Provider {
	case "openai", "google":
		if APIKey(c.Embedder.APIKeyEnv) == "" {
			problems = append(problems, fmt.Sprintf("embedder API key missing: set %s", c.Embedder.APIKeyEnv))
		}
	case "tfidf":
	default:
		problems = append(problems, fmt.Sprintf("unknown embedder provider %q", c.Embedder.Provider))
	}
	switch c.Generator.Provider {
	case "openai", "anthropic", "google":
		if APIKey(c.Generator.APIKeyEnv) == "" {
			problems = append(problems, fmt.Sprintf("generator API key missing: set %s", c.Generator.APIKeyEnv))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown generator provider %q", c.Generator.Provider))
	}
	switch c.VectorStore.Type {
	case "memory", "qdrant":
	default:
		problems = append(problems, fmt.Sprintf("unknown vector store %q", c.VectorStore.Type))
	}
	switch c.Summarizer.Type {
	case "frequency", "none":
	default:
		problems = append(problems, fmt.Sprintf("unknown summarizer %q", c.Summarizer.Type))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// APIKey reads a key from the named environment variable.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}
