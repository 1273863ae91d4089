package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	openaiemb "pdfrag/internal/embedding/openai"
	"pdfrag/internal/embedding/tfidf"
	"pdfrag/internal/resilience"
	"pdfrag/internal/service"
	"pdfrag/internal/session"
	"pdfrag/internal/summarizer"
	"pdfrag/internal/tui"
	"pdfrag/internal/vectorstore/memory"
	"pdfrag/internal/vectorstore/qdrant"
)

type stubPipeline struct {
	ingests int
}

func (p *stubPipeline) Ingest(ctx context.Context, _ string) (*service.BuildResult, error) {
	p.ingests++
	idx := memory.NewIndex()
	chunks := []domain.Chunk{
		{ID: "a:0", Source: "/tmp/us_census/acsbr-015.pdf", Page: 1, Text: "Median household income was $74,580."},
		{ID: "b:0", Source: "/tmp/us_census/p70-178.pdf", Text: "Health insurance coverage rose."},
	}
	if err := idx.Build(ctx, chunks, [][]float32{{1, 0}, {0.6, 0.8}}); err != nil {
		return nil, err
	}
	return &service.BuildResult{Index: idx, Documents: 2, Chunks: 2}, nil
}

func (p *stubPipeline) Answer(ctx context.Context, build *service.BuildResult, q string) (*domain.Answer, error) {
	res, err := build.Index.Query(ctx, []float32{1, 0}, 4)
	if err != nil {
		return nil, err
	}
	return &domain.Answer{Question: q, Text: "About $74,580.", Context: res, Elapsed: 1500 * time.Millisecond}, nil
}

// runCLI executes the root command with a temporary config and a stub
// pipeline, returning stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NVIDIA_API_KEY", "nvapi-test")
	chdir(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source_dir: ./docs\nembedder:\n  provider: tfidf\n"), 0o644))

	stub := &stubPipeline{}
	orig := pipelineFactory
	pipelineFactory = func(context.Context, *config.AppConfig, *slog.Logger) (session.Pipeline, func(), error) {
		return stub, func() {}, nil
	}

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(append([]string{"--config", path}, args...))
	t.Cleanup(func() {
		pipelineFactory = orig
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		cfgPath, sourceDir, logFile, askJSON = "", "", "", false
		verbose = false
		appConfig = nil
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func findCommand(name string) *cobra.Command {
	for _, c := range rootCmd.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func TestRootCommands(t *testing.T) {
	for _, name := range []string{"tui", "serve", "ask"} {
		assert.NotNil(t, findCommand(name), name)
	}
	assert.Equal(t, "pdfrag", rootCmd.Use)
}

func TestPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"config", "source-dir", "verbose", "log-file"} {
		assert.NotNil(t, flags.Lookup(name), name)
	}
	assert.Equal(t, "v", flags.Lookup("verbose").Shorthand)
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := runCLI(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_PrintsAnswerAndPassages(t *testing.T) {
	out, err := runCLI(t, "ask", "What was the median household income?")
	require.NoError(t, err)
	assert.Contains(t, out, "About $74,580.")
	assert.Contains(t, out, "Response time: 1.50 seconds")
	assert.Contains(t, out, "[acsbr-015.pdf p.1] score=1.000")
	assert.Contains(t, out, "[p70-178.pdf] score=0.600")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte(tui.PassageRule)))
}

func TestAskCmd_JSON(t *testing.T) {
	out, err := runCLI(t, "ask", "--json", "income?")
	require.NoError(t, err)
	var got askOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "income?", got.Question)
	assert.Equal(t, int64(1500), got.ElapsedMS)
	require.Len(t, got.Passages, 2)
	assert.Equal(t, "acsbr-015.pdf", got.Passages[0].Source)
}

func TestSourceDirFlagOverridesConfig(t *testing.T) {
	_, err := runCLI(t, "--source-dir", "/data/pdfs", "ask", "q")
	require.NoError(t, err)
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("NVIDIA_API_KEY", "nvapi-test")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_documents: 5\n"), 0o644))
	cfgPath, sourceDir = path, "/data/pdfs"
	t.Cleanup(func() { cfgPath, sourceDir, appConfig = "", "", nil })

	require.NoError(t, loadSettings(rootCmd, nil))
	assert.Equal(t, "/data/pdfs", appConfig.SourceDir)
	assert.Equal(t, 5, appConfig.MaxDocuments)
}

func TestLoadSettingsMissingKey(t *testing.T) {
	t.Setenv("NVIDIA_API_KEY", "")
	chdir(t, t.TempDir())
	cfgPath = filepath.Join(t.TempDir(), "absent.yaml")
	t.Cleanup(func() { cfgPath, appConfig = "", nil })

	err := loadSettings(rootCmd, nil)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Nil(t, appConfig)
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default().Embedder

	e, _, err := newEmbedder(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &openaiemb.Embedder{}, e)

	cfg.Provider = "tfidf"
	e, _, err = newEmbedder(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &tfidf.Embedder{}, e)

	cfg.Provider = "bert"
	_, _, err = newEmbedder(ctx, cfg)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestRetryPolicy(t *testing.T) {
	assert.Equal(t, 2, retryPolicy(2).MaxRetries)
	assert.Equal(t, resilience.DefaultPolicy().BaseDelay, retryPolicy(2).BaseDelay)
	assert.Equal(t, -1, retryPolicy(-1).MaxRetries)
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default().Generator
	for _, provider := range []string{"openai", "anthropic"} {
		cfg.Provider = provider
		g, release, err := newGenerator(ctx, cfg)
		require.NoError(t, err, provider)
		assert.IsType(t, &resilience.Generator{}, g)
		release()
	}

	cfg.Provider = "local"
	_, _, err := newGenerator(ctx, cfg)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNewIndexFactory(t *testing.T) {
	f, err := newIndexFactory(config.VectorStoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Index{}, f("s1"))

	f, err = newIndexFactory(config.VectorStoreConfig{Type: "qdrant", Qdrant: &config.QdrantConfig{URL: "http://localhost:6333", CollectionPrefix: "pdfrag"}})
	require.NoError(t, err)
	assert.IsType(t, &qdrant.Index{}, f("s1"))

	_, err = newIndexFactory(config.VectorStoreConfig{Type: "qdrant"})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNewSummarizer(t *testing.T) {
	assert.IsType(t, &summarizer.FrequencySummarizer{}, newSummarizer(config.SummarizerConfig{Type: "frequency"}))
	assert.Nil(t, newSummarizer(config.SummarizerConfig{Type: "none"}))
}

func TestWirePipeline(t *testing.T) {
	cfg := config.Default()
	cfg.Embedder.Provider = "tfidf"
	p, release, err := wirePipeline(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	defer release()
	svc, ok := p.(*service.RAGService)
	require.True(t, ok)
	assert.Equal(t, cfg.SourceDir, svc.Settings().SourceDir)
	assert.Equal(t, 4, svc.Settings().TopK)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Setenv("PWD", dir)
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
