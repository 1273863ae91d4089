package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

type mockLLM struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	prompts      []string
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.GenerateFunc(ctx, prompt)
}

func results(texts ...string) []domain.SearchResult {
	out := make([]domain.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = domain.SearchResult{Chunk: domain.Chunk{Text: t}}
	}
	return out
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("What was the population in 2020?", results("C1 text", "C2 text"))
	want := "Answer the questions based on provided context only.\n" +
		"Please provide the most accurate response based on the question\n" +
		"<context>\n" +
		"C1 text\n\nC2 text\n" +
		"<context>\n" +
		"Question:What was the population in 2020?"
	assert.Equal(t, want, got)
}

func TestBuildPromptKeepsRetrievalOrder(t *testing.T) {
	got := BuildPrompt("q", results("closest", "second", "third"))
	assert.Less(t, strings.Index(got, "closest"), strings.Index(got, "second"))
	assert.Less(t, strings.Index(got, "second"), strings.Index(got, "third"))
}

func TestAnswerVerbatim(t *testing.T) {
	llm := &mockLLM{GenerateFunc: func(context.Context, string) (string, error) {
		return "  331 million people.\n", nil
	}}
	g := New(llm)
	tick := time.Unix(0, 0)
	g.now = func() time.Time {
		tick = tick.Add(250 * time.Millisecond)
		return tick
	}

	rs := results("Population in 2020 was 331 million.")
	a, err := g.Answer(context.Background(), "How many people?", rs)
	require.NoError(t, err)
	assert.Equal(t, "  331 million people.\n", a.Text)
	assert.Equal(t, "How many people?", a.Question)
	assert.Equal(t, rs, a.Context)
	assert.Equal(t, 250*time.Millisecond, a.Elapsed)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Population in 2020 was 331 million.")
}

func TestAnswerWrapsFailures(t *testing.T) {
	llm := &mockLLM{GenerateFunc: func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}}
	_, err := New(llm).Answer(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
}

func TestAnswerEmptyOutput(t *testing.T) {
	llm := &mockLLM{GenerateFunc: func(context.Context, string) (string, error) {
		return "", nil
	}}
	_, err := New(llm).Answer(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
}
