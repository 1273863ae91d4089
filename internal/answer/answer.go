// Package answer turns retrieved chunks and a question into a grounded
// prompt and asks a language model for the answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdfrag/internal/domain"
)

// ContextSeparator joins chunk texts inside the context block.
const ContextSeparator = "\n\n"

const promptTemplate = `Answer the questions based on provided context only.
Please provide the most accurate response based on the question
<context>
%s
<context>
Question:%s`

// BuildPrompt fills the template with chunk texts in retrieval order.
func BuildPrompt(question string, results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, ContextSeparator), question)
}

// Generator answers questions from retrieved context.
type Generator struct {
	llm domain.Generator
	now func() time.Time
}

func New(llm domain.Generator) *Generator {
	return &Generator{llm: llm, now: time.Now}
}

// Answer prompts the model and returns its output verbatim with the
// supporting context attached.
func (g *Generator) Answer(ctx context.Context, question string, results []domain.SearchResult) (*domain.Answer, error) {
	start := g.now()
	text, err := g.llm.Generate(ctx, BuildPrompt(question, results))
	if err != nil {
		if errors.Is(err, domain.ErrGenerationService) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationService, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty answer", domain.ErrGenerationService)
	}
	return &domain.Answer{
		Question: question,
		Text:     text,
		Context:  results,
		Elapsed:  g.now().Sub(start),
	}, nil
}
