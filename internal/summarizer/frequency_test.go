package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizePicksFrequentSentences(t *testing.T) {
	text := "Household income rose in most states. " +
		"The weather was pleasant. " +
		"Median household income reached a record. " +
		"Income inequality in households also changed."

	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.NotContains(t, out, "weather")
	assert.Contains(t, out, "income")
}

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	text := "Census data covers income. Cats sleep. Income data from the census covers states."
	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	first := strings.Index(out, "Census data covers income.")
	second := strings.Index(out, "Income data from the census covers states.")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}

func TestSummarizeWithoutSentences(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("  table   header\n only ", 3)
	require.NoError(t, err)
	assert.Equal(t, "table header only", out)
}

func TestSummarizeDefaultLimit(t *testing.T) {
	text := "One census. Two census. Three census. Four census. Five census."
	out, err := NewFrequencySummarizer().Summarize(text, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSentences, strings.Count(out, "."))
}

func TestSummarizeCollapsesWhitespace(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("Population\n\ngrew   fast.", 1)
	require.NoError(t, err)
	assert.Equal(t, "Population grew fast.", out)
}
