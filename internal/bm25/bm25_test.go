package bm25

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize_DropsShortTokens(t *testing.T) {
	got := Tokenize("a to the Go programming language is fun")
	require.Equal(t, []string{"the", "programming", "language", "fun"}, got)
}

func TestScore_HigherTermFrequencyScoresHigher(t *testing.T) {
	corpus := NewCorpus([]string{
		"golang concurrency patterns golang golang goroutines channels",
		"a recipe for baking bread with yeast and flour",
	})
	high := corpus.Score("golang concurrency", 0)
	low := corpus.Score("golang concurrency", 1)
	require.Greater(t, high, low)
}

func TestScore_IsClampedToUnitInterval(t *testing.T) {
	corpus := NewCorpus([]string{"golang golang golang golang golang golang golang golang golang golang"})
	score := corpus.Score("golang", 0)
	require.GreaterOrEqual(t, score, 0.0)
	require.LessOrEqual(t, score, 1.0)
}

func TestScore_NoOverlapIsZero(t *testing.T) {
	corpus := NewCorpus([]string{"completely unrelated content about gardening"})
	require.Equal(t, 0.0, corpus.Score("golang concurrency", 0))
}

func TestScore_OutOfRangeIndexIsZero(t *testing.T) {
	corpus := NewCorpus([]string{"some text"})
	require.Equal(t, 0.0, corpus.Score("text", 5))
}
