package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords("The quick brown fox jumps over the lazy dog near the river bank")
	// Top five distinct non-stop-words in order of first occurrence.
	assert.Equal(t, []string{"quick", "brown", "fox", "jumps", "over"}, kws)
}

func TestExtractKeywordsDropsStopWordsAndPunctuation(t *testing.T) {
	kws := ExtractKeywords("It is the server, and it was broken!")
	assert.Equal(t, []string{"server", "broken"}, kws)
}

func TestExtractKeywordsEmpty(t *testing.T) {
	assert.Empty(t, ExtractKeywords("the and of it"))
	assert.Empty(t, ExtractKeywords(""))
}

func TestExtractKeywordsDeduplicates(t *testing.T) {
	kws := ExtractKeywords("build build build pipeline pipeline")
	assert.Equal(t, []string{"build", "pipeline"}, kws)
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, float32(1), Jaccard("sky blue", "blue sky"))
	assert.Equal(t, float32(0), Jaccard("sky blue", "grass green"))

	// {sky, blue} vs {sky, green}: 1 shared of 3 distinct.
	assert.InDelta(t, 1.0/3.0, float64(Jaccard("the sky is blue", "the sky is green")), 1e-6)

	assert.Equal(t, float32(0), Jaccard("", ""))
	assert.Equal(t, float32(0), Jaccard("the and", "of it"))
}
