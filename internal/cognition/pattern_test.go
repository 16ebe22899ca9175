package cognition

import (
	"context"
	"strings"
	"testing"

	"github.com/noema-ai/noema/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternCategorizerBuckets(t *testing.T) {
	c := NewPatternCategorizer()
	ctx := context.Background()

	cases := []struct {
		text    string
		primary string
	}{
		{"How do I reset my password?", "question"},
		{"The deploy failed with a timeout error", "issue"},
		{"I want to learn more about graph theory", "education"},
		{"The api server config changed in the last release", "technical"},
		{"Nice weather today", "general"},
	}
	for _, tc := range cases {
		label, err := c.Categorize(ctx, tc.text, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.primary, label.Primary, "text: %s", tc.text)
		assert.GreaterOrEqual(t, label.Confidence, float32(0.6))
		assert.LessOrEqual(t, label.Confidence, float32(1))
	}
}

func TestPatternCategorizerHints(t *testing.T) {
	c := NewPatternCategorizer()
	label, err := c.Categorize(context.Background(), "Nothing special here today", []string{"weather"})
	require.NoError(t, err)
	assert.Contains(t, label.Tags, "weather")
}

func TestDetectPolarity(t *testing.T) {
	assert.Equal(t, domain.PolarityPositive, DetectPolarity("The sky is blue"))
	assert.Equal(t, domain.PolarityNegative, DetectPolarity("The sky is not blue"))
	assert.Equal(t, domain.PolarityNegative, DetectPolarity("It never rains here"))
	assert.Equal(t, domain.PolarityNegative, DetectPolarity("The server doesn't respond"))
	// "nothing" is not a marker; only whole-word matches count.
	assert.Equal(t, domain.PolarityPositive, DetectPolarity("Nothing ventured"))
}

func TestPatternExtractorProposals(t *testing.T) {
	e := NewPatternExtractor()
	category := domain.NewCategoryLabel("technical", "engineering", nil, 0.8)

	proposals, err := e.Extract(context.Background(), "The build runs nightly. It does not deploy on weekends. Ok.", category, "a1")
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	assert.Equal(t, "The build runs nightly", proposals[0].Statement)
	assert.Equal(t, domain.PolarityPositive, proposals[0].Polarity)
	assert.Equal(t, float32(0.8), proposals[0].Confidence)

	assert.Equal(t, "It does not deploy on weekends", proposals[1].Statement)
	assert.Equal(t, domain.PolarityNegative, proposals[1].Polarity)
}

func TestPatternExtractorSkipsQuestionsAndFragments(t *testing.T) {
	e := NewPatternExtractor()
	proposals, err := e.Extract(context.Background(), "Why is it blue? Hmm. Ok then.", domain.FallbackCategory(), "a1")
	require.NoError(t, err)
	assert.Empty(t, proposals)
}

func TestPatternExtractorCapsStatementLength(t *testing.T) {
	e := NewPatternExtractor()
	long := strings.Repeat("word ", 120) + "end"
	proposals, err := e.Extract(context.Background(), long, domain.FallbackCategory(), "a1")
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.LessOrEqual(t, len(proposals[0].Statement), maxStatementChars)
}

func TestPatternExtractorCapsProposalCount(t *testing.T) {
	e := NewPatternExtractor()
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("This is a statement. ")
	}
	proposals, err := e.Extract(context.Background(), sb.String(), domain.FallbackCategory(), "a1")
	require.NoError(t, err)
	assert.Len(t, proposals, maxProposals)
}
