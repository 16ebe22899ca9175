package cognition

import (
	"context"
	"strings"

	"github.com/noema-ai/noema/internal/domain"
)

// Keyword buckets for the pattern categorizer, checked in order.
// First bucket with a hit wins.
var categoryBuckets = []struct {
	primary    string
	secondary  string
	confidence float32
	keywords   []string
}{
	{"question", "inquiry", 0.9, []string{"?", "who ", "what ", "when ", "where ", "why ", "how ", "can i", "could you", "is it"}},
	{"issue", "problem", 0.85, []string{"error", "bug", "fail", "failure", "broken", "crash", "issue", "problem", "exception", "timeout"}},
	{"education", "learning", 0.8, []string{"learn", "tutorial", "course", "study", "teach", "lesson", "practice", "explain"}},
	{"technical", "engineering", 0.8, []string{"code", "server", "database", "api", "deploy", "config", "build", "compile", "function", "release"}},
}

const generalConfidence = 0.6

// PatternCategorizer is the categorization floor: case-insensitive keyword
// matching into a fixed bucket with a fixed confidence table. It never fails.
type PatternCategorizer struct{}

func NewPatternCategorizer() *PatternCategorizer { return &PatternCategorizer{} }

func (c *PatternCategorizer) Categorize(ctx context.Context, text string, hints []string) (domain.CategoryLabel, error) {
	lower := strings.ToLower(text)
	for _, bucket := range categoryBuckets {
		var matched []string
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, strings.TrimSpace(kw))
			}
		}
		if len(matched) > 0 {
			return domain.NewCategoryLabel(bucket.primary, bucket.secondary, append(matched, hints...), bucket.confidence), nil
		}
	}
	return domain.NewCategoryLabel("general", "information", hints, generalConfidence), nil
}

// Negation markers for polarity detection, matched on word boundaries after
// lowercasing.
var negationMarkers = []string{
	"not", "never", "no", "isn't", "aren't", "wasn't", "weren't", "doesn't",
	"don't", "didn't", "won't", "cannot", "can't", "shouldn't", "couldn't",
	"wouldn't", "without",
}

// DetectPolarity classifies a statement as positive or negative by the
// presence of negation markers. Used both by the pattern extractor and to
// recover the polarity of stored belief statements.
func DetectPolarity(statement string) domain.Polarity {
	for _, w := range strings.Fields(strings.ToLower(statement)) {
		w = strings.Trim(w, ".,;:!?\"'")
		for _, neg := range negationMarkers {
			if w == neg {
				return domain.PolarityNegative
			}
		}
	}
	return domain.PolarityPositive
}

const (
	maxStatementChars = 300
	maxProposals      = 5
)

// PatternExtractor is the extraction floor: it proposes one belief per
// declarative sentence, capped at maxProposals.
type PatternExtractor struct{}

func NewPatternExtractor() *PatternExtractor { return &PatternExtractor{} }

func (e *PatternExtractor) Extract(ctx context.Context, text string, category domain.CategoryLabel, agentID string) ([]domain.BeliefProposal, error) {
	proposals := make([]domain.BeliefProposal, 0, maxProposals)
	for _, sentence := range splitSentences(text) {
		if len(proposals) == maxProposals {
			break
		}
		stmt := strings.TrimSpace(sentence)
		if strings.HasSuffix(stmt, "?") {
			continue
		}
		stmt = strings.TrimSpace(strings.TrimRight(stmt, ".!"))
		if !declarative(stmt) {
			continue
		}
		if len(stmt) > maxStatementChars {
			stmt = strings.TrimSpace(stmt[:maxStatementChars])
		}
		confidence := category.Confidence
		if confidence == 0 {
			confidence = generalConfidence
		}
		proposals = append(proposals, domain.BeliefProposal{
			Statement:  stmt,
			Confidence: confidence,
			Category:   category,
			Polarity:   DetectPolarity(stmt),
		})
	}
	return proposals, nil
}

// splitSentences cuts on terminators, keeping each terminator attached so
// questions remain recognizable downstream.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			sentences = append(sentences, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// declarative filters out fragments. Three words is the floor for a
// subject-verb-object statement.
func declarative(s string) bool {
	return len(strings.Fields(s)) >= 3
}
