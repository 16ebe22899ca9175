package similarity

import "strings"

// stopWords is the fixed English stop-word list shared by keyword
// extraction and Jaccard scoring.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "her": true, "his": true,
	"i": true, "in": true, "is": true, "it": true, "its": true,
	"my": true, "of": true, "on": true, "or": true, "our": true,
	"she": true, "that": true, "the": true, "their": true, "they": true,
	"this": true, "to": true, "was": true, "we": true, "were": true,
	"which": true, "will": true, "with": true, "you": true, "your": true,
}

const maxKeywords = 5

// ExtractKeywords lowercases, splits on whitespace, strips punctuation,
// drops stop words, and keeps the first five distinct words in order of
// first occurrence.
func ExtractKeywords(text string) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if w == "" || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// wordSet returns the distinct non-stop-words of text.
func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if w == "" || stopWords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

// Jaccard scores two texts by word-set overlap, stop words excluded.
func Jaccard(a, b string) float32 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	intersection := 0
	for w := range sa {
		if sb[w] {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return 0
	}
	return float32(intersection) / float32(union)
}
