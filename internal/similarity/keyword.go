package similarity

import "context"

// Keyword is the text-only fallback: keyword predicate pushed to the store,
// Jaccard rescoring in memory. It never touches the embedder.
type Keyword struct {
	src Source
}

func NewKeyword(src Source) *Keyword {
	return &Keyword{src: src}
}

func (s *Keyword) Name() string { return "keyword" }

func (s *Keyword) Search(ctx context.Context, q Query) ([]Match, error) {
	keywords := ExtractKeywords(q.Text)
	if len(keywords) == 0 {
		return nil, nil
	}

	candidates, err := s.src.SearchKeywords(ctx, q.AgentID, keywords, q.IncludeInactive)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, Match{
			Candidate: c,
			Score:     Jaccard(q.Text, c.Text),
		})
	}
	return finalize(matches, q.Threshold, q.Limit), nil
}
