package similarity

import (
	"context"

	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/embedding"
)

// Exact loads candidate embeddings and scores them with in-memory cosine.
// Same observable semantics as the native strategy, no vector index needed.
type Exact struct {
	src      Source
	embedder domain.EmbeddingClient
}

func NewExact(src Source, embedder domain.EmbeddingClient) *Exact {
	return &Exact{src: src, embedder: embedder}
}

func (s *Exact) Name() string { return "exact" }

func (s *Exact) Search(ctx context.Context, q Query) ([]Match, error) {
	vec := q.Vector
	if vec == nil {
		if s.embedder == nil {
			return nil, apperr.New(apperr.EmbeddingUnavailable, "exact strategy needs a vector or an embedder")
		}
		var err error
		vec, err = s.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, apperr.Wrap(apperr.EmbeddingUnavailable, "embed query", err)
		}
	}

	candidates, err := s.src.Candidates(ctx, q.AgentID, q.IncludeInactive)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		matches = append(matches, Match{
			Candidate: c,
			Score:     clampScore(embedding.Cosine(vec, c.Embedding)),
		})
	}
	return finalize(matches, q.Threshold, q.Limit), nil
}
