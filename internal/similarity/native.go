package similarity

import (
	"context"

	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/domain"
)

// Native delegates scoring to the storage layer's cosine-distance operator.
type Native struct {
	src      Source
	embedder domain.EmbeddingClient
}

func NewNative(src Source, embedder domain.EmbeddingClient) *Native {
	return &Native{src: src, embedder: embedder}
}

func (s *Native) Name() string { return "native" }

func (s *Native) Search(ctx context.Context, q Query) ([]Match, error) {
	if !s.src.HasNativeVector() {
		return nil, apperr.New(apperr.Unsupported, "store has no native vector search")
	}

	vec := q.Vector
	if vec == nil {
		if s.embedder == nil {
			return nil, apperr.New(apperr.EmbeddingUnavailable, "native strategy needs a vector or an embedder")
		}
		var err error
		vec, err = s.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, apperr.Wrap(apperr.EmbeddingUnavailable, "embed query", err)
		}
	}

	matches, err := s.src.SearchVector(ctx, q.AgentID, vec, q.Threshold, q.Limit, q.IncludeInactive)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Score = clampScore(matches[i].Score)
	}
	return finalize(matches, q.Threshold, q.Limit), nil
}
