package similarity

import (
	"context"

	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/config"
	"github.com/noema-ai/noema/internal/domain"
	"go.uber.org/zap"
)

// Auto picks a strategy per query: native when the store supports it, exact
// cosine otherwise, keyword when no vector can be produced. A fixed
// strategy from config pins the choice instead.
type Auto struct {
	native   *Native
	exact    *Exact
	keyword  *Keyword
	src      Source
	embedder domain.EmbeddingClient
	mode     string
	logger   *zap.Logger
}

// New builds the strategy selected by cfg.Strategy over src.
// The embedder may be nil; in auto mode text queries then go through the
// keyword path, while the pinned native and vector strategies fail them.
func New(src Source, embedder domain.EmbeddingClient, cfg config.Similarity, logger *zap.Logger) Strategy {
	auto := &Auto{
		native:   NewNative(src, embedder),
		exact:    NewExact(src, embedder),
		keyword:  NewKeyword(src),
		src:      src,
		embedder: embedder,
		mode:     cfg.Strategy,
		logger:   logger,
	}
	var picked Strategy
	switch cfg.Strategy {
	case "native":
		picked = auto.native
	case "vector":
		picked = auto.exact
	case "text":
		picked = auto.keyword
	default:
		picked = auto
	}
	return withDefaults{inner: picked, cfg: cfg}
}

// withDefaults fills unset query knobs from configuration.
type withDefaults struct {
	inner Strategy
	cfg   config.Similarity
}

func (s withDefaults) Name() string { return s.inner.Name() }

func (s withDefaults) Search(ctx context.Context, q Query) ([]Match, error) {
	if q.Limit <= 0 {
		q.Limit = s.cfg.MaxResults
	}
	if q.Threshold <= 0 {
		q.Threshold = s.cfg.Threshold
	}
	return s.inner.Search(ctx, q)
}

func (s *Auto) Name() string { return "auto" }

func (s *Auto) Search(ctx context.Context, q Query) ([]Match, error) {
	vectorStrategy := Strategy(s.exact)
	if s.src.HasNativeVector() {
		vectorStrategy = s.native
	}

	if q.Vector != nil {
		return vectorStrategy.Search(ctx, q)
	}

	if s.embedder != nil {
		matches, err := vectorStrategy.Search(ctx, q)
		if err == nil {
			return matches, nil
		}
		if !apperr.IsKind(err, apperr.EmbeddingUnavailable) {
			return nil, err
		}
		s.logger.Warn("vector search unavailable, falling back to keywords", zap.Error(err))
	}

	return s.keyword.Search(ctx, q)
}
