package similarity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

// fakeSource is an in-memory similarity.Source with optional native search.
type fakeSource struct {
	candidates []Candidate
	native     bool
}

func (f *fakeSource) HasNativeVector() bool { return f.native }

func (f *fakeSource) SearchVector(ctx context.Context, agentID string, vec []float32, threshold float32, limit int, includeInactive bool) ([]Match, error) {
	if !f.native {
		return nil, apperr.New(apperr.Unsupported, "no native vector search")
	}
	var matches []Match
	for _, c := range f.candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		score := embedding.Cosine(vec, c.Embedding)
		if score < 0 {
			score = 0
		}
		if score >= threshold {
			matches = append(matches, Match{Candidate: c, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (f *fakeSource) Candidates(ctx context.Context, agentID string, includeInactive bool) ([]Candidate, error) {
	return f.candidates, nil
}

func (f *fakeSource) SearchKeywords(ctx context.Context, agentID string, keywords []string, includeInactive bool) ([]Candidate, error) {
	var out []Candidate
	for _, c := range f.candidates {
		text := strings.ToLower(c.Text)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// fixedEmbedder returns preset vectors per text.
type fixedEmbedder struct {
	vectors map[string][]float32
	dim     int
	err     error
}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, e.dim)
	v[0] = 1
	return v, nil
}

func (e *fixedEmbedder) Dimension() int      { return e.dim }
func (e *fixedEmbedder) Deterministic() bool { return false }

func tenCandidates(t *testing.T) []Candidate {
	t.Helper()
	det := embedding.NewDeterministicClient(32)
	candidates := make([]Candidate, 10)
	for i := range candidates {
		text := fmt.Sprintf("alpha fact number%d", i)
		vec, err := det.Embed(context.Background(), text)
		require.NoError(t, err)
		candidates[i] = Candidate{
			ID:         uuid.New(),
			Text:       text,
			Embedding:  vec,
			Confidence: float32(i) / 10,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}
	}
	return candidates
}

// With threshold 0 and k=10 every strategy must return the same ids.
func TestStrategyEquivalence(t *testing.T) {
	candidates := tenCandidates(t)
	det := embedding.NewDeterministicClient(32)

	queryText := "alpha fact check"
	queryVec, err := det.Embed(context.Background(), queryText)
	require.NoError(t, err)

	strategies := []Strategy{
		NewNative(&fakeSource{candidates: candidates, native: true}, det),
		NewExact(&fakeSource{candidates: candidates}, det),
		NewKeyword(&fakeSource{candidates: candidates}),
	}

	var idSets []map[uuid.UUID]bool
	for _, s := range strategies {
		q := Query{Text: queryText, AgentID: "a1", Threshold: 0, Limit: 10}
		if s.Name() != "keyword" {
			q.Vector = queryVec
		}
		matches, err := s.Search(context.Background(), q)
		require.NoError(t, err, "strategy %s", s.Name())
		require.Len(t, matches, 10, "strategy %s", s.Name())

		set := make(map[uuid.UUID]bool)
		for _, m := range matches {
			set[m.ID] = true
		}
		idSets = append(idSets, set)
	}

	assert.Equal(t, idSets[0], idSets[1])
	assert.Equal(t, idSets[1], idSets[2])
}

func TestSearchContract(t *testing.T) {
	candidates := tenCandidates(t)
	det := embedding.NewDeterministicClient(32)
	s := NewExact(&fakeSource{candidates: candidates}, det)

	matches, err := s.Search(context.Background(), Query{
		Text:      "alpha fact number3",
		AgentID:   "a1",
		Threshold: 0.1,
		Limit:     5,
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(matches), 5)
	for i, m := range matches {
		assert.GreaterOrEqual(t, m.Score, float32(0.1))
		assert.LessOrEqual(t, m.Score, float32(1))
		if i > 0 {
			assert.LessOrEqual(t, m.Score, matches[i-1].Score)
		}
	}
}

func TestNativeAndExactAgreeOnScores(t *testing.T) {
	candidates := tenCandidates(t)
	det := embedding.NewDeterministicClient(32)
	vec, err := det.Embed(context.Background(), "alpha fact number0")
	require.NoError(t, err)

	native, err := NewNative(&fakeSource{candidates: candidates, native: true}, det).
		Search(context.Background(), Query{Vector: vec, AgentID: "a1", Limit: 10})
	require.NoError(t, err)
	exact, err := NewExact(&fakeSource{candidates: candidates}, det).
		Search(context.Background(), Query{Vector: vec, AgentID: "a1", Limit: 10})
	require.NoError(t, err)

	require.Equal(t, len(native), len(exact))
	for i := range native {
		assert.InDelta(t, float64(native[i].Score), float64(exact[i].Score), 1e-3)
	}
}

func TestKeywordTieBreaks(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{ID: uuid.New(), Text: "server broken", Confidence: 0.2, CreatedAt: now.Add(time.Minute)},
		{ID: uuid.New(), Text: "server broken", Confidence: 0.9, CreatedAt: now},
		{ID: uuid.New(), Text: "server broken", Confidence: 0.2, CreatedAt: now},
	}
	s := NewKeyword(&fakeSource{candidates: candidates})

	matches, err := s.Search(context.Background(), Query{Text: "server broken", AgentID: "a1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Equal scores: confidence DESC, then createdAt ASC.
	assert.Equal(t, candidates[1].ID, matches[0].ID)
	assert.Equal(t, candidates[2].ID, matches[1].ID)
	assert.Equal(t, candidates[0].ID, matches[2].ID)
}

func TestKeywordPathNeverEmbeds(t *testing.T) {
	candidates := tenCandidates(t)
	s := NewKeyword(&fakeSource{candidates: candidates})

	// No embedder anywhere; a text query must still work.
	matches, err := s.Search(context.Background(), Query{Text: "alpha fact", AgentID: "a1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, matches, 10)
}

func TestAutoFallsBackToKeywordWhenEmbeddingFails(t *testing.T) {
	candidates := tenCandidates(t)
	src := &fakeSource{candidates: candidates}
	embedder := &fixedEmbedder{dim: 32, err: apperr.New(apperr.EmbeddingUnavailable, "model down")}

	auto := &Auto{
		native:   NewNative(src, embedder),
		exact:    NewExact(src, embedder),
		keyword:  NewKeyword(src),
		src:      src,
		embedder: embedder,
		mode:     "auto",
		logger:   testLogger(),
	}

	matches, err := auto.Search(context.Background(), Query{Text: "alpha fact", AgentID: "a1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, matches, 10)
}
