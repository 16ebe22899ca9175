package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/cognition"
	"github.com/noema-ai/noema/internal/config"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ingestFixture struct {
	memories      *mockMemoryStore
	beliefs       *mockBeliefStore
	conflicts     *mockConflictStore
	relationships *mockRelationshipStore
	categorizer   *cognition.MockClient
	extractor     *cognition.MockClient
	embedder      *stubEmbedder
	ingestion     *IngestionService
}

func defaultIngestionConfig() config.Ingestion {
	return config.Ingestion{MaxContentChars: 10000, MaxAgentIDChars: 100, MaxInflight: 256}
}

func newIngestionFixture(cfg config.Ingestion, timeouts config.Timeouts, extractor domain.BeliefExtractor) *ingestFixture {
	memories := newMockMemoryStore()
	beliefs := newMockBeliefStore()
	relationships := newMockRelationshipStore()
	conflicts := newMockConflictStore()
	categorizer := cognition.NewMockClient()
	mockExtractor := cognition.NewMockClient()
	embedder := newStubEmbedder()
	logger := zap.NewNop()

	var ext domain.BeliefExtractor = mockExtractor
	if extractor != nil {
		ext = extractor
	}

	graph := NewGraphService(beliefs, relationships, logger)
	search := similarity.NewExact(beliefs, embedder)
	brca := NewBRCAService(beliefs, conflicts, ext, embedder, search, graph,
		defaultBRCAConfig(domain.ResolutionMarkUncertain), timeouts, logger)
	ingestion := NewIngestionService(memories, categorizer, embedder, brca, cfg, timeouts, logger)

	return &ingestFixture{
		memories:      memories,
		beliefs:       beliefs,
		conflicts:     conflicts,
		relationships: relationships,
		categorizer:   categorizer,
		extractor:     mockExtractor,
		embedder:      embedder,
		ingestion:     ingestion,
	}
}

func validInput() domain.MemoryInput {
	return domain.MemoryInput{AgentID: "a1", Content: "The sky is blue."}
}

func TestValidateInputBoundaries(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)

	atLimit := domain.MemoryInput{AgentID: "a1", Content: strings.Repeat("x", 10000)}
	assert.NoError(t, f.ingestion.ValidateInput(atLimit))

	overLimit := domain.MemoryInput{AgentID: "a1", Content: strings.Repeat("x", 10001)}
	err := f.ingestion.ValidateInput(overLimit)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	for _, agentID := range []string{"", "   ", strings.Repeat("a", 101)} {
		err := f.ingestion.ValidateInput(domain.MemoryInput{AgentID: agentID, Content: "hello world today"})
		require.Error(t, err, "agent_id %q", agentID)
		assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	}

	blank := domain.MemoryInput{AgentID: "a1", Content: "   "}
	err = f.ingestion.ValidateInput(blank)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestValidateInputIsIdempotent(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	input := validInput()
	for i := 0; i < 5; i++ {
		assert.NoError(t, f.ingestion.ValidateInput(input))
	}
	bad := domain.MemoryInput{AgentID: "", Content: "x"}
	for i := 0; i < 5; i++ {
		assert.Error(t, f.ingestion.ValidateInput(bad))
	}
}

func TestIngestSuccess(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		{Statement: "Sky is blue", Confidence: 0.9, Polarity: domain.PolarityPositive},
	}

	result, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.False(t, result.Partial)
	assert.False(t, result.DryRun)
	assert.NotEmpty(t, result.MemoryID)
	assert.Equal(t, "a1", result.AgentID)
	require.NotNil(t, result.BeliefUpdateResult)
	assert.Len(t, result.BeliefUpdateResult.New, 1)

	// The stored memory is retrievable by the returned id.
	records, err := f.memories.FindByAgent(context.Background(), "a1", domain.FilterOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.MemoryID, records[0].ID.String())
	assert.Equal(t, "The sky is blue.", records[0].Content)
}

func TestIngestCategorizationFailureIsPartial(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	f.categorizer.CategorizeError = errors.New("model down")

	result, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPartial, result.Status)
	assert.True(t, result.Partial)
	assert.Equal(t, domain.FallbackCategory(), result.Category)
	assert.Equal(t, 1, f.memories.creates, "memory must still be durable")
}

func TestIngestEmbeddingFailureIsPartial(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	f.embedder.err = apperr.New(apperr.EmbeddingUnavailable, "model down")

	result, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPartial, result.Status)
	assert.Equal(t, 1, f.memories.creates)
	records, _ := f.memories.FindByAgent(context.Background(), "a1", domain.FilterOptions{}, 10)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Embedding)
}

func TestIngestStorageFailureIsFatal(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	f.memories.createErr = errors.New("disk full")

	result, err := f.ingestion.Ingest(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, apperr.StorageError, apperr.KindOf(err))
	assert.Equal(t, domain.StatusError, result.Status)
	assert.Empty(t, result.MemoryID)
}

// slowExtractor blocks until the analysis deadline fires.
type slowExtractor struct{}

func (slowExtractor) Extract(ctx context.Context, text string, category domain.CategoryLabel, agentID string) ([]domain.BeliefProposal, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestIngestBeliefAnalysisTimeoutIsPartial(t *testing.T) {
	timeouts := testTimeouts()
	timeouts.BeliefAnalysis = 20 * time.Millisecond
	f := newIngestionFixture(defaultIngestionConfig(), timeouts, slowExtractor{})

	result, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPartial, result.Status)
	assert.Equal(t, "timeout", result.BeliefAnalysisError)
	assert.Nil(t, result.BeliefUpdateResult)
	assert.Equal(t, 1, f.memories.creates, "memory stands despite the analysis timeout")
}

func TestIngestContentionIsPartial(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	f.embedder.vectors["Sky is blue"] = vecBlue
	f.beliefs.seed(domain.Belief{
		AgentID:    "a1",
		Statement:  "Sky is blue",
		Confidence: 0.6,
		Active:     true,
		Embedding:  vecBlue,
	})
	f.beliefs.conflictsLeft = 10
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		{Statement: "Sky is blue", Confidence: 0.9, Polarity: domain.PolarityPositive},
	}

	result, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, result.Status)
	assert.Equal(t, "contention", result.BeliefAnalysisError)
}

func TestDryRunPerformsNoWrites(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		{Statement: "Sky is blue", Confidence: 0.9, Polarity: domain.PolarityPositive},
	}

	result, err := f.ingestion.DryRunIngest(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.True(t, strings.HasPrefix(result.MemoryID, "dry-run-"))
	require.NotNil(t, result.BeliefUpdateResult)
	assert.Len(t, result.BeliefUpdateResult.New, 1)

	assert.Equal(t, 0, f.memories.creates)
	assert.Equal(t, 0, f.beliefs.creates)
	assert.Equal(t, 0, f.conflicts.creates)
	assert.Empty(t, f.relationships.edges)
}

func TestIngestReingestReinforcesInsteadOfDuplicating(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	f.embedder.vectors["Sky is blue"] = vecBlue
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		{Statement: "Sky is blue", Confidence: 0.9, Polarity: domain.PolarityPositive},
	}

	first, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)
	require.Len(t, first.BeliefUpdateResult.New, 1)

	second, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)

	// A new memory id, but the existing belief is reinforced, not recreated.
	assert.NotEqual(t, first.MemoryID, second.MemoryID)
	assert.Empty(t, second.BeliefUpdateResult.New)
	require.Len(t, second.BeliefUpdateResult.Reinforced, 1)
	assert.Equal(t, first.BeliefUpdateResult.New[0].ID, second.BeliefUpdateResult.Reinforced[0].ID)
	assert.Equal(t, 1, f.beliefs.creates)
}

func TestIngestRejectsWhenOverloaded(t *testing.T) {
	cfg := defaultIngestionConfig()
	cfg.MaxInflight = 0
	f := newIngestionFixture(cfg, testTimeouts(), nil)

	_, err := f.ingestion.Ingest(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, apperr.Overloaded, apperr.KindOf(err))
}

func TestStatistics(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)

	_, err := f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)

	f.categorizer.CategorizeError = errors.New("model down")
	_, err = f.ingestion.Ingest(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.ingestion.Ingest(context.Background(), domain.MemoryInput{AgentID: "", Content: "x"})
	require.Error(t, err)

	stats := f.ingestion.Statistics()
	assert.Equal(t, int64(1), stats.Ingested)
	assert.Equal(t, int64(1), stats.Partial)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestIsHealthy(t *testing.T) {
	f := newIngestionFixture(defaultIngestionConfig(), testTimeouts(), nil)
	assert.True(t, f.ingestion.IsHealthy(context.Background()))

	f.memories.pingErr = errors.New("connection refused")
	assert.False(t, f.ingestion.IsHealthy(context.Background()))
}
