package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/config"
	"github.com/noema-ai/noema/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// IngestionService runs the end-to-end pipeline:
// validate → categorize → encode+store → belief analysis.
// Validation and the memory write are fatal; everything else degrades to a
// PARTIAL result with the memory durable.
type IngestionService struct {
	memories    domain.MemoryStore
	categorizer domain.Categorizer
	embedder    domain.EmbeddingClient
	brca        *BRCAService
	validate    *validator.Validate
	cfg         config.Ingestion
	timeouts    config.Timeouts
	inflight    *semaphore.Weighted
	logger      *zap.Logger

	ingested atomic.Int64
	partials atomic.Int64
	failures atomic.Int64
	rejected atomic.Int64
	totalMs  atomic.Int64
}

// NewIngestionService wires the pipeline. The embedder may be nil when
// embedding is disabled; records are then stored without vectors.
func NewIngestionService(
	memories domain.MemoryStore,
	categorizer domain.Categorizer,
	embedder domain.EmbeddingClient,
	brca *BRCAService,
	cfg config.Ingestion,
	timeouts config.Timeouts,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		memories:    memories,
		categorizer: categorizer,
		embedder:    embedder,
		brca:        brca,
		validate:    validator.New(),
		cfg:         cfg,
		timeouts:    timeouts,
		inflight:    semaphore.NewWeighted(int64(cfg.MaxInflight)),
		logger:      logger,
	}
}

// ValidateInput checks an ingestion request without side effects.
// Confidence and importance values outside [0,1] are clamped later, never
// rejected here.
func (s *IngestionService) ValidateInput(input domain.MemoryInput) error {
	agentID := strings.TrimSpace(input.AgentID)
	if err := s.validate.Var(agentID, fmt.Sprintf("required,max=%d", s.cfg.MaxAgentIDChars)); err != nil {
		return apperr.Newf(apperr.InvalidInput, "agent_id must be non-empty and at most %d characters", s.cfg.MaxAgentIDChars)
	}
	if err := s.validate.Var(input.Content, fmt.Sprintf("required,max=%d", s.cfg.MaxContentChars)); err != nil {
		return apperr.Newf(apperr.InvalidInput, "content must be non-empty and at most %d characters", s.cfg.MaxContentChars)
	}
	if strings.TrimSpace(input.Content) == "" {
		return apperr.New(apperr.InvalidInput, "content must not be blank")
	}
	return nil
}

// Ingest runs the full pipeline for one memory.
func (s *IngestionService) Ingest(ctx context.Context, input domain.MemoryInput) (*domain.IngestionResult, error) {
	return s.ingest(ctx, input, false)
}

// DryRunIngest validates, categorizes, and simulates belief analysis without
// persisting anything. The returned memory id is a placeholder.
func (s *IngestionService) DryRunIngest(ctx context.Context, input domain.MemoryInput) (*domain.IngestionResult, error) {
	return s.ingest(ctx, input, true)
}

func (s *IngestionService) ingest(ctx context.Context, input domain.MemoryInput, dryRun bool) (*domain.IngestionResult, error) {
	if !s.inflight.TryAcquire(1) {
		s.rejected.Add(1)
		return nil, apperr.New(apperr.Overloaded, "ingestion queue is full")
	}
	defer s.inflight.Release(1)

	start := time.Now()
	result := &domain.IngestionResult{
		AgentID: strings.TrimSpace(input.AgentID),
		DryRun:  dryRun,
		Status:  domain.StatusSuccess,
	}

	// 1. Validate: fatal.
	if err := s.ValidateInput(input); err != nil {
		s.failures.Add(1)
		result.Status = domain.StatusError
		return result, err
	}

	// 2. Categorize: non-fatal, fallback label on failure.
	category := s.categorize(ctx, input, result)
	result.Category = category

	record := &domain.MemoryRecord{
		AgentID:  result.AgentID,
		Content:  input.Content,
		Category: category,
		Metadata: domain.MemoryMetadata{
			Importance: domain.ClampConfidence(input.Metadata.Importance),
			Tags:       input.Metadata.Tags,
			Source:     firstNonEmpty(input.Metadata.Source, input.Source),
			Confidence: domain.ClampConfidence(input.Metadata.Confidence),
			Custom:     input.Metadata.Custom,
		},
	}

	// 3. Embed (non-fatal) and store (fatal). Dry runs stop short of both.
	if dryRun {
		record.ID = uuid.New()
		record.CreatedAt = time.Now()
		result.MemoryID = "dry-run-" + record.ID.String()
	} else {
		s.embed(ctx, record, result)

		storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
		err := s.memories.Create(storeCtx, record)
		cancel()
		if err != nil {
			s.failures.Add(1)
			result.Status = domain.StatusError
			return result, apperr.Wrap(apperr.StorageError, "store memory", err)
		}
		result.MemoryID = record.ID.String()
	}

	// 4. Belief analysis: non-fatal, the memory already stands.
	s.analyzeBeliefs(ctx, record, result, dryRun)

	if result.Partial {
		result.Status = domain.StatusPartial
		s.partials.Add(1)
	} else {
		s.ingested.Add(1)
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	s.totalMs.Add(result.ProcessingTimeMs)
	return result, nil
}

func (s *IngestionService) categorize(ctx context.Context, input domain.MemoryInput, result *domain.IngestionResult) domain.CategoryLabel {
	catCtx, cancel := context.WithTimeout(ctx, s.timeouts.Categorize)
	defer cancel()

	category, err := s.categorizer.Categorize(catCtx, input.Content, input.Metadata.Tags)
	if err != nil {
		s.logger.Warn("categorization failed, using fallback label",
			zap.String("agent_id", result.AgentID), zap.Error(err))
		result.Partial = true
		return domain.FallbackCategory()
	}
	return category
}

func (s *IngestionService) embed(ctx context.Context, record *domain.MemoryRecord, result *domain.IngestionResult) {
	if s.embedder == nil {
		return
	}
	embedCtx, cancel := context.WithTimeout(ctx, s.timeouts.Embed)
	defer cancel()

	vec, err := s.embedder.Embed(embedCtx, record.Content)
	if err != nil {
		// Memory is stored without a vector; text search still finds it.
		s.logger.Warn("embedding failed, storing without vector",
			zap.String("agent_id", record.AgentID), zap.Error(err))
		result.Partial = true
		return
	}
	record.Embedding = vec
}

func (s *IngestionService) analyzeBeliefs(ctx context.Context, record *domain.MemoryRecord, result *domain.IngestionResult, dryRun bool) {
	var (
		analysis *domain.BeliefUpdateResult
		err      error
	)
	if dryRun {
		analysis, err = s.brca.Simulate(ctx, record)
	} else {
		analysis, err = s.brca.Analyze(ctx, record)
	}
	if err != nil {
		s.logger.Warn("belief analysis failed",
			zap.String("agent_id", record.AgentID),
			zap.String("memory_id", result.MemoryID),
			zap.Error(err))
		result.Partial = true
		result.BeliefAnalysisError = beliefAnalysisErrorTag(err)
		return
	}
	result.BeliefUpdateResult = analysis
}

// beliefAnalysisErrorTag maps failure kinds onto the stable wire tags; other
// kinds report the error text.
func beliefAnalysisErrorTag(err error) string {
	switch apperr.KindOf(err) {
	case apperr.Timeout:
		return "timeout"
	case apperr.Canceled:
		return "canceled"
	case apperr.Conflict:
		return "contention"
	case apperr.StorageError:
		return "storage"
	case apperr.ExtractionUnavailable:
		return "extraction_unavailable"
	default:
		return err.Error()
	}
}

// IngestionStats is a snapshot of the pipeline counters.
type IngestionStats struct {
	Ingested         int64   `json:"ingested"`
	Partial          int64   `json:"partial"`
	Failed           int64   `json:"failed"`
	RejectedOverload int64   `json:"rejected_overload"`
	MeanProcessingMs float64 `json:"mean_processing_ms"`
}

// Statistics returns pipeline counters. Counts are monotonic per process.
func (s *IngestionService) Statistics() IngestionStats {
	ingested := s.ingested.Load()
	partial := s.partials.Load()
	stats := IngestionStats{
		Ingested:         ingested,
		Partial:          partial,
		Failed:           s.failures.Load(),
		RejectedOverload: s.rejected.Load(),
	}
	if completed := ingested + partial; completed > 0 {
		stats.MeanProcessingMs = float64(s.totalMs.Load()) / float64(completed)
	}
	return stats
}

// IsHealthy reports whether the memory store is reachable.
func (s *IngestionService) IsHealthy(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	return s.memories.Ping(pingCtx) == nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
