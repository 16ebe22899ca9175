package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/similarity"
	"go.uber.org/zap"
)

// MemoryService exposes stored memories to consumers: lookup, filtered
// listing, similarity search, and deletion.
type MemoryService struct {
	memories domain.MemoryStore
	search   similarity.Strategy
	logger   *zap.Logger
}

func NewMemoryService(memories domain.MemoryStore, search similarity.Strategy, logger *zap.Logger) *MemoryService {
	return &MemoryService{memories: memories, search: search, logger: logger}
}

// Get returns a memory and bumps its access stats. The bump is best-effort;
// a failed increment never fails the read.
func (s *MemoryService) Get(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.memories.IncrementAccess(ctx, id); err != nil {
		s.logger.Warn("access increment failed", zap.String("memory_id", id.String()), zap.Error(err))
	}
	return m, nil
}

func (s *MemoryService) List(ctx context.Context, agentID string, opts domain.FilterOptions, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.memories.FindByAgent(ctx, agentID, opts, limit)
}

// Search runs a similarity query and hydrates full records, preserving the
// strategy's ranking.
func (s *MemoryService) Search(ctx context.Context, q similarity.Query) ([]domain.MemoryWithScore, error) {
	matches, err := s.search.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	records, err := s.memories.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.MemoryRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	results := make([]domain.MemoryWithScore, 0, len(matches))
	for _, m := range matches {
		record, ok := byID[m.ID]
		if !ok {
			continue
		}
		results = append(results, domain.MemoryWithScore{MemoryRecord: record, Score: m.Score})
	}
	return results, nil
}

func (s *MemoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.memories.Delete(ctx, id)
}

func (s *MemoryService) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return s.memories.DeleteMany(ctx, ids)
}
