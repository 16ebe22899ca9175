package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/similarity"
	"go.uber.org/zap"
)

// BeliefService exposes beliefs and their conflicts to consumers. All
// mutation goes through the analyzer; this service only reads, searches,
// and drives the manual conflict-review workflow.
type BeliefService struct {
	beliefs   domain.BeliefStore
	conflicts domain.ConflictStore
	search    similarity.Strategy
	logger    *zap.Logger
}

func NewBeliefService(beliefs domain.BeliefStore, conflicts domain.ConflictStore, search similarity.Strategy, logger *zap.Logger) *BeliefService {
	return &BeliefService{beliefs: beliefs, conflicts: conflicts, search: search, logger: logger}
}

func (s *BeliefService) Get(ctx context.Context, id uuid.UUID) (*domain.Belief, error) {
	return s.beliefs.GetByID(ctx, id)
}

func (s *BeliefService) List(ctx context.Context, agentID string, opts domain.FilterOptions, limit int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.beliefs.FindByAgent(ctx, agentID, opts, limit)
}

// Search runs a similarity query over belief statements. Inactive beliefs
// only appear when the query asks for them.
func (s *BeliefService) Search(ctx context.Context, q similarity.Query) ([]domain.BeliefWithScore, error) {
	matches, err := s.search.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	beliefs, err := s.beliefs.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Belief, len(beliefs))
	for _, b := range beliefs {
		byID[b.ID] = b
	}

	results := make([]domain.BeliefWithScore, 0, len(matches))
	for _, m := range matches {
		b, ok := byID[m.ID]
		if !ok {
			continue
		}
		results = append(results, domain.BeliefWithScore{Belief: b, Score: m.Score})
	}
	return results, nil
}

func (s *BeliefService) ListConflicts(ctx context.Context, agentID string, unresolvedOnly bool) ([]domain.BeliefConflict, error) {
	return s.conflicts.ListByAgent(ctx, agentID, unresolvedOnly)
}

// ResolveConflict closes a pending conflict with a reviewer's decision.
func (s *BeliefService) ResolveConflict(ctx context.Context, id uuid.UUID, resolution domain.ConflictResolution, details string, confidence float32) error {
	return s.conflicts.Resolve(ctx, id, resolution, details, confidence)
}

// DismissConflict closes a pending conflict without acting on it.
func (s *BeliefService) DismissConflict(ctx context.Context, id uuid.UUID, details string) error {
	if details == "" {
		details = "dismissed by reviewer"
	}
	return s.conflicts.Resolve(ctx, id, domain.ResolutionRequireManualReview, details, 0)
}
