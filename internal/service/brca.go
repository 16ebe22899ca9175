package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/cognition"
	"github.com/noema-ai/noema/internal/config"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/similarity"
	"go.uber.org/zap"
)

const (
	// beliefUpdateRetries bounds optimistic-concurrency retries before the
	// analysis step fails with a contention error.
	beliefUpdateRetries = 3
	// uncertaintyDiscount is applied to both sides under MARK_UNCERTAIN.
	uncertaintyDiscount = 0.8
)

// BRCAService extracts candidate beliefs from a memory, matches them against
// existing beliefs by semantic similarity, and applies reinforcement,
// weakening, conflict resolution, or new-belief creation.
type BRCAService struct {
	beliefs   domain.BeliefStore
	conflicts domain.ConflictStore
	extractor domain.BeliefExtractor
	embedder  domain.EmbeddingClient
	search    similarity.Strategy
	graph     *GraphService
	cfg       config.BRCA
	timeouts  config.Timeouts
	logger    *zap.Logger
}

func NewBRCAService(
	beliefs domain.BeliefStore,
	conflicts domain.ConflictStore,
	extractor domain.BeliefExtractor,
	embedder domain.EmbeddingClient,
	search similarity.Strategy,
	graph *GraphService,
	cfg config.BRCA,
	timeouts config.Timeouts,
	logger *zap.Logger,
) *BRCAService {
	return &BRCAService{
		beliefs:   beliefs,
		conflicts: conflicts,
		extractor: extractor,
		embedder:  embedder,
		search:    search,
		graph:     graph,
		cfg:       cfg,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// Analyze runs belief analysis for one stored memory and persists its
// effects. Updates to any single belief serialize through the store's
// optimistic version check.
func (s *BRCAService) Analyze(ctx context.Context, m *domain.MemoryRecord) (*domain.BeliefUpdateResult, error) {
	return s.analyze(ctx, m, false)
}

// Simulate runs the same analysis without performing any write.
func (s *BRCAService) Simulate(ctx context.Context, m *domain.MemoryRecord) (*domain.BeliefUpdateResult, error) {
	return s.analyze(ctx, m, true)
}

func (s *BRCAService) analyze(ctx context.Context, m *domain.MemoryRecord, dryRun bool) (*domain.BeliefUpdateResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.BeliefAnalysis)
	defer cancel()

	extractCtx, extractCancel := context.WithTimeout(ctx, s.timeouts.Extract)
	proposals, err := s.extractor.Extract(extractCtx, m.Content, m.Category, m.AgentID)
	extractCancel()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), "extract beliefs", err)
	}

	result := &domain.BeliefUpdateResult{
		Reinforced:        []domain.Belief{},
		Weakened:          []domain.Belief{},
		New:               []domain.Belief{},
		Conflicts:         []domain.BeliefConflict{},
		AnalysisTimestamp: time.Now(),
	}

	for _, p := range proposals {
		p.Confidence = domain.ClampConfidence(p.Confidence)
		if err := s.processProposal(ctx, m, p, result, dryRun); err != nil {
			return nil, err
		}
	}

	result.OverallConfidence = overallConfidence(result)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func (s *BRCAService) processProposal(ctx context.Context, m *domain.MemoryRecord, p domain.BeliefProposal, result *domain.BeliefUpdateResult, dryRun bool) error {
	// One search at the lower threshold feeds both partitions.
	searchThreshold := s.cfg.SimilarityThreshold
	if s.cfg.ConflictThreshold < searchThreshold {
		searchThreshold = s.cfg.ConflictThreshold
	}
	matches, err := s.search.Search(ctx, similarity.Query{
		Text:      p.Statement,
		AgentID:   m.AgentID,
		Threshold: searchThreshold,
		Limit:     s.cfg.MatchLimit,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindOf(err), "match beliefs", err)
	}

	polarity := p.EffectivePolarity()
	var agreement, opposition []similarity.Match
	for _, match := range matches {
		if cognition.DetectPolarity(match.Text) == polarity {
			if match.Score >= s.cfg.SimilarityThreshold {
				agreement = append(agreement, match)
			}
		} else if match.Score >= s.cfg.ConflictThreshold {
			opposition = append(opposition, match)
		}
	}

	if len(agreement) > 0 {
		reinforced, err := s.reinforce(ctx, agreement[0].ID, m.ID, p, dryRun)
		if err != nil {
			return err
		}
		result.Reinforced = append(result.Reinforced, *reinforced)
	} else if len(opposition) == 0 {
		created, err := s.createBelief(ctx, m, p.Statement, p.Confidence, dryRun)
		if err != nil {
			return err
		}
		result.New = append(result.New, *created)
	}

	if len(opposition) > 0 {
		if err := s.resolveOpposition(ctx, m, p, opposition, result, dryRun); err != nil {
			return err
		}
	}
	return nil
}

func (s *BRCAService) reinforce(ctx context.Context, beliefID, memoryID uuid.UUID, p domain.BeliefProposal, dryRun bool) (*domain.Belief, error) {
	mutate := func(b *domain.Belief) {
		b.Confidence = domain.ClampConfidence(b.Confidence + s.cfg.ReinforcementAlpha*p.Confidence)
		b.ReinforcementCount++
		b.AddEvidence(memoryID)
	}
	if dryRun {
		return s.projectUpdate(ctx, beliefID, mutate)
	}
	return s.updateBelief(ctx, beliefID, mutate)
}

// resolveOpposition opens a conflict per opposing belief and applies the
// configured resolution. A new belief is created at most once per proposal.
func (s *BRCAService) resolveOpposition(ctx context.Context, m *domain.MemoryRecord, p domain.BeliefProposal, opposition []similarity.Match, result *domain.BeliefUpdateResult, dryRun bool) error {
	now := time.Now()
	var created *domain.Belief

	newBeliefOnce := func(statement string, confidence float32) (*domain.Belief, error) {
		if created != nil {
			return created, nil
		}
		b, err := s.createBelief(ctx, m, statement, confidence, dryRun)
		if err != nil {
			return nil, err
		}
		created = b
		result.New = append(result.New, *b)
		return b, nil
	}

	for _, x := range opposition {
		existing, err := s.beliefs.GetByID(ctx, x.ID)
		if err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				continue
			}
			return err
		}

		description := fmt.Sprintf("new evidence %q opposes belief %q", p.Statement, existing.Statement)
		conflict := &domain.BeliefConflict{
			BeliefID:    existing.ID,
			MemoryID:    &m.ID,
			AgentID:     m.AgentID,
			Description: description,
			DetectedAt:  now,
			Severity:    domain.SeverityForDelta(existing.Confidence - p.Confidence),
		}

		switch s.cfg.DefaultResolution {
		case domain.ResolutionTakeNew:
			weakened, err := s.weaken(ctx, existing.ID, s.cfg.WeakeningBeta*p.Confidence, dryRun)
			if err != nil {
				return err
			}
			result.Weakened = append(result.Weakened, *weakened)
			b, err := newBeliefOnce(p.Statement, p.Confidence)
			if err != nil {
				return err
			}
			if err := s.link(ctx, b, existing, domain.RelSupersedes, p.Confidence, &now, nil, description, dryRun); err != nil {
				return err
			}
			conflict.MarkResolved(domain.ResolutionTakeNew, "superseded by new evidence", p.Confidence, now)

		case domain.ResolutionKeepOld:
			conflict.MarkResolved(domain.ResolutionKeepOld, "kept existing belief; new evidence discounted", existing.Confidence, now)

		case domain.ResolutionMarkUncertain:
			weakened, err := s.discount(ctx, existing.ID, uncertaintyDiscount, dryRun)
			if err != nil {
				return err
			}
			result.Weakened = append(result.Weakened, *weakened)
			if _, err := newBeliefOnce(p.Statement, p.Confidence*uncertaintyDiscount); err != nil {
				return err
			}
			conflict.MarkResolved(domain.ResolutionMarkUncertain, "both beliefs held with reduced confidence", p.Confidence*uncertaintyDiscount, now)

		case domain.ResolutionMerge:
			merged, ok := s.synthesize(ctx, existing.Statement, p.Statement)
			if !ok {
				// No synthesis capability: fall back to keeping the old belief.
				conflict.MarkResolved(domain.ResolutionKeepOld, "merge unavailable; kept existing belief", existing.Confidence, now)
				break
			}
			b, err := newBeliefOnce(merged, p.Confidence)
			if err != nil {
				return err
			}
			if err := s.link(ctx, b, existing, domain.RelReplaces, p.Confidence, &now, nil, description, dryRun); err != nil {
				return err
			}
			conflict.MarkResolved(domain.ResolutionMerge, "merged into synthesized statement", p.Confidence, now)

		case domain.ResolutionArchiveOld:
			archived, err := s.deactivate(ctx, existing.ID, dryRun)
			if err != nil {
				return err
			}
			result.Weakened = append(result.Weakened, *archived)
			b, err := newBeliefOnce(p.Statement, p.Confidence)
			if err != nil {
				return err
			}
			if err := s.link(ctx, b, existing, domain.RelSupersedes, p.Confidence, &now, nil, description, dryRun); err != nil {
				return err
			}
			if err := s.closeOutgoingEdges(ctx, existing.ID, now, dryRun); err != nil {
				return err
			}
			conflict.MarkResolved(domain.ResolutionArchiveOld, "archived superseded belief", p.Confidence, now)

		case domain.ResolutionRequireManualReview:
			// Detection only; nothing mutates until a reviewer decides.

		default:
			return apperr.Newf(apperr.InvalidInput, "unknown conflict resolution %q", s.cfg.DefaultResolution)
		}

		if !dryRun {
			if err := s.conflicts.Create(ctx, conflict); err != nil {
				return err
			}
		}
		result.Conflicts = append(result.Conflicts, *conflict)
	}
	return nil
}

func (s *BRCAService) weaken(ctx context.Context, beliefID uuid.UUID, amount float32, dryRun bool) (*domain.Belief, error) {
	mutate := func(b *domain.Belief) {
		b.Confidence = domain.ClampConfidence(b.Confidence - amount)
		if b.Confidence < s.cfg.DeactivationThreshold {
			b.Active = false
		}
	}
	if dryRun {
		return s.projectUpdate(ctx, beliefID, mutate)
	}
	return s.updateBelief(ctx, beliefID, mutate)
}

func (s *BRCAService) discount(ctx context.Context, beliefID uuid.UUID, factor float32, dryRun bool) (*domain.Belief, error) {
	mutate := func(b *domain.Belief) {
		b.Confidence = domain.ClampConfidence(b.Confidence * factor)
		if b.Confidence < s.cfg.DeactivationThreshold {
			b.Active = false
		}
	}
	if dryRun {
		return s.projectUpdate(ctx, beliefID, mutate)
	}
	return s.updateBelief(ctx, beliefID, mutate)
}

func (s *BRCAService) deactivate(ctx context.Context, beliefID uuid.UUID, dryRun bool) (*domain.Belief, error) {
	mutate := func(b *domain.Belief) { b.Active = false }
	if dryRun {
		return s.projectUpdate(ctx, beliefID, mutate)
	}
	return s.updateBelief(ctx, beliefID, mutate)
}

func (s *BRCAService) createBelief(ctx context.Context, m *domain.MemoryRecord, statement string, confidence float32, dryRun bool) (*domain.Belief, error) {
	b := &domain.Belief{
		AgentID:            m.AgentID,
		Statement:          statement,
		Confidence:         domain.ClampConfidence(confidence),
		EvidenceMemoryIDs:  []uuid.UUID{m.ID},
		Category:           m.Category,
		ReinforcementCount: 1,
		Active:             true,
		Tags:               m.Category.Tags,
	}
	if s.embedder != nil {
		embedCtx, cancel := context.WithTimeout(ctx, s.timeouts.Embed)
		vec, err := s.embedder.Embed(embedCtx, statement)
		cancel()
		if err != nil {
			s.logger.Warn("belief embedding failed, storing without vector", zap.Error(err))
		} else {
			b.Embedding = vec
		}
	}
	if dryRun {
		b.ID = uuid.New()
		b.CreatedAt = time.Now()
		b.LastUpdated = b.CreatedAt
		b.Version = 1
		return b, nil
	}
	if err := s.beliefs.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// link emits a typed edge through the graph service.
func (s *BRCAService) link(ctx context.Context, source, target *domain.Belief, relType domain.RelationshipType, strength float32, from, until *time.Time, reason string, dryRun bool) error {
	if dryRun {
		return nil
	}
	err := s.graph.Link(ctx, &domain.BeliefRelationship{
		SourceBeliefID:    source.ID,
		TargetBeliefID:    target.ID,
		AgentID:           source.AgentID,
		Type:              relType,
		Strength:          strength,
		EffectiveFrom:     from,
		EffectiveUntil:    until,
		DeprecationReason: reason,
	})
	if err != nil {
		// An edge the graph refuses (e.g. a would-be cycle) degrades to no
		// edge rather than failing the whole analysis.
		s.logger.Warn("relationship rejected",
			zap.String("type", string(relType)), zap.Error(err))
	}
	return nil
}

// closeOutgoingEdges stamps effective_until on the belief's outgoing active
// edges so they stop being current as of the archival.
func (s *BRCAService) closeOutgoingEdges(ctx context.Context, beliefID uuid.UUID, until time.Time, dryRun bool) error {
	if dryRun {
		return nil
	}
	edges, err := s.graph.relationships.GetBySource(ctx, beliefID)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if !e.Active || e.EffectiveUntil != nil {
			continue
		}
		if err := s.graph.relationships.SetEffectiveUntil(ctx, e.ID, until); err != nil {
			return err
		}
	}
	return nil
}

// synthesize asks the extractor for a merged statement if it can produce one.
func (s *BRCAService) synthesize(ctx context.Context, existing, incoming string) (string, bool) {
	synth, ok := s.extractor.(domain.StatementSynthesizer)
	if !ok {
		return "", false
	}
	merged, err := synth.Synthesize(ctx, existing, incoming)
	if err != nil || merged == "" {
		return "", false
	}
	return merged, true
}

// updateBelief performs a read-modify-write guarded by the store's version
// check, retrying contended updates with jittered exponential backoff.
func (s *BRCAService) updateBelief(ctx context.Context, id uuid.UUID, mutate func(*domain.Belief)) (*domain.Belief, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.RandomizationFactor = 0.5
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, beliefUpdateRetries), ctx)

	var updated *domain.Belief
	op := func() error {
		b, err := s.beliefs.GetByID(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		mutate(b)
		if err := s.beliefs.Update(ctx, b); err != nil {
			if apperr.IsKind(err, apperr.Conflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		updated = b
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, apperr.Wrap(apperr.KindOf(err), "update belief", err)
	}
	return updated, nil
}

// projectUpdate applies a mutation to an in-memory copy only.
func (s *BRCAService) projectUpdate(ctx context.Context, id uuid.UUID, mutate func(*domain.Belief)) (*domain.Belief, error) {
	b, err := s.beliefs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(b)
	b.LastUpdated = time.Now()
	return b, nil
}

// overallConfidence is the mean post-update confidence of every belief the
// analysis touched, or 1.0 when nothing changed.
func overallConfidence(r *domain.BeliefUpdateResult) float32 {
	var sum float32
	n := 0
	for _, b := range r.Reinforced {
		sum += b.Confidence
		n++
	}
	for _, b := range r.Weakened {
		sum += b.Confidence
		n++
	}
	for _, b := range r.New {
		sum += b.Confidence
		n++
	}
	if n == 0 {
		return 1.0
	}
	return sum / float32(n)
}
