package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryStore persists memory records.
type MemoryStore interface {
	Create(ctx context.Context, m *MemoryRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MemoryRecord, error)
	// GetMany returns the records that exist; missing ids are omitted.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]MemoryRecord, error)
	FindByAgent(ctx context.Context, agentID string, opts FilterOptions, limit int) ([]MemoryRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	// IncrementAccess advances access_count and last_accessed. Counts may be
	// coalesced under load; they never decrease.
	IncrementAccess(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}

// BeliefStore persists beliefs. Update enforces optimistic concurrency on
// Belief.Version and reports a conflict kind on mismatch.
type BeliefStore interface {
	Create(ctx context.Context, b *Belief) error
	// CreateBatch persists all beliefs, preserving input order.
	CreateBatch(ctx context.Context, bs []*Belief) error
	GetByID(ctx context.Context, id uuid.UUID) (*Belief, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]Belief, error)
	FindByAgent(ctx context.Context, agentID string, opts FilterOptions, limit int) ([]Belief, error)
	Update(ctx context.Context, b *Belief) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RelationshipStore persists typed edges between beliefs.
type RelationshipStore interface {
	Create(ctx context.Context, r *BeliefRelationship) error
	CreateBatch(ctx context.Context, rs []*BeliefRelationship) error
	GetByID(ctx context.Context, id uuid.UUID) (*BeliefRelationship, error)
	GetBySource(ctx context.Context, beliefID uuid.UUID) ([]BeliefRelationship, error)
	GetByTarget(ctx context.Context, beliefID uuid.UUID) ([]BeliefRelationship, error)
	ListByAgent(ctx context.Context, agentID string, includeInactive bool) ([]BeliefRelationship, error)
	Deactivate(ctx context.Context, id uuid.UUID, reason string) error
	SetEffectiveUntil(ctx context.Context, id uuid.UUID, until time.Time) error
	// FindDeprecatedBeliefIDs returns ids of beliefs with an incoming active
	// deprecating edge. Pushed down to storage, never materialized from the
	// whole graph.
	FindDeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error)
	// FindSupersedingBeliefIDs returns sources of active deprecating edges
	// targeting the given belief.
	FindSupersedingBeliefIDs(ctx context.Context, agentID string, beliefID uuid.UUID) ([]uuid.UUID, error)
}

// ConflictStore persists belief conflicts.
type ConflictStore interface {
	Create(ctx context.Context, c *BeliefConflict) error
	CreateBatch(ctx context.Context, cs []*BeliefConflict) error
	GetByID(ctx context.Context, id uuid.UUID) (*BeliefConflict, error)
	ListByAgent(ctx context.Context, agentID string, unresolvedOnly bool) ([]BeliefConflict, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution ConflictResolution, details string, confidence float32) error
}

// EmbeddingClient turns text into a fixed-dimension unit-norm vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	// Deterministic is true only for the hash fallback generator.
	Deterministic() bool
}

// Categorizer labels text. Implementations must be usable as a floor even
// when the backing model is down; callers fall back on error.
type Categorizer interface {
	Categorize(ctx context.Context, text string, hints []string) (CategoryLabel, error)
}

// BeliefExtractor proposes candidate beliefs for memory content.
// An empty list is a valid result.
type BeliefExtractor interface {
	Extract(ctx context.Context, text string, category CategoryLabel, agentID string) ([]BeliefProposal, error)
}

// StatementSynthesizer is an optional extractor capability used by MERGE
// conflict resolution. Extractors without it fall back to KEEP_OLD.
type StatementSynthesizer interface {
	Synthesize(ctx context.Context, existing, incoming string) (string, error)
}
