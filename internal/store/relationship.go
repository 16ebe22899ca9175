package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noema-ai/noema/internal/domain"
)

const relationshipColumns = `id, source_belief_id, target_belief_id, agent_id, type, strength, metadata,
		created_at, last_updated, active, effective_from, effective_until, deprecation_reason, priority`

// deprecatingTypeNames mirrors the domain classification table for SQL
// pushdown of deprecation queries.
var deprecatingTypeNames = []string{
	string(domain.RelSupersedes), string(domain.RelUpdates),
	string(domain.RelDeprecates), string(domain.RelReplaces),
}

type RelationshipStore struct {
	db *pgxpool.Pool
}

func NewRelationshipStore(db *pgxpool.Pool) *RelationshipStore {
	return &RelationshipStore{db: db}
}

func (s *RelationshipStore) Create(ctx context.Context, r *domain.BeliefRelationship) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO belief_relationships (source_belief_id, target_belief_id, agent_id, type, strength, metadata,
		                                   active, effective_from, effective_until, deprecation_reason, priority)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, last_updated`,
		r.SourceBeliefID, r.TargetBeliefID, r.AgentID, r.Type, r.Strength, r.Metadata,
		r.Active, r.EffectiveFrom, r.EffectiveUntil, r.DeprecationReason, r.Priority,
	).Scan(&r.ID, &r.CreatedAt, &r.LastUpdated)
	return wrapStorage("create relationship", err)
}

func (s *RelationshipStore) CreateBatch(ctx context.Context, rs []*domain.BeliefRelationship) error {
	if len(rs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rs {
		batch.Queue(
			`INSERT INTO belief_relationships (source_belief_id, target_belief_id, agent_id, type, strength, metadata,
			                                   active, effective_from, effective_until, deprecation_reason, priority)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id, created_at, last_updated`,
			r.SourceBeliefID, r.TargetBeliefID, r.AgentID, r.Type, r.Strength, r.Metadata,
			r.Active, r.EffectiveFrom, r.EffectiveUntil, r.DeprecationReason, r.Priority,
		)
	}
	results := s.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for _, r := range rs {
		if err := results.QueryRow().Scan(&r.ID, &r.CreatedAt, &r.LastUpdated); err != nil {
			return wrapStorage("create relationship batch", err)
		}
	}
	return nil
}

func (s *RelationshipStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefRelationship, error) {
	r := &domain.BeliefRelationship{}
	err := s.db.QueryRow(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships WHERE id = $1`, id,
	).Scan(scanRelationshipDest(r)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("get relationship", err)
	}
	return r, nil
}

func (s *RelationshipStore) GetBySource(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships WHERE source_belief_id = $1 ORDER BY strength DESC`,
		beliefID,
	)
	if err != nil {
		return nil, wrapStorage("relationships by source", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

func (s *RelationshipStore) GetByTarget(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships WHERE target_belief_id = $1 ORDER BY strength DESC`,
		beliefID,
	)
	if err != nil {
		return nil, wrapStorage("relationships by target", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

func (s *RelationshipStore) ListByAgent(ctx context.Context, agentID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM belief_relationships WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	rows, err := s.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, wrapStorage("relationships by agent", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// Deactivate flips the edge off; edges are never deleted by resolution.
func (s *RelationshipStore) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_relationships
		 SET active = FALSE, deprecation_reason = $2, last_updated = NOW()
		 WHERE id = $1`,
		id, reason,
	)
	if err != nil {
		return wrapStorage("deactivate relationship", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelationshipStore) SetEffectiveUntil(ctx context.Context, id uuid.UUID, until time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_relationships SET effective_until = $2, last_updated = NOW() WHERE id = $1`,
		id, until,
	)
	if err != nil {
		return wrapStorage("set effective until", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelationshipStore) FindDeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT target_belief_id FROM belief_relationships
		 WHERE agent_id = $1 AND active AND type = ANY($2)`,
		agentID, deprecatingTypeNames,
	)
	if err != nil {
		return nil, wrapStorage("deprecated belief ids", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (s *RelationshipStore) FindSupersedingBeliefIDs(ctx context.Context, agentID string, beliefID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_belief_id FROM belief_relationships
		 WHERE agent_id = $1 AND target_belief_id = $2 AND active AND type = ANY($3)
		 ORDER BY created_at ASC`,
		agentID, beliefID, deprecatingTypeNames,
	)
	if err != nil {
		return nil, wrapStorage("superseding belief ids", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanRelationshipDest(r *domain.BeliefRelationship) []any {
	return []any{
		&r.ID, &r.SourceBeliefID, &r.TargetBeliefID, &r.AgentID, &r.Type, &r.Strength, &r.Metadata,
		&r.CreatedAt, &r.LastUpdated, &r.Active, &r.EffectiveFrom, &r.EffectiveUntil, &r.DeprecationReason, &r.Priority,
	}
}

func scanRelationships(rows pgx.Rows) ([]domain.BeliefRelationship, error) {
	var rels []domain.BeliefRelationship
	for rows.Next() {
		var r domain.BeliefRelationship
		if err := rows.Scan(scanRelationshipDest(&r)...); err != nil {
			return nil, wrapStorage("scan relationship row", err)
		}
		rels = append(rels, r)
	}
	return rels, wrapStorage("relationship rows", rows.Err())
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapStorage("scan id row", err)
		}
		ids = append(ids, id)
	}
	return ids, wrapStorage("id rows", rows.Err())
}
