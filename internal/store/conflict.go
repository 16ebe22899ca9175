package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noema-ai/noema/internal/domain"
)

const conflictColumns = `id, belief_id, memory_id, conflicting_belief_id, agent_id, description, resolution,
		resolution_details, resolution_confidence, detected_at, resolved_at, resolved, severity`

type ConflictStore struct {
	db *pgxpool.Pool
}

func NewConflictStore(db *pgxpool.Pool) *ConflictStore {
	return &ConflictStore{db: db}
}

func (s *ConflictStore) Create(ctx context.Context, c *domain.BeliefConflict) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO belief_conflicts (belief_id, memory_id, conflicting_belief_id, agent_id, description, resolution,
		                               resolution_details, resolution_confidence, resolved_at, resolved, severity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, detected_at`,
		c.BeliefID, c.MemoryID, c.ConflictingBeliefID, c.AgentID, c.Description, c.Resolution,
		c.ResolutionDetails, c.ResolutionConfidence, c.ResolvedAt, c.Resolved, c.Severity,
	).Scan(&c.ID, &c.DetectedAt)
	return wrapStorage("create conflict", err)
}

func (s *ConflictStore) CreateBatch(ctx context.Context, cs []*domain.BeliefConflict) error {
	if len(cs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range cs {
		batch.Queue(
			`INSERT INTO belief_conflicts (belief_id, memory_id, conflicting_belief_id, agent_id, description, resolution,
			                               resolution_details, resolution_confidence, resolved_at, resolved, severity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id, detected_at`,
			c.BeliefID, c.MemoryID, c.ConflictingBeliefID, c.AgentID, c.Description, c.Resolution,
			c.ResolutionDetails, c.ResolutionConfidence, c.ResolvedAt, c.Resolved, c.Severity,
		)
	}
	results := s.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for _, c := range cs {
		if err := results.QueryRow().Scan(&c.ID, &c.DetectedAt); err != nil {
			return wrapStorage("create conflict batch", err)
		}
	}
	return nil
}

func (s *ConflictStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefConflict, error) {
	c := &domain.BeliefConflict{}
	err := s.db.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts WHERE id = $1`, id,
	).Scan(scanConflictDest(c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("get conflict", err)
	}
	return c, nil
}

func (s *ConflictStore) ListByAgent(ctx context.Context, agentID string, unresolvedOnly bool) ([]domain.BeliefConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM belief_conflicts WHERE agent_id = $1`
	if unresolvedOnly {
		query += ` AND NOT resolved`
	}
	query += ` ORDER BY detected_at DESC`

	rows, err := s.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, wrapStorage("conflicts by agent", err)
	}
	defer rows.Close()

	var conflicts []domain.BeliefConflict
	for rows.Next() {
		var c domain.BeliefConflict
		if err := rows.Scan(scanConflictDest(&c)...); err != nil {
			return nil, wrapStorage("scan conflict row", err)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, wrapStorage("conflict rows", rows.Err())
}

func (s *ConflictStore) Resolve(ctx context.Context, id uuid.UUID, resolution domain.ConflictResolution, details string, confidence float32) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_conflicts
		 SET resolution = $2, resolution_details = $3, resolution_confidence = $4,
		     resolved = TRUE, resolved_at = NOW()
		 WHERE id = $1`,
		id, resolution, details, domain.ClampConfidence(confidence),
	)
	if err != nil {
		return wrapStorage("resolve conflict", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanConflictDest(c *domain.BeliefConflict) []any {
	return []any{
		&c.ID, &c.BeliefID, &c.MemoryID, &c.ConflictingBeliefID, &c.AgentID, &c.Description, &c.Resolution,
		&c.ResolutionDetails, &c.ResolutionConfidence, &c.DetectedAt, &c.ResolvedAt, &c.Resolved, &c.Severity,
	}
}
