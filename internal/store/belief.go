package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/similarity"
	pgvector "github.com/pgvector/pgvector-go"
)

const beliefColumns = `id, agent_id, statement, confidence, evidence_memory_ids, category_primary, category_secondary,
		category_tags, category_confidence, created_at, last_updated, reinforcement_count, active, tags, embedding, version`

type BeliefStore struct {
	db *pgxpool.Pool
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

func (s *BeliefStore) Create(ctx context.Context, b *domain.Belief) error {
	var embedding *pgvector.Vector
	if len(b.Embedding) > 0 {
		v := pgvector.NewVector(b.Embedding)
		embedding = &v
	}

	b.Confidence = domain.ClampConfidence(b.Confidence)
	err := s.db.QueryRow(ctx,
		`INSERT INTO beliefs (agent_id, statement, confidence, evidence_memory_ids, category_primary, category_secondary,
		                      category_tags, category_confidence, reinforcement_count, active, tags, embedding, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
		 RETURNING id, created_at, last_updated, version`,
		b.AgentID, b.Statement, b.Confidence, b.EvidenceMemoryIDs, b.Category.Primary, b.Category.Secondary,
		b.Category.Tags, b.Category.Confidence, b.ReinforcementCount, b.Active, b.Tags, embedding,
	).Scan(&b.ID, &b.CreatedAt, &b.LastUpdated, &b.Version)
	return wrapStorage("create belief", err)
}

// CreateBatch persists all beliefs in one round trip, preserving input order.
func (s *BeliefStore) CreateBatch(ctx context.Context, bs []*domain.Belief) error {
	if len(bs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range bs {
		var embedding *pgvector.Vector
		if len(b.Embedding) > 0 {
			v := pgvector.NewVector(b.Embedding)
			embedding = &v
		}
		b.Confidence = domain.ClampConfidence(b.Confidence)
		batch.Queue(
			`INSERT INTO beliefs (agent_id, statement, confidence, evidence_memory_ids, category_primary, category_secondary,
			                      category_tags, category_confidence, reinforcement_count, active, tags, embedding, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
			 RETURNING id, created_at, last_updated, version`,
			b.AgentID, b.Statement, b.Confidence, b.EvidenceMemoryIDs, b.Category.Primary, b.Category.Secondary,
			b.Category.Tags, b.Category.Confidence, b.ReinforcementCount, b.Active, b.Tags, embedding,
		)
	}
	results := s.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for _, b := range bs {
		if err := results.QueryRow().Scan(&b.ID, &b.CreatedAt, &b.LastUpdated, &b.Version); err != nil {
			return wrapStorage("create belief batch", err)
		}
	}
	return nil
}

func (s *BeliefStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Belief, error) {
	b := &domain.Belief{}
	var vec *pgvector.Vector
	err := s.db.QueryRow(ctx,
		`SELECT `+beliefColumns+` FROM beliefs WHERE id = $1`, id,
	).Scan(scanBeliefDest(b, &vec)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("get belief", err)
	}
	if vec != nil {
		b.Embedding = vec.Slice()
	}
	return b, nil
}

func (s *BeliefStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Belief, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+` FROM beliefs WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, wrapStorage("get beliefs", err)
	}
	defer rows.Close()
	return scanBeliefs(rows)
}

func (s *BeliefStore) FindByAgent(ctx context.Context, agentID string, opts domain.FilterOptions, limit int) ([]domain.Belief, error) {
	conditions := []string{"agent_id = $1"}
	args := []any{agentID}

	if !opts.IncludeInactive {
		conditions = append(conditions, "active")
	}
	if opts.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category_primary = $%d", len(args)+1))
		args = append(args, opts.Category)
	}
	if opts.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *opts.Since)
	}
	if opts.Until != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *opts.Until)
	}
	if len(opts.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags && $%d", len(args)+1))
		args = append(args, opts.Tags)
	}
	if opts.MinCategoryConfidence != nil {
		conditions = append(conditions, fmt.Sprintf("category_confidence >= $%d", len(args)+1))
		args = append(args, *opts.MinCategoryConfidence)
	}
	if opts.ExcludeConflicted {
		conditions = append(conditions,
			"NOT EXISTS (SELECT 1 FROM belief_conflicts c WHERE c.belief_id = beliefs.id AND NOT c.resolved)")
	}

	limitParam := len(args) + 1
	args = append(args, limit)

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT `+beliefColumns+` FROM beliefs WHERE %s ORDER BY confidence DESC, created_at DESC LIMIT $%d`,
		strings.Join(conditions, " AND "), limitParam,
	), args...)
	if err != nil {
		return nil, wrapStorage("find beliefs", err)
	}
	defer rows.Close()
	return scanBeliefs(rows)
}

// Update writes all mutable fields guarded by the optimistic version check.
// On success the belief carries the advanced version.
func (s *BeliefStore) Update(ctx context.Context, b *domain.Belief) error {
	var embedding *pgvector.Vector
	if len(b.Embedding) > 0 {
		v := pgvector.NewVector(b.Embedding)
		embedding = &v
	}

	b.Confidence = domain.ClampConfidence(b.Confidence)
	tag, err := s.db.Exec(ctx,
		`UPDATE beliefs
		 SET statement = $1, confidence = $2, evidence_memory_ids = $3, reinforcement_count = $4,
		     active = $5, tags = $6, embedding = $7, last_updated = NOW(), version = version + 1
		 WHERE id = $8 AND version = $9`,
		b.Statement, b.Confidence, b.EvidenceMemoryIDs, b.ReinforcementCount,
		b.Active, b.Tags, embedding, b.ID, b.Version,
	)
	if err != nil {
		return wrapStorage("update belief", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM beliefs WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
			return wrapStorage("update belief", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	b.Version++
	return nil
}

func (s *BeliefStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM beliefs WHERE id = $1`, id)
	if err != nil {
		return wrapStorage("delete belief", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// similarity.Source over belief statements

func (s *BeliefStore) HasNativeVector() bool { return true }

func (s *BeliefStore) SearchVector(ctx context.Context, agentID string, vec []float32, threshold float32, limit int, includeInactive bool) ([]similarity.Match, error) {
	active := "AND active"
	if includeInactive {
		active = ""
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT id, statement, embedding, confidence, created_at, 1 - (embedding <=> $1) AS score
		 FROM beliefs
		 WHERE agent_id = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $3 %s
		 ORDER BY score DESC
		 LIMIT $4`, active),
		pgvector.NewVector(vec), agentID, threshold, limit,
	)
	if err != nil {
		return nil, wrapStorage("belief vector search", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (s *BeliefStore) Candidates(ctx context.Context, agentID string, includeInactive bool) ([]similarity.Candidate, error) {
	active := "AND active"
	if includeInactive {
		active = ""
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT id, statement, embedding, confidence, created_at FROM beliefs WHERE agent_id = $1 %s`, active),
		agentID,
	)
	if err != nil {
		return nil, wrapStorage("belief candidates", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (s *BeliefStore) SearchKeywords(ctx context.Context, agentID string, keywords []string, includeInactive bool) ([]similarity.Candidate, error) {
	active := "AND active"
	if includeInactive {
		active = ""
	}
	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + kw + "%"
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT id, statement, embedding, confidence, created_at
		 FROM beliefs WHERE agent_id = $1 AND statement ILIKE ANY($2) %s`, active),
		agentID, patterns,
	)
	if err != nil {
		return nil, wrapStorage("belief keyword search", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func scanBeliefDest(b *domain.Belief, vec **pgvector.Vector) []any {
	return []any{
		&b.ID, &b.AgentID, &b.Statement, &b.Confidence, &b.EvidenceMemoryIDs, &b.Category.Primary, &b.Category.Secondary,
		&b.Category.Tags, &b.Category.Confidence, &b.CreatedAt, &b.LastUpdated, &b.ReinforcementCount,
		&b.Active, &b.Tags, vec, &b.Version,
	}
}

func scanBeliefs(rows pgx.Rows) ([]domain.Belief, error) {
	var beliefs []domain.Belief
	for rows.Next() {
		var b domain.Belief
		var vec *pgvector.Vector
		if err := rows.Scan(scanBeliefDest(&b, &vec)...); err != nil {
			return nil, wrapStorage("scan belief row", err)
		}
		if vec != nil {
			b.Embedding = vec.Slice()
		}
		beliefs = append(beliefs, b)
	}
	return beliefs, wrapStorage("belief rows", rows.Err())
}
