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

const memoryColumns = `id, agent_id, content, category_primary, category_secondary, category_tags, category_confidence,
		importance, tags, source, confidence, custom, access_count, last_accessed_at, created_at, version`

type MemoryStore struct {
	db *pgxpool.Pool
}

func NewMemoryStore(db *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{db: db}
}

func (s *MemoryStore) Create(ctx context.Context, m *domain.MemoryRecord) error {
	var embedding *pgvector.Vector
	if len(m.Embedding) > 0 {
		v := pgvector.NewVector(m.Embedding)
		embedding = &v
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO memories (agent_id, content, category_primary, category_secondary, category_tags, category_confidence,
		                       importance, tags, source, confidence, custom, embedding, access_count, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, 1)
		 RETURNING id, created_at, access_count, version`,
		m.AgentID, m.Content, m.Category.Primary, m.Category.Secondary, m.Category.Tags, m.Category.Confidence,
		m.Metadata.Importance, m.Metadata.Tags, m.Metadata.Source, m.Metadata.Confidence, m.Metadata.Custom, embedding,
	).Scan(&m.ID, &m.CreatedAt, &m.Metadata.AccessCount, &m.Version)
	return wrapStorage("create memory", err)
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m := &domain.MemoryRecord{}
	err := s.db.QueryRow(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id,
	).Scan(scanMemoryDest(m)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("get memory", err)
	}
	return m, nil
}

func (s *MemoryStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.MemoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, wrapStorage("get memories", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *MemoryStore) FindByAgent(ctx context.Context, agentID string, opts domain.FilterOptions, limit int) ([]domain.MemoryRecord, error) {
	conditions := []string{"agent_id = $1"}
	args := []any{agentID}

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
	if opts.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)+1))
		args = append(args, opts.Source)
	}
	if len(opts.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags && $%d", len(args)+1))
		args = append(args, opts.Tags)
	}
	if opts.MinCategoryConfidence != nil {
		conditions = append(conditions, fmt.Sprintf("category_confidence >= $%d", len(args)+1))
		args = append(args, *opts.MinCategoryConfidence)
	}
	if opts.MinAccessCount != nil {
		conditions = append(conditions, fmt.Sprintf("access_count >= $%d", len(args)+1))
		args = append(args, *opts.MinAccessCount)
	}
	if opts.MaxAgeSeconds != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= NOW() - ($%d || ' seconds')::interval", len(args)+1))
		args = append(args, fmt.Sprintf("%d", *opts.MaxAgeSeconds))
	}

	limitParam := len(args) + 1
	args = append(args, limit)

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT `+memoryColumns+` FROM memories WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		strings.Join(conditions, " AND "), limitParam,
	), args...)
	if err != nil {
		return nil, wrapStorage("find memories", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return wrapStorage("delete memory", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, wrapStorage("delete memories", err)
	}
	return tag.RowsAffected(), nil
}

func (s *MemoryStore) IncrementAccess(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories
		 SET access_count = access_count + 1,
		     last_accessed_at = NOW(),
		     version = version + 1
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return wrapStorage("increment access", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// similarity.Source

func (s *MemoryStore) HasNativeVector() bool { return true }

func (s *MemoryStore) SearchVector(ctx context.Context, agentID string, vec []float32, threshold float32, limit int, includeInactive bool) ([]similarity.Match, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, content, embedding, confidence, created_at, 1 - (embedding <=> $1) AS score
		 FROM memories
		 WHERE agent_id = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $3
		 ORDER BY score DESC
		 LIMIT $4`,
		pgvector.NewVector(vec), agentID, threshold, limit,
	)
	if err != nil {
		return nil, wrapStorage("memory vector search", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func (s *MemoryStore) Candidates(ctx context.Context, agentID string, includeInactive bool) ([]similarity.Candidate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, content, embedding, confidence, created_at FROM memories WHERE agent_id = $1`,
		agentID,
	)
	if err != nil {
		return nil, wrapStorage("memory candidates", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (s *MemoryStore) SearchKeywords(ctx context.Context, agentID string, keywords []string, includeInactive bool) ([]similarity.Candidate, error) {
	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + kw + "%"
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, content, embedding, confidence, created_at
		 FROM memories WHERE agent_id = $1 AND content ILIKE ANY($2)`,
		agentID, patterns,
	)
	if err != nil {
		return nil, wrapStorage("memory keyword search", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func scanMemoryDest(m *domain.MemoryRecord) []any {
	return []any{
		&m.ID, &m.AgentID, &m.Content, &m.Category.Primary, &m.Category.Secondary, &m.Category.Tags, &m.Category.Confidence,
		&m.Metadata.Importance, &m.Metadata.Tags, &m.Metadata.Source, &m.Metadata.Confidence, &m.Metadata.Custom,
		&m.Metadata.AccessCount, &m.Metadata.LastAccessed, &m.CreatedAt, &m.Version,
	}
}

func scanMemories(rows pgx.Rows) ([]domain.MemoryRecord, error) {
	var memories []domain.MemoryRecord
	for rows.Next() {
		var m domain.MemoryRecord
		if err := rows.Scan(scanMemoryDest(&m)...); err != nil {
			return nil, wrapStorage("scan memory row", err)
		}
		memories = append(memories, m)
	}
	return memories, wrapStorage("memory rows", rows.Err())
}

func scanCandidates(rows pgx.Rows) ([]similarity.Candidate, error) {
	var candidates []similarity.Candidate
	for rows.Next() {
		var c similarity.Candidate
		var vec *pgvector.Vector
		if err := rows.Scan(&c.ID, &c.Text, &vec, &c.Confidence, &c.CreatedAt); err != nil {
			return nil, wrapStorage("scan candidate row", err)
		}
		if vec != nil {
			c.Embedding = vec.Slice()
		}
		candidates = append(candidates, c)
	}
	return candidates, wrapStorage("candidate rows", rows.Err())
}

func scanMatches(rows pgx.Rows) ([]similarity.Match, error) {
	var matches []similarity.Match
	for rows.Next() {
		var m similarity.Match
		var vec *pgvector.Vector
		if err := rows.Scan(&m.ID, &m.Text, &vec, &m.Confidence, &m.CreatedAt, &m.Score); err != nil {
			return nil, wrapStorage("scan match row", err)
		}
		if vec != nil {
			m.Embedding = vec.Slice()
		}
		matches = append(matches, m)
	}
	return matches, wrapStorage("match rows", rows.Err())
}
