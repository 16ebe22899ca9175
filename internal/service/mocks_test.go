package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/similarity"
	"github.com/noema-ai/noema/internal/store"
)

// mockMemoryStore implements domain.MemoryStore for testing.
type mockMemoryStore struct {
	mu        sync.Mutex
	memories  map[uuid.UUID]*domain.MemoryRecord
	creates   int
	createErr error
	pingErr   error
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{memories: make(map[uuid.UUID]*domain.MemoryRecord)}
}

func (m *mockMemoryStore) Create(ctx context.Context, rec *domain.MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	rec.Version = 1
	cp := *rec
	m.memories[rec.ID] = &cp
	return nil
}

func (m *mockMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.memories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockMemoryStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MemoryRecord
	for _, id := range ids {
		if rec, ok := m.memories[id]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockMemoryStore) FindByAgent(ctx context.Context, agentID string, opts domain.FilterOptions, limit int) ([]domain.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MemoryRecord
	for _, rec := range m.memories {
		if rec.AgentID != agentID {
			continue
		}
		out = append(out, *rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memories[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.memories, id)
	return nil
}

func (m *mockMemoryStore) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range ids {
		if m.Delete(ctx, id) == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockMemoryStore) IncrementAccess(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.memories[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Metadata.AccessCount++
	now := time.Now()
	rec.Metadata.LastAccessed = &now
	return nil
}

func (m *mockMemoryStore) Ping(ctx context.Context) error { return m.pingErr }

// mockBeliefStore implements domain.BeliefStore and similarity.Source.
type mockBeliefStore struct {
	mu      sync.Mutex
	beliefs map[uuid.UUID]*domain.Belief
	creates int
	updates int
	// conflictsLeft forces that many version-conflict failures on Update.
	conflictsLeft int
}

func newMockBeliefStore() *mockBeliefStore {
	return &mockBeliefStore{beliefs: make(map[uuid.UUID]*domain.Belief)}
}

func (m *mockBeliefStore) seed(b domain.Belief) *domain.Belief {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.LastUpdated = b.CreatedAt
	cp := b
	m.beliefs[b.ID] = &cp
	return &cp
}

func (m *mockBeliefStore) Create(ctx context.Context, b *domain.Belief) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	b.LastUpdated = b.CreatedAt
	b.Version = 1
	cp := *b
	m.beliefs[b.ID] = &cp
	return nil
}

func (m *mockBeliefStore) CreateBatch(ctx context.Context, bs []*domain.Belief) error {
	for _, b := range bs {
		if err := m.Create(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockBeliefStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Belief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beliefs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBeliefStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Belief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Belief
	for _, id := range ids {
		if b, ok := m.beliefs[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBeliefStore) FindByAgent(ctx context.Context, agentID string, opts domain.FilterOptions, limit int) ([]domain.Belief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID != agentID {
			continue
		}
		if !opts.IncludeInactive && !b.Active {
			continue
		}
		out = append(out, *b)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockBeliefStore) Update(ctx context.Context, b *domain.Belief) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return store.ErrVersionConflict
	}
	current, ok := m.beliefs[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != b.Version {
		return store.ErrVersionConflict
	}
	m.updates++
	b.Version++
	b.LastUpdated = time.Now()
	cp := *b
	m.beliefs[b.ID] = &cp
	return nil
}

func (m *mockBeliefStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.beliefs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.beliefs, id)
	return nil
}

func (m *mockBeliefStore) HasNativeVector() bool { return false }

func (m *mockBeliefStore) SearchVector(ctx context.Context, agentID string, vec []float32, threshold float32, limit int, includeInactive bool) ([]similarity.Match, error) {
	return nil, apperr.New(apperr.Unsupported, "no native vector search")
}

func (m *mockBeliefStore) Candidates(ctx context.Context, agentID string, includeInactive bool) ([]similarity.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []similarity.Candidate
	for _, b := range m.beliefs {
		if b.AgentID != agentID {
			continue
		}
		if !includeInactive && !b.Active {
			continue
		}
		out = append(out, similarity.Candidate{
			ID:         b.ID,
			Text:       b.Statement,
			Embedding:  b.Embedding,
			Confidence: b.Confidence,
			CreatedAt:  b.CreatedAt,
		})
	}
	return out, nil
}

func (m *mockBeliefStore) SearchKeywords(ctx context.Context, agentID string, keywords []string, includeInactive bool) ([]similarity.Candidate, error) {
	candidates, _ := m.Candidates(ctx, agentID, includeInactive)
	var out []similarity.Candidate
	for _, c := range candidates {
		text := strings.ToLower(c.Text)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// mockRelationshipStore implements domain.RelationshipStore.
type mockRelationshipStore struct {
	mu    sync.Mutex
	edges map[uuid.UUID]*domain.BeliefRelationship
}

func newMockRelationshipStore() *mockRelationshipStore {
	return &mockRelationshipStore{edges: make(map[uuid.UUID]*domain.BeliefRelationship)}
}

func (m *mockRelationshipStore) seed(r domain.BeliefRelationship) *domain.BeliefRelationship {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := r
	m.edges[r.ID] = &cp
	return &cp
}

func (m *mockRelationshipStore) Create(ctx context.Context, r *domain.BeliefRelationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.LastUpdated = r.CreatedAt
	cp := *r
	m.edges[r.ID] = &cp
	return nil
}

func (m *mockRelationshipStore) CreateBatch(ctx context.Context, rs []*domain.BeliefRelationship) error {
	for _, r := range rs {
		if err := m.Create(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockRelationshipStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.edges[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRelationshipStore) GetBySource(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefRelationship
	for _, r := range m.edges {
		if r.SourceBeliefID == beliefID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRelationshipStore) GetByTarget(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefRelationship
	for _, r := range m.edges {
		if r.TargetBeliefID == beliefID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRelationshipStore) ListByAgent(ctx context.Context, agentID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefRelationship
	for _, r := range m.edges {
		if r.AgentID != agentID {
			continue
		}
		if !includeInactive && !r.Active {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRelationshipStore) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.edges[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Active = false
	r.DeprecationReason = reason
	return nil
}

func (m *mockRelationshipStore) SetEffectiveUntil(ctx context.Context, id uuid.UUID, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.edges[id]
	if !ok {
		return store.ErrNotFound
	}
	r.EffectiveUntil = &until
	return nil
}

func (m *mockRelationshipStore) FindDeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, r := range m.edges {
		if r.AgentID == agentID && r.Active && r.Type.Deprecating() && !seen[r.TargetBeliefID] {
			seen[r.TargetBeliefID] = true
			out = append(out, r.TargetBeliefID)
		}
	}
	return out, nil
}

func (m *mockRelationshipStore) FindSupersedingBeliefIDs(ctx context.Context, agentID string, beliefID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type dated struct {
		id uuid.UUID
		at time.Time
	}
	var hits []dated
	for _, r := range m.edges {
		if r.AgentID == agentID && r.TargetBeliefID == beliefID && r.Active && r.Type.Deprecating() {
			hits = append(hits, dated{r.SourceBeliefID, r.CreatedAt})
		}
	}
	// createdAt ASC, matching the storage contract.
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			if hits[j].at.Before(hits[i].at) {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}
	out := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out, nil
}

// mockConflictStore implements domain.ConflictStore.
type mockConflictStore struct {
	mu        sync.Mutex
	conflicts map[uuid.UUID]*domain.BeliefConflict
	creates   int
}

func newMockConflictStore() *mockConflictStore {
	return &mockConflictStore{conflicts: make(map[uuid.UUID]*domain.BeliefConflict)}
}

func (m *mockConflictStore) Create(ctx context.Context, c *domain.BeliefConflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	c.ID = uuid.New()
	if c.DetectedAt.IsZero() {
		c.DetectedAt = time.Now()
	}
	cp := *c
	m.conflicts[c.ID] = &cp
	return nil
}

func (m *mockConflictStore) CreateBatch(ctx context.Context, cs []*domain.BeliefConflict) error {
	for _, c := range cs {
		if err := m.Create(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockConflictStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockConflictStore) ListByAgent(ctx context.Context, agentID string, unresolvedOnly bool) ([]domain.BeliefConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefConflict
	for _, c := range m.conflicts {
		if c.AgentID != agentID {
			continue
		}
		if unresolvedOnly && c.Resolved {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockConflictStore) Resolve(ctx context.Context, id uuid.UUID, resolution domain.ConflictResolution, details string, confidence float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return store.ErrNotFound
	}
	c.MarkResolved(resolution, details, confidence, time.Now())
	return nil
}

// stubEmbedder returns canned vectors per text. Every other text gets the same
// unit basis vector, orthogonal to vecBlue and vecGreen.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: make(map[string][]float32)}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *stubEmbedder) Dimension() int      { return 3 }
func (e *stubEmbedder) Deterministic() bool { return false }
