package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/domain"
	"go.uber.org/zap"
)

// GraphService answers queries over the typed belief graph and is the single
// write path for new edges. Traversals skip inactive edges and edges outside
// their effective window, and are cycle-safe via visited sets.
type GraphService struct {
	beliefs       domain.BeliefStore
	relationships domain.RelationshipStore
	logger        *zap.Logger
}

func NewGraphService(beliefs domain.BeliefStore, relationships domain.RelationshipStore, logger *zap.Logger) *GraphService {
	return &GraphService{beliefs: beliefs, relationships: relationships, logger: logger}
}

// Link validates and persists an edge. Self-loops, cross-agent edges,
// inverted windows, and deprecation cycles are rejected.
func (s *GraphService) Link(ctx context.Context, r *domain.BeliefRelationship) error {
	if !r.Type.Valid() {
		return apperr.Newf(apperr.InvalidInput, "unknown relationship type %q", r.Type)
	}
	if r.SourceBeliefID == r.TargetBeliefID {
		return apperr.New(apperr.InvalidInput, "self-loop relationships are forbidden")
	}
	if r.TemporallyInverted() {
		return apperr.New(apperr.InvalidInput, "effective_from is after effective_until")
	}
	r.Strength = domain.ClampConfidence(r.Strength)

	src, err := s.beliefs.GetByID(ctx, r.SourceBeliefID)
	if err != nil {
		return apperr.Wrap(apperr.KindOf(err), "load source belief", err)
	}
	tgt, err := s.beliefs.GetByID(ctx, r.TargetBeliefID)
	if err != nil {
		return apperr.Wrap(apperr.KindOf(err), "load target belief", err)
	}
	if src.AgentID != tgt.AgentID {
		return apperr.New(apperr.InvalidInput, "relationship endpoints belong to different agents")
	}
	r.AgentID = src.AgentID
	r.Active = true

	if r.Type.Deprecating() {
		closes, err := s.reachableByDeprecation(ctx, r.TargetBeliefID, r.SourceBeliefID)
		if err != nil {
			return err
		}
		if closes {
			return apperr.New(apperr.InvalidInput, "edge would close a deprecation cycle")
		}
	}

	return s.relationships.Create(ctx, r)
}

// Deactivate turns an edge off without deleting it.
func (s *GraphService) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	return s.relationships.Deactivate(ctx, id, reason)
}

// reachableByDeprecation walks active deprecating edges outward from start
// and reports whether goal is reachable.
func (s *GraphService) reachableByDeprecation(ctx context.Context, start, goal uuid.UUID) (bool, error) {
	visited := map[uuid.UUID]bool{start: true}
	frontier := []uuid.UUID{start}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		edges, err := s.relationships.GetBySource(ctx, cur)
		if err != nil {
			return false, err
		}
		for _, e := range edges {
			if !e.Active || !e.Type.Deprecating() {
				continue
			}
			if e.TargetBeliefID == goal {
				return true, nil
			}
			if !visited[e.TargetBeliefID] {
				visited[e.TargetBeliefID] = true
				frontier = append(frontier, e.TargetBeliefID)
			}
		}
	}
	return false, nil
}

// FindDeprecatedBeliefIDs lists beliefs with an incoming active deprecating
// edge, resolved by the store without loading the graph.
func (s *GraphService) FindDeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error) {
	return s.relationships.FindDeprecatedBeliefIDs(ctx, agentID)
}

// FindDeprecationChain returns the belief followed by its successors, newest
// superseder last. The walk follows incoming deprecating edges and stops at
// the first belief with none, or when a cycle would repeat.
func (s *GraphService) FindDeprecationChain(ctx context.Context, beliefID uuid.UUID) ([]domain.Belief, error) {
	start, err := s.beliefs.GetByID(ctx, beliefID)
	if err != nil {
		return nil, err
	}

	chain := []domain.Belief{*start}
	visited := map[uuid.UUID]bool{start.ID: true}
	cur := start.ID
	now := time.Now()
	for {
		edges, err := s.relationships.GetByTarget(ctx, cur)
		if err != nil {
			return nil, err
		}
		next, newest := uuid.Nil, time.Time{}
		// The most recent superseder is the current view of the belief.
		for _, e := range edges {
			if e.Active && e.Type.Deprecating() && e.EffectiveAt(now) && e.AgentID == start.AgentID &&
				!visited[e.SourceBeliefID] && (next == uuid.Nil || e.CreatedAt.After(newest)) {
				next, newest = e.SourceBeliefID, e.CreatedAt
			}
		}
		if next == uuid.Nil {
			return chain, nil
		}
		visited[next] = true
		b, err := s.beliefs.GetByID(ctx, next)
		if err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				return chain, nil
			}
			return nil, err
		}
		chain = append(chain, *b)
		cur = next
	}
}

// RelatedBelief is a traversal hit with its hop count and the edge type
// that first reached it.
type RelatedBelief struct {
	domain.Belief
	Distance int                     `json:"distance"`
	Via      domain.RelationshipType `json:"via"`
}

// FindRelated walks edges in both directions up to depth hops.
func (s *GraphService) FindRelated(ctx context.Context, beliefID uuid.UUID, depth int) ([]RelatedBelief, error) {
	if depth <= 0 {
		depth = 1
	}
	start, err := s.beliefs.GetByID(ctx, beliefID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	type hit struct {
		distance int
		via      domain.RelationshipType
	}
	found := make(map[uuid.UUID]hit)
	visited := map[uuid.UUID]bool{beliefID: true}
	frontier := []uuid.UUID{beliefID}

	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []uuid.UUID
		for _, cur := range frontier {
			outgoing, err := s.relationships.GetBySource(ctx, cur)
			if err != nil {
				return nil, err
			}
			incoming, err := s.relationships.GetByTarget(ctx, cur)
			if err != nil {
				return nil, err
			}
			for _, e := range append(outgoing, incoming...) {
				if !e.Active || !e.EffectiveAt(now) || e.AgentID != start.AgentID {
					continue
				}
				neighbor := e.TargetBeliefID
				if neighbor == cur {
					neighbor = e.SourceBeliefID
				}
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				found[neighbor] = hit{distance: d, via: e.Type}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	ids := make([]uuid.UUID, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	beliefs, err := s.beliefs.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	related := make([]RelatedBelief, 0, len(beliefs))
	for _, b := range beliefs {
		h := found[b.ID]
		related = append(related, RelatedBelief{Belief: b, Distance: h.distance, Via: h.via})
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].Distance != related[j].Distance {
			return related[i].Distance < related[j].Distance
		}
		return related[i].ID.String() < related[j].ID.String()
	})
	return related, nil
}

// FindStronglyConnectedClusters groups beliefs joined by strong edges using
// union-find. Clusters below two members are dropped.
func (s *GraphService) FindStronglyConnectedClusters(ctx context.Context, agentID string, strengthThreshold float32) ([][]uuid.UUID, error) {
	edges, err := s.relationships.ListByAgent(ctx, agentID, false)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	uf := newUnionFind()
	for _, e := range edges {
		if e.Strength < strengthThreshold || !e.EffectiveAt(now) {
			continue
		}
		uf.union(e.SourceBeliefID, e.TargetBeliefID)
	}

	groups := make(map[uuid.UUID][]uuid.UUID)
	for id := range uf.parent {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	var clusters [][]uuid.UUID
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].String() < members[j].String() })
		clusters = append(clusters, members)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0].String() < clusters[j][0].String() })
	return clusters, nil
}

// GraphValidation reports structural defects found in an agent's graph.
type GraphValidation struct {
	Valid              bool        `json:"valid"`
	OrphanEdges        []uuid.UUID `json:"orphan_edges,omitempty"`
	SelfLoops          []uuid.UUID `json:"self_loops,omitempty"`
	TemporalInversions []uuid.UUID `json:"temporal_inversions,omitempty"`
}

// ValidateStructure scans every edge, including inactive ones, for orphaned
// endpoints, self-loops, and inverted effective windows.
func (s *GraphService) ValidateStructure(ctx context.Context, agentID string) (*GraphValidation, error) {
	edges, err := s.relationships.ListByAgent(ctx, agentID, true)
	if err != nil {
		return nil, err
	}

	endpointSet := make(map[uuid.UUID]bool)
	for _, e := range edges {
		endpointSet[e.SourceBeliefID] = true
		endpointSet[e.TargetBeliefID] = true
	}
	endpoints := make([]uuid.UUID, 0, len(endpointSet))
	for id := range endpointSet {
		endpoints = append(endpoints, id)
	}
	existing, err := s.beliefs.GetMany(ctx, endpoints)
	if err != nil {
		return nil, err
	}
	exists := make(map[uuid.UUID]bool, len(existing))
	for _, b := range existing {
		exists[b.ID] = true
	}

	v := &GraphValidation{}
	for _, e := range edges {
		if !exists[e.SourceBeliefID] || !exists[e.TargetBeliefID] {
			v.OrphanEdges = append(v.OrphanEdges, e.ID)
		}
		if e.SourceBeliefID == e.TargetBeliefID {
			v.SelfLoops = append(v.SelfLoops, e.ID)
		}
		if e.TemporallyInverted() {
			v.TemporalInversions = append(v.TemporalInversions, e.ID)
		}
	}
	v.Valid = len(v.OrphanEdges) == 0 && len(v.SelfLoops) == 0 && len(v.TemporalInversions) == 0
	return v, nil
}

// unionFind is a path-compressing disjoint set over belief ids.
type unionFind struct {
	parent map[uuid.UUID]uuid.UUID
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[uuid.UUID]uuid.UUID)}
}

func (u *unionFind) find(id uuid.UUID) uuid.UUID {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
	}
	for u.parent[id] != id {
		u.parent[id] = u.parent[u.parent[id]]
		id = u.parent[id]
	}
	return id
}

func (u *unionFind) union(a, b uuid.UUID) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
