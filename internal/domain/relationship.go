package domain

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipType is a wire-stable edge type between two beliefs.
type RelationshipType string

const (
	// Temporal
	RelSupersedes RelationshipType = "SUPERSEDES"
	RelUpdates    RelationshipType = "UPDATES"
	RelDeprecates RelationshipType = "DEPRECATES"
	RelReplaces   RelationshipType = "REPLACES"
	// Logical
	RelSupports    RelationshipType = "SUPPORTS"
	RelContradicts RelationshipType = "CONTRADICTS"
	RelImplies     RelationshipType = "IMPLIES"
	RelReinforces  RelationshipType = "REINFORCES"
	RelWeakens     RelationshipType = "WEAKENS"
	// Semantic
	RelRelatesTo   RelationshipType = "RELATES_TO"
	RelSpecializes RelationshipType = "SPECIALIZES"
	RelGeneralizes RelationshipType = "GENERALIZES"
	RelExtends     RelationshipType = "EXTENDS"
	RelDerivesFrom RelationshipType = "DERIVES_FROM"
	// Causal
	RelCauses   RelationshipType = "CAUSES"
	RelCausedBy RelationshipType = "CAUSED_BY"
	RelEnables  RelationshipType = "ENABLES"
	RelPrevents RelationshipType = "PREVENTS"
	// Contextual
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelPrecedes   RelationshipType = "PRECEDES"
	RelFollows    RelationshipType = "FOLLOWS"
	RelContextFor RelationshipType = "CONTEXT_FOR"
	// Evidence
	RelEvidencedBy         RelationshipType = "EVIDENCED_BY"
	RelProvidesEvidenceFor RelationshipType = "PROVIDES_EVIDENCE_FOR"
	RelConflictsWith       RelationshipType = "CONFLICTS_WITH"
	// Similarity
	RelSimilarTo     RelationshipType = "SIMILAR_TO"
	RelAnalogousTo   RelationshipType = "ANALOGOUS_TO"
	RelContrastsWith RelationshipType = "CONTRASTS_WITH"

	RelCustom RelationshipType = "CUSTOM"
)

// Static classification tables. Behavior for every type lives here, not in
// per-type methods scattered across the codebase.
var (
	deprecatingTypes = map[RelationshipType]bool{
		RelSupersedes: true,
		RelUpdates:    true,
		RelDeprecates: true,
		RelReplaces:   true,
	}

	bidirectionalTypes = map[RelationshipType]bool{
		RelSimilarTo:   true,
		RelAnalogousTo: true,
		RelRelatesTo:   true,
	}

	inverseTypes = map[RelationshipType]RelationshipType{
		RelCauses:              RelCausedBy,
		RelCausedBy:            RelCauses,
		RelSpecializes:         RelGeneralizes,
		RelGeneralizes:         RelSpecializes,
		RelPrecedes:            RelFollows,
		RelFollows:             RelPrecedes,
		RelEvidencedBy:         RelProvidesEvidenceFor,
		RelProvidesEvidenceFor: RelEvidencedBy,
	}

	allRelationshipTypes = map[RelationshipType]bool{
		RelSupersedes: true, RelUpdates: true, RelDeprecates: true, RelReplaces: true,
		RelSupports: true, RelContradicts: true, RelImplies: true, RelReinforces: true, RelWeakens: true,
		RelRelatesTo: true, RelSpecializes: true, RelGeneralizes: true, RelExtends: true, RelDerivesFrom: true,
		RelCauses: true, RelCausedBy: true, RelEnables: true, RelPrevents: true,
		RelDependsOn: true, RelPrecedes: true, RelFollows: true, RelContextFor: true,
		RelEvidencedBy: true, RelProvidesEvidenceFor: true, RelConflictsWith: true,
		RelSimilarTo: true, RelAnalogousTo: true, RelContrastsWith: true,
		RelCustom: true,
	}
)

// Deprecating reports whether an edge of this type deprecates its target.
// Deprecating types are exactly the temporal ones.
func (t RelationshipType) Deprecating() bool { return deprecatingTypes[t] }

// Temporal reports whether this type orders beliefs in time.
func (t RelationshipType) Temporal() bool { return deprecatingTypes[t] }

// Bidirectional reports whether the relation holds in both directions.
func (t RelationshipType) Bidirectional() bool { return bidirectionalTypes[t] }

// Inverse returns the inverse type, if one is defined.
func (t RelationshipType) Inverse() (RelationshipType, bool) {
	inv, ok := inverseTypes[t]
	return inv, ok
}

// Valid reports whether t is a known type.
func (t RelationshipType) Valid() bool { return allRelationshipTypes[t] }

// BeliefRelationship is a directed, typed, optionally time-bounded edge
// between two beliefs of the same agent. Self-loops are forbidden.
type BeliefRelationship struct {
	ID                uuid.UUID        `json:"id"`
	SourceBeliefID    uuid.UUID        `json:"source_belief_id"`
	TargetBeliefID    uuid.UUID        `json:"target_belief_id"`
	AgentID           string           `json:"agent_id"`
	Type              RelationshipType `json:"type"`
	Strength          float32          `json:"strength"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	LastUpdated       time.Time        `json:"last_updated"`
	Active            bool             `json:"active"`
	EffectiveFrom     *time.Time       `json:"effective_from,omitempty"`
	EffectiveUntil    *time.Time       `json:"effective_until,omitempty"`
	DeprecationReason string           `json:"deprecation_reason,omitempty"`
	Priority          int              `json:"priority"`
}

// EffectiveAt reports whether the edge is inside its validity window at t.
// An unset bound is open on that side.
func (r *BeliefRelationship) EffectiveAt(t time.Time) bool {
	if r.EffectiveFrom != nil && t.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && t.After(*r.EffectiveUntil) {
		return false
	}
	return true
}

// TemporallyInverted reports an edge whose window bounds are out of order.
func (r *BeliefRelationship) TemporallyInverted() bool {
	return r.EffectiveFrom != nil && r.EffectiveUntil != nil &&
		r.EffectiveFrom.After(*r.EffectiveUntil)
}
