package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConflictResolution is the strategy applied when a proposal opposes an
// existing belief.
type ConflictResolution string

const (
	ResolutionTakeNew             ConflictResolution = "TAKE_NEW"
	ResolutionKeepOld             ConflictResolution = "KEEP_OLD"
	ResolutionMarkUncertain       ConflictResolution = "MARK_UNCERTAIN"
	ResolutionRequireManualReview ConflictResolution = "REQUIRE_MANUAL_REVIEW"
	ResolutionMerge               ConflictResolution = "MERGE"
	ResolutionArchiveOld          ConflictResolution = "ARCHIVE_OLD"
)

// ValidConflictResolution reports whether r is a known strategy.
func ValidConflictResolution(r ConflictResolution) bool {
	switch r {
	case ResolutionTakeNew, ResolutionKeepOld, ResolutionMarkUncertain,
		ResolutionRequireManualReview, ResolutionMerge, ResolutionArchiveOld:
		return true
	}
	return false
}

type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "LOW"
	SeverityMedium   ConflictSeverity = "MEDIUM"
	SeverityHigh     ConflictSeverity = "HIGH"
	SeverityCritical ConflictSeverity = "CRITICAL"
)

// SeverityForDelta grades a conflict by the confidence gap between the two
// sides: <0.2 LOW, <0.5 MEDIUM, else HIGH.
func SeverityForDelta(delta float32) ConflictSeverity {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta < 0.2:
		return SeverityLow
	case delta < 0.5:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// BeliefConflict records a detected opposition between a belief and either a
// memory or another belief. At least one of MemoryID/ConflictingBeliefID is
// set. Resolved holds exactly when ResolvedAt is set.
type BeliefConflict struct {
	ID                   uuid.UUID          `json:"id"`
	BeliefID             uuid.UUID          `json:"belief_id"`
	MemoryID             *uuid.UUID         `json:"memory_id,omitempty"`
	ConflictingBeliefID  *uuid.UUID         `json:"conflicting_belief_id,omitempty"`
	AgentID              string             `json:"agent_id"`
	Description          string             `json:"description"`
	Resolution           ConflictResolution `json:"resolution,omitempty"`
	ResolutionDetails    string             `json:"resolution_details,omitempty"`
	ResolutionConfidence float32            `json:"resolution_confidence"`
	DetectedAt           time.Time          `json:"detected_at"`
	ResolvedAt           *time.Time         `json:"resolved_at,omitempty"`
	Resolved             bool               `json:"resolved"`
	Severity             ConflictSeverity   `json:"severity"`
}

// MarkResolved stamps the conflict resolved at t, keeping the
// resolved ⇔ resolvedAt invariant in one place.
func (c *BeliefConflict) MarkResolved(resolution ConflictResolution, details string, confidence float32, t time.Time) {
	c.Resolution = resolution
	c.ResolutionDetails = details
	c.ResolutionConfidence = ClampConfidence(confidence)
	c.ResolvedAt = &t
	c.Resolved = true
}
