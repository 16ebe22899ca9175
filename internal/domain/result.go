package domain

import "time"

// Status is the wire-stable outcome of an operation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusError   Status = "ERROR"
)

// BeliefUpdateResult reports what belief analysis did for one memory.
type BeliefUpdateResult struct {
	Reinforced        []Belief         `json:"reinforced"`
	Weakened          []Belief         `json:"weakened"`
	New               []Belief         `json:"new"`
	Conflicts         []BeliefConflict `json:"conflicts"`
	AnalysisTimestamp time.Time        `json:"analysis_timestamp"`
	OverallConfidence float32          `json:"overall_confidence"`
	ProcessingTimeMs  int64            `json:"processing_time_ms"`
}

// Empty reports whether analysis touched nothing.
func (r *BeliefUpdateResult) Empty() bool {
	return len(r.Reinforced) == 0 && len(r.Weakened) == 0 &&
		len(r.New) == 0 && len(r.Conflicts) == 0
}

// IngestionResult is the outcome of one ingestion pipeline run.
// MemoryID is "dry-run-<uuid>" for dry runs.
type IngestionResult struct {
	MemoryID            string              `json:"memory_id"`
	Category            CategoryLabel       `json:"category"`
	AgentID             string              `json:"agent_id"`
	ProcessingTimeMs    int64               `json:"processing_time_ms"`
	BeliefUpdateResult  *BeliefUpdateResult `json:"belief_update_result,omitempty"`
	Partial             bool                `json:"partial"`
	DryRun              bool                `json:"dry_run"`
	Status              Status              `json:"status"`
	BeliefAnalysisError string              `json:"belief_analysis_error,omitempty"`
}
