package domain

import (
	"time"

	"github.com/google/uuid"
)

// Belief is a distilled declarative statement with confidence and evidence.
// Confidence is clamped on every mutation; ReinforcementCount never
// decreases; LastUpdated advances on any mutation.
type Belief struct {
	ID                 uuid.UUID     `json:"id"`
	AgentID            string        `json:"agent_id"`
	Statement          string        `json:"statement"`
	Confidence         float32       `json:"confidence"`
	EvidenceMemoryIDs  []uuid.UUID   `json:"evidence_memory_ids,omitempty"`
	Category           CategoryLabel `json:"category"`
	CreatedAt          time.Time     `json:"created_at"`
	LastUpdated        time.Time     `json:"last_updated"`
	ReinforcementCount int           `json:"reinforcement_count"`
	Active             bool          `json:"active"`
	Tags               []string      `json:"tags,omitempty"`
	Embedding          []float32     `json:"-"`
	Version            int           `json:"version"`
}

// AddEvidence appends a memory id unless already present.
func (b *Belief) AddEvidence(memoryID uuid.UUID) {
	for _, id := range b.EvidenceMemoryIDs {
		if id == memoryID {
			return
		}
	}
	b.EvidenceMemoryIDs = append(b.EvidenceMemoryIDs, memoryID)
}

// BeliefWithScore pairs a belief with a similarity score in [0,1].
type BeliefWithScore struct {
	Belief
	Score float32 `json:"score"`
}

// Polarity is the stance of a proposed statement.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// BeliefProposal is a candidate belief extracted from memory content.
type BeliefProposal struct {
	Statement  string        `json:"statement"`
	Confidence float32       `json:"confidence"`
	Category   CategoryLabel `json:"category"`
	Polarity   Polarity      `json:"polarity,omitempty"`
}

// EffectivePolarity treats an absent polarity as positive.
func (p BeliefProposal) EffectivePolarity() Polarity {
	if p.Polarity == PolarityNegative {
		return PolarityNegative
	}
	return PolarityPositive
}
