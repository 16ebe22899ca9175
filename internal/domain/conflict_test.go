package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSeverityForDelta(t *testing.T) {
	assert.Equal(t, SeverityLow, SeverityForDelta(0.1))
	assert.Equal(t, SeverityLow, SeverityForDelta(-0.1))
	assert.Equal(t, SeverityMedium, SeverityForDelta(0.2))
	assert.Equal(t, SeverityMedium, SeverityForDelta(0.49))
	assert.Equal(t, SeverityHigh, SeverityForDelta(0.5))
	assert.Equal(t, SeverityHigh, SeverityForDelta(-0.9))
}

func TestMarkResolved(t *testing.T) {
	c := &BeliefConflict{}
	assert.False(t, c.Resolved)
	assert.Nil(t, c.ResolvedAt)

	now := time.Now()
	c.MarkResolved(ResolutionTakeNew, "superseded", 1.4, now)

	assert.True(t, c.Resolved)
	assert.NotNil(t, c.ResolvedAt)
	assert.Equal(t, now, *c.ResolvedAt)
	assert.Equal(t, ResolutionTakeNew, c.Resolution)
	assert.Equal(t, float32(1.0), c.ResolutionConfidence)
}

func TestBeliefAddEvidence(t *testing.T) {
	b := &Belief{}
	id := uuid.New()
	b.AddEvidence(id)
	b.AddEvidence(id)
	assert.Len(t, b.EvidenceMemoryIDs, 1)
}

func TestProposalEffectivePolarity(t *testing.T) {
	assert.Equal(t, PolarityPositive, BeliefProposal{}.EffectivePolarity())
	assert.Equal(t, PolarityPositive, BeliefProposal{Polarity: PolarityPositive}.EffectivePolarity())
	assert.Equal(t, PolarityNegative, BeliefProposal{Polarity: PolarityNegative}.EffectivePolarity())
}
