package cognition

import (
	"context"

	"github.com/noema-ai/noema/internal/domain"
)

// MockClient is a configurable categorizer/extractor for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	CategorizeResponse domain.CategoryLabel
	CategorizeError    error
	ExtractResponse    []domain.BeliefProposal
	ExtractError       error
	SynthesizeResponse string
	SynthesizeError    error
	// SynthesizeEnabled gates the StatementSynthesizer capability so tests
	// can exercise the MERGE fallback path.
	SynthesizeEnabled bool

	// Call tracking for assertions
	CategorizeCalls []string
	ExtractCalls    []string
	SynthesizeCalls []struct{ Existing, Incoming string }
}

func NewMockClient() *MockClient {
	return &MockClient{
		CategorizeResponse: domain.NewCategoryLabel("general", "information", nil, 0.6),
		ExtractResponse:    []domain.BeliefProposal{},
	}
}

func (c *MockClient) Categorize(ctx context.Context, text string, hints []string) (domain.CategoryLabel, error) {
	c.CategorizeCalls = append(c.CategorizeCalls, text)
	if c.CategorizeError != nil {
		return domain.CategoryLabel{}, c.CategorizeError
	}
	return c.CategorizeResponse, nil
}

func (c *MockClient) Extract(ctx context.Context, text string, category domain.CategoryLabel, agentID string) ([]domain.BeliefProposal, error) {
	c.ExtractCalls = append(c.ExtractCalls, text)
	if c.ExtractError != nil {
		return nil, c.ExtractError
	}
	return c.ExtractResponse, nil
}

func (c *MockClient) Synthesize(ctx context.Context, existing, incoming string) (string, error) {
	c.SynthesizeCalls = append(c.SynthesizeCalls, struct{ Existing, Incoming string }{existing, incoming})
	if !c.SynthesizeEnabled {
		return "", ErrSynthesisUnavailable
	}
	if c.SynthesizeError != nil {
		return "", c.SynthesizeError
	}
	return c.SynthesizeResponse, nil
}
