package embedding

import "context"

// MockClient is a configurable embedding client for testing.
// Set the response fields to control what Embed returns.
type MockClient struct {
	dim           int
	EmbedResponse []float32
	EmbedError    error

	// Call tracking for assertions
	EmbedCalls []string
}

func NewMockClient(dim int) *MockClient {
	return &MockClient{dim: dim}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.EmbedCalls = append(c.EmbedCalls, text)
	if c.EmbedError != nil {
		return nil, c.EmbedError
	}
	if c.EmbedResponse != nil {
		return c.EmbedResponse, nil
	}
	v := make([]float32, c.dim)
	if c.dim > 0 {
		v[0] = 1
	}
	return v, nil
}

func (c *MockClient) Dimension() int { return c.dim }

func (c *MockClient) Deterministic() bool { return false }
