package cognition

import (
	"errors"
	"fmt"

	"github.com/noema-ai/noema/internal/domain"
)

// ErrSynthesisUnavailable is returned by extractors that implement the
// synthesizer interface but cannot produce a merged statement.
var ErrSynthesisUnavailable = errors.New("statement synthesis unavailable")

// Provider constants
const (
	ProviderOpenAI  = "openai"
	ProviderPattern = "pattern"
	ProviderMock    = "mock"
)

// NewClients creates the categorizer and belief extractor for the provider.
// The pattern provider is fully offline and is the floor the service can
// always run on.
func NewClients(provider, apiKey string) (domain.Categorizer, domain.BeliefExtractor, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI cognition provider")
		}
		client := NewOpenAIClient(apiKey)
		return client, client, nil

	case ProviderPattern:
		return NewPatternCategorizer(), NewPatternExtractor(), nil

	case ProviderMock:
		mock := NewMockClient()
		return mock, mock, nil

	default:
		return nil, nil, fmt.Errorf("unknown cognition provider: %s (valid options: openai, pattern, mock)", provider)
	}
}
