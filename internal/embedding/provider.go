package embedding

import (
	"fmt"

	"github.com/noema-ai/noema/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI        = "openai"
	ProviderDeterministic = "deterministic"
	ProviderMock          = "mock"
)

// NewClient creates an embedding client based on the provider name.
// Returns an error if the provider is unknown or the API key is empty
// (except for deterministic and mock).
func NewClient(provider, apiKey string, dim int) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey, dim), nil

	case ProviderDeterministic:
		return NewDeterministicClient(dim), nil

	case ProviderMock:
		return NewMockClient(dim), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, deterministic, mock)", provider)
	}
}
