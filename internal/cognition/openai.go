package cognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noema-ai/noema/internal/apperr"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/sony/gobreaker"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"
)

// OpenAIClient backs both the categorizer and the belief extractor with a
// chat model. It also supports statement synthesis for MERGE resolution.
type OpenAIClient struct {
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "openai-cognition",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// chat types for OpenAI API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.completeOnce(ctx, prompt, temp)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *OpenAIClient) completeOnce(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Categorize(ctx context.Context, text string, hints []string) (domain.CategoryLabel, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(categorizePrompt, text), 0.2)
	if err != nil {
		return domain.CategoryLabel{}, apperr.Wrap(apperr.CategorizationUnavailable, "categorize", err)
	}

	var parsed struct {
		Primary    string   `json:"primary"`
		Secondary  string   `json:"secondary"`
		Tags       []string `json:"tags"`
		Confidence float32  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return domain.CategoryLabel{}, apperr.Wrap(apperr.CategorizationUnavailable, "parse category", err)
	}
	if parsed.Primary == "" {
		return domain.CategoryLabel{}, apperr.New(apperr.CategorizationUnavailable, "category response missing primary")
	}
	return domain.NewCategoryLabel(parsed.Primary, parsed.Secondary, append(parsed.Tags, hints...), parsed.Confidence), nil
}

func (c *OpenAIClient) Extract(ctx context.Context, text string, category domain.CategoryLabel, agentID string) ([]domain.BeliefProposal, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(extractBeliefsPrompt, text), 0.2)
	if err != nil {
		return nil, apperr.Wrap(apperr.ExtractionUnavailable, "extract", err)
	}

	var parsed []struct {
		Statement  string  `json:"statement"`
		Confidence float32 `json:"confidence"`
		Polarity   string  `json:"polarity"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, apperr.Wrap(apperr.ExtractionUnavailable, "parse beliefs", err)
	}

	proposals := make([]domain.BeliefProposal, 0, len(parsed))
	for _, p := range parsed {
		stmt := strings.TrimSpace(p.Statement)
		if stmt == "" {
			continue
		}
		if len(stmt) > maxStatementChars {
			stmt = strings.TrimSpace(stmt[:maxStatementChars])
		}
		polarity := domain.PolarityPositive
		if p.Polarity == string(domain.PolarityNegative) {
			polarity = domain.PolarityNegative
		}
		proposals = append(proposals, domain.BeliefProposal{
			Statement:  stmt,
			Confidence: domain.ClampConfidence(p.Confidence),
			Category:   category,
			Polarity:   polarity,
		})
	}
	return proposals, nil
}

func (c *OpenAIClient) Synthesize(ctx context.Context, existing, incoming string) (string, error) {
	merged, err := c.complete(ctx, fmt.Sprintf(synthesizePrompt, existing, incoming), 0.2)
	if err != nil {
		return "", apperr.Wrap(apperr.ExtractionUnavailable, "synthesize", err)
	}
	if len(merged) > maxStatementChars {
		merged = strings.TrimSpace(merged[:maxStatementChars])
	}
	return merged, nil
}

// stripFences drops markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
