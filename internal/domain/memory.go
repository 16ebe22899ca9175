package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemoryInput is an ingestion request as submitted by an agent.
type MemoryInput struct {
	AgentID   string         `json:"agent_id"`
	Content   string         `json:"content"`
	Source    string         `json:"source,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Metadata  MemoryMetadata `json:"metadata,omitempty"`
}

// MemoryMetadata travels with a record. Custom holds free-form fields the
// core never interprets.
type MemoryMetadata struct {
	Importance   float32        `json:"importance,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Source       string         `json:"source,omitempty"`
	Confidence   float32        `json:"confidence,omitempty"`
	AccessCount  int            `json:"access_count"`
	LastAccessed *time.Time     `json:"last_accessed,omitempty"`
	Custom       map[string]any `json:"custom,omitempty"`
}

// MemoryRecord is a durable memory. ID and AgentID are immutable once
// written; Version advances on every update.
type MemoryRecord struct {
	ID        uuid.UUID      `json:"id"`
	AgentID   string         `json:"agent_id"`
	Content   string         `json:"content"`
	Category  CategoryLabel  `json:"category"`
	Metadata  MemoryMetadata `json:"metadata"`
	Embedding []float32      `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	Version   int            `json:"version"`
}

// MemoryWithScore pairs a record with a similarity score in [0,1].
type MemoryWithScore struct {
	MemoryRecord
	Score float32 `json:"score"`
}

// ForgettingStrategyType names a forgetting policy. Carried as wire
// vocabulary; policies themselves run outside this service.
type ForgettingStrategyType string

const (
	ForgetAge       ForgettingStrategyType = "AGE"
	ForgetLeastUsed ForgettingStrategyType = "LEAST_USED"
	ForgetLowScore  ForgettingStrategyType = "LOW_SCORE"
	ForgetCustom    ForgettingStrategyType = "CUSTOM"
)
