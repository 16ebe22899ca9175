// Package similarity provides interchangeable search strategies over any
// store that can enumerate scored candidates. All strategies share one
// contract: scores in [0,1], descending, filtered by threshold, at most
// Limit entries.
package similarity

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Candidate is a searchable entity projected out of a store: a memory's
// content or a belief's statement, plus the fields scoring needs.
type Candidate struct {
	ID         uuid.UUID
	Text       string
	Embedding  []float32
	Confidence float32
	CreatedAt  time.Time
}

// Match is a candidate with its similarity score in [0,1].
type Match struct {
	Candidate
	Score float32
}

// Query describes one similarity search. Exactly one of Text or Vector
// drives the search; Vector wins when both are set.
type Query struct {
	Text            string
	Vector          []float32
	AgentID         string
	Threshold       float32
	Limit           int
	IncludeInactive bool
}

// Source is the storage-side surface strategies search over. Stores push
// the heavy work down; strategies only rank and filter.
type Source interface {
	// SearchVector runs a native vector search, scores precomputed by the
	// store. Sources without native support return an Unsupported kind.
	SearchVector(ctx context.Context, agentID string, vec []float32, threshold float32, limit int, includeInactive bool) ([]Match, error)
	// Candidates loads all candidates for an agent for in-memory scoring.
	Candidates(ctx context.Context, agentID string, includeInactive bool) ([]Candidate, error)
	// SearchKeywords returns candidates whose text contains any keyword,
	// case-insensitively.
	SearchKeywords(ctx context.Context, agentID string, keywords []string, includeInactive bool) ([]Candidate, error)
	// HasNativeVector reports whether SearchVector is supported.
	HasNativeVector() bool
}

// Strategy ranks candidates for a query.
type Strategy interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Match, error)
}

// finalize enforces the shared contract: threshold filter, descending score
// order with ties broken by confidence DESC then createdAt ASC, cap at limit.
func finalize(matches []Match, threshold float32, limit int) []Match {
	filtered := matches[:0]
	for _, m := range matches {
		if m.Score >= threshold {
			filtered = append(filtered, m)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		if filtered[i].Confidence != filtered[j].Confidence {
			return filtered[i].Confidence > filtered[j].Confidence
		}
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

// clampScore maps raw similarity into [0,1].
func clampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
