package domain

import "time"

// FilterOptions narrows queries over memories and beliefs. The zero value
// matches everything active; set IncludeInactive to widen.
type FilterOptions struct {
	AgentID               string         `json:"agent_id,omitempty"`
	Category              string         `json:"category,omitempty"`
	Since                 *time.Time     `json:"since,omitempty"`
	Until                 *time.Time     `json:"until,omitempty"`
	Source                string         `json:"source,omitempty"`
	MinRelevanceScore     *float32       `json:"min_relevance_score,omitempty"`
	MaxRelevanceScore     *float32       `json:"max_relevance_score,omitempty"`
	Tags                  []string       `json:"tags,omitempty"`
	IncludeInactive       bool           `json:"include_inactive,omitempty"`
	MinCategoryConfidence *float32       `json:"min_category_confidence,omitempty"`
	ExcludeConflicted     bool           `json:"exclude_conflicted,omitempty"`
	MinAccessCount        *int           `json:"min_access_count,omitempty"`
	MaxAgeSeconds         *int64         `json:"max_age_seconds,omitempty"`
	CustomFilters         map[string]any `json:"custom_filters,omitempty"`
}
