// Package query defines the validated search query value object.
package query

import (
	"fmt"
	"strings"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
)

// Search parameter limits.
const (
	MaxQueryLength    = 1024
	DefaultMaxResults = 20
	MaxResultsCap     = 50
	DefaultMinScore   = 0.2
)

// SortBy selects the final ordering of returned matches.
type SortBy string

// SortBy values.
const (
	SortRelevance  SortBy = "relevance"
	SortRating     SortBy = "rating"
	SortExperience SortBy = "experience"
	SortLocation   SortBy = "location"
	SortRecent     SortBy = "recent"
)

// IsValid reports whether the sort order is known.
func (s SortBy) IsValid() bool {
	switch s {
	case SortRelevance, SortRating, SortExperience, SortLocation, SortRecent:
		return true
	}
	return false
}

// Query is a validated search query.
type Query struct {
	text       string
	filters    filter.Filters
	maxResults int
	minScore   float64
	sortBy     SortBy
	explain    bool
}

// New validates and normalizes search parameters.
// Empty or whitespace-only text is rejected with domain.ErrInvalidQuery before
// any catalog or provider call is made. Defaults: maxResults=20 (cap 50),
// minScore=0.2, sortBy=relevance.
func New(
	text string,
	filters filter.Filters,
	maxResults int,
	minScore float64,
	sortBy SortBy,
	explain bool,
) (Query, error) {
	if strings.TrimSpace(text) == "" {
		return Query{}, fmt.Errorf("%w: query text is empty", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxResultsCap {
		maxResults = MaxResultsCap
	}
	if minScore < 0 || minScore > 1 {
		return Query{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidQuery)
	}
	if minScore == 0 {
		minScore = DefaultMinScore
	}
	if sortBy == "" {
		sortBy = SortRelevance
	}
	if !sortBy.IsValid() {
		return Query{}, fmt.Errorf("%w: invalid sort_by %q", domain.ErrInvalidQuery, sortBy)
	}

	return Query{
		text:       text,
		filters:    filters,
		maxResults: maxResults,
		minScore:   minScore,
		sortBy:     sortBy,
		explain:    explain,
	}, nil
}

// Text returns the raw query text.
func (q *Query) Text() string { return q.text }

// Filters returns the structured pre-filter.
func (q *Query) Filters() filter.Filters { return q.filters }

// MaxResults returns the maximum number of matches to return.
func (q *Query) MaxResults() int { return q.maxResults }

// MinScore returns the minimum relevance threshold.
func (q *Query) MinScore() float64 { return q.minScore }

// SortBy returns the requested result ordering.
func (q *Query) SortBy() SortBy { return q.sortBy }

// Explain reports whether per-match explanations were requested.
func (q *Query) Explain() bool { return q.explain }
