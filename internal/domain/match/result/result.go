// Package result defines the unified match output shared by the vector and
// fallback paths, and the ranking rules that keep the two interchangeable.
package result

import (
	"sort"
	"time"
)

// SearchType names the path that produced a result set.
type SearchType string

// SearchType values.
const (
	SearchIntelligent SearchType = "intelligent"
	SearchFallback    SearchType = "fallback"
)

// Match is a single ranked hit against an artisan profile.
type Match struct {
	ArtisanID string   `json:"artisanId"`
	Score     float64  `json:"relevanceScore"`
	Rank      int      `json:"rank"`
	Reasons   []string `json:"matchReasons"`

	ProfessionMatch bool `json:"professionMatch"`
	MaterialMatch   bool `json:"materialMatch"`
	TechniqueMatch  bool `json:"techniqueMatch"`

	// Partial marks a candidate scored on an incomplete set of field
	// embeddings; its score carries reduced confidence.
	Partial bool `json:"partial,omitempty"`

	Explanation string `json:"explanation,omitempty"`
}

// QueryAnalysis describes how the query text was interpreted.
type QueryAnalysis struct {
	Tokens             []string `json:"tokens"`
	DetectedProfession string   `json:"detectedProfession,omitempty"`
	DetectedMaterials  []string `json:"detectedMaterials,omitempty"`
	DetectedLocation   string   `json:"detectedLocation,omitempty"`
}

// Ranked pairs a finalized match list with the size of the candidate pool
// it was drawn from, before minimum-score and truncation cuts. The response
// reports the pool size as totalFound, not the surviving match count.
type Ranked struct {
	Matches  []Match
	PoolSize int
}

// Response is the full search response.
type Response struct {
	Matches        []Match        `json:"matches"`
	TotalFound     int            `json:"totalFound"`
	ProcessingTime time.Duration  `json:"processingTime"`
	SearchType     SearchType     `json:"searchType"`
	Confidence     float64        `json:"confidence"`
	QueryAnalysis  *QueryAnalysis `json:"queryAnalysis,omitempty"`
}

// Finalize applies the shared ranking contract to scored matches:
// drop below minScore, sort by score desc with ties broken by quality rank
// (higher first) then artisan ID (ascending), truncate to maxResults, and
// assign contiguous ranks starting at 1. qualityRank may be nil when no
// quality information is available.
func Finalize(matches []Match, qualityRank func(artisanID string) int, minScore float64, maxResults int) []Match {
	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= minScore {
			kept = append(kept, m)
		}
	}

	rank := func(id string) int {
		if qualityRank == nil {
			return 0
		}
		return qualityRank(id)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		qi, qj := rank(kept[i].ArtisanID), rank(kept[j].ArtisanID)
		if qi != qj {
			return qi > qj
		}
		return kept[i].ArtisanID < kept[j].ArtisanID
	})

	if maxResults > 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}

	for i := range kept {
		kept[i].Rank = i + 1
	}
	return kept
}

// Clamp clips a score into [0,1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
