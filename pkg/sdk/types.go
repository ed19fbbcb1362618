package artisanmatch

import (
	"time"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
)

// Profile is an artisan catalog entry.
// ID, Name, and Profession are required; everything else is optional.
type Profile struct {
	ID         string
	Name       string
	Profession string

	Materials       []string
	Techniques      []string
	Skills          []string
	Specializations []string
	Description     string
	Location        string

	ExperienceYears int
	Availability    string // "available", "busy", "unavailable"
	Quality         string // "standard", "premium", "export"
	BusinessSize    int
	Rating          float64
	UpdatedAt       time.Time
}

func (p Profile) toDomain() *domain.ArtisanProfile {
	return &domain.ArtisanProfile{
		ID:              p.ID,
		Name:            p.Name,
		Profession:      p.Profession,
		Materials:       p.Materials,
		Techniques:      p.Techniques,
		Skills:          p.Skills,
		Specializations: p.Specializations,
		Description:     p.Description,
		Location:        p.Location,
		ExperienceYears: p.ExperienceYears,
		Availability:    domain.Availability(p.Availability),
		Quality:         domain.QualityLevel(p.Quality),
		BusinessSize:    p.BusinessSize,
		Rating:          p.Rating,
		UpdatedAt:       p.UpdatedAt,
	}
}

func profileFromDomain(p *domain.ArtisanProfile) Profile {
	return Profile{
		ID:              p.ID,
		Name:            p.Name,
		Profession:      p.Profession,
		Materials:       p.Materials,
		Techniques:      p.Techniques,
		Skills:          p.Skills,
		Specializations: p.Specializations,
		Description:     p.Description,
		Location:        p.Location,
		ExperienceYears: p.ExperienceYears,
		Availability:    string(p.Availability),
		Quality:         string(p.Quality),
		BusinessSize:    p.BusinessSize,
		Rating:          p.Rating,
		UpdatedAt:       p.UpdatedAt,
	}
}

// Filters narrows the candidate pool by structured profile attributes
// before any relevance scoring. The zero value matches every profile.
type Filters struct {
	Profession   string
	Materials    []string
	Techniques   []string
	Location     string
	MinYears     int
	Availability string
	Quality      string
}

func (f Filters) toDomain() filter.Filters {
	return filter.Filters{
		Profession:   f.Profession,
		Materials:    f.Materials,
		Techniques:   f.Techniques,
		Location:     f.Location,
		MinYears:     f.MinYears,
		Availability: domain.Availability(f.Availability),
		Quality:      domain.QualityLevel(f.Quality),
	}
}

// MatchRequest describes one search.
// Query is required. Zero values take the engine defaults: MaxResults=20
// (cap 50), MinScore=0.2, SortBy "relevance".
type MatchRequest struct {
	Query      string
	Filters    Filters
	MaxResults int
	MinScore   float64
	SortBy     string // "relevance", "rating", "experience", "location", "recent"
	Explain    bool
}

// Match is one ranked result.
type Match struct {
	ArtisanID string
	Score     float64
	Rank      int
	Reasons   []string

	ProfessionMatch bool
	MaterialMatch   bool
	TechniqueMatch  bool

	// Partial marks a candidate scored on an incomplete set of field
	// embeddings; its score carries reduced confidence.
	Partial bool

	Explanation string
}

// QueryAnalysis describes how the query text was interpreted.
// Populated only when MatchRequest.Explain is set.
type QueryAnalysis struct {
	Tokens             []string
	DetectedProfession string
	DetectedMaterials  []string
	DetectedLocation   string
}

// MatchResponse is the full ranked response. SearchType reports the path
// that actually produced it: "intelligent" or "fallback". TotalFound is the
// candidate pool size before score and truncation cuts.
type MatchResponse struct {
	Matches        []Match
	TotalFound     int
	ProcessingTime time.Duration
	SearchType     string
	Confidence     float64
	QueryAnalysis  *QueryAnalysis
}

func responseFromDomain(r *result.Response) MatchResponse {
	matches := make([]Match, len(r.Matches))
	for i, m := range r.Matches {
		matches[i] = Match{
			ArtisanID:       m.ArtisanID,
			Score:           m.Score,
			Rank:            m.Rank,
			Reasons:         m.Reasons,
			ProfessionMatch: m.ProfessionMatch,
			MaterialMatch:   m.MaterialMatch,
			TechniqueMatch:  m.TechniqueMatch,
			Partial:         m.Partial,
			Explanation:     m.Explanation,
		}
	}
	resp := MatchResponse{
		Matches:        matches,
		TotalFound:     r.TotalFound,
		ProcessingTime: r.ProcessingTime,
		SearchType:     string(r.SearchType),
		Confidence:     r.Confidence,
	}
	if r.QueryAnalysis != nil {
		resp.QueryAnalysis = &QueryAnalysis{
			Tokens:             r.QueryAnalysis.Tokens,
			DetectedProfession: r.QueryAnalysis.DetectedProfession,
			DetectedMaterials:  r.QueryAnalysis.DetectedMaterials,
			DetectedLocation:   r.QueryAnalysis.DetectedLocation,
		}
	}
	return resp
}
