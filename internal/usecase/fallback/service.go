// Package fallback implements the deterministic keyword matching path used
// when the embedding provider is unavailable or the vector path fails. It
// needs no external service: scores come from additive weighted checks over
// profile fields, with synonym and fuzzy matching to absorb common query
// phrasing. Ranking follows the same contract as the vector path, so callers
// cannot tell the two apart structurally.
package fallback

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
	"github.com/craftbridge/artisanmatch/internal/domain/match/query"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
	"github.com/craftbridge/artisanmatch/internal/text"
)

// Additive score weights. The exact values matter less than their order:
// profession dominates, then craft attributes, then context fields.
const (
	weightProfessionExact = 0.40
	weightProfessionNear  = 0.35 // substring or synonym
	weightProfessionFuzzy = 0.25
	weightSpecialization  = 0.20
	weightMaterial        = 0.15
	weightTechnique       = 0.15
	weightLocation        = 0.15
	weightSkill           = 0.10
	weightName            = 0.10
	weightDescriptionHit  = 0.05
	maxDescriptionScore   = 0.15

	fuzzyMaxDistance = 2
	fuzzyMinTokenLen = 5
)

// professionSynonyms maps query terms to the professions they imply, so
// "jewelry" finds jewelers without any embedding model.
var professionSynonyms = map[string][]string{
	"jewelry":    {"jeweler", "jeweller", "goldsmith", "silversmith"},
	"jewellery":  {"jeweler", "jeweller", "goldsmith", "silversmith"},
	"pottery":    {"potter", "ceramicist"},
	"ceramics":   {"potter", "ceramicist"},
	"weaving":    {"weaver"},
	"textiles":   {"weaver", "dyer"},
	"carving":    {"carver", "sculptor"},
	"embroidery": {"embroiderer"},
	"leather":    {"leatherworker", "cobbler"},
	"metalwork":  {"blacksmith", "metalsmith"},
	"woodwork":   {"carpenter", "woodworker"},
}

// catalogReader is the slice of the catalog this service needs.
type catalogReader interface {
	QueryProfiles(ctx context.Context, filters filter.Filters) ([]*domain.ArtisanProfile, error)
}

// Service is the keyword matching path.
type Service struct {
	catalog catalogReader
	normCfg text.NormalizerConfig
	logger  *zap.Logger
}

// NewService creates the fallback matcher.
func NewService(catalog catalogReader, normCfg text.NormalizerConfig, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, normCfg: normCfg, logger: logger}
}

// Match scores the candidate pool with deterministic keyword checks and
// returns matches ranked under the shared contract. Same query, same
// catalog, same results.
func (s *Service) Match(ctx context.Context, q *query.Query) (result.Ranked, error) {
	pool, err := s.catalog.QueryProfiles(ctx, q.Filters())
	if err != nil {
		return result.Ranked{}, fmt.Errorf("query candidate pool: %w", err)
	}
	if len(pool) == 0 {
		return result.Ranked{Matches: []result.Match{}}, nil
	}

	tokens := text.Tokenize(q.Text(), s.normCfg)
	if len(tokens) == 0 {
		tokens = strings.Fields(strings.ToLower(q.Text()))
	}

	matches := make([]result.Match, 0, len(pool))
	byID := make(map[string]*domain.ArtisanProfile, len(pool))
	for _, p := range pool {
		byID[p.ID] = p
		if m, ok := scoreProfile(p, tokens); ok {
			matches = append(matches, m)
		}
	}

	final := result.Finalize(matches, func(id string) int {
		if p, ok := byID[id]; ok {
			return p.Quality.Rank()
		}
		return 0
	}, q.MinScore(), q.MaxResults())

	return result.Ranked{Matches: final, PoolSize: len(pool)}, nil
}

// scoreProfile runs the additive checks for one profile. Each check fires at
// most once and appends a human-readable reason.
func scoreProfile(p *domain.ArtisanProfile, tokens []string) (result.Match, bool) {
	var score float64
	reasons := make([]string, 0, 6)
	m := result.Match{ArtisanID: p.ID}

	if w, term := professionScore(p.Profession, tokens); w > 0 {
		score += w
		m.ProfessionMatch = true
		reasons = append(reasons, fmt.Sprintf("profession %q matches %q", p.Profession, term))
	}

	if term := firstListHit(tokens, p.Specializations); term != "" {
		score += weightSpecialization
		reasons = append(reasons, "specializes in "+term)
	}

	if term := firstListHit(tokens, p.Materials); term != "" {
		score += weightMaterial
		m.MaterialMatch = true
		reasons = append(reasons, "works with "+term)
	}

	if term := firstListHit(tokens, p.Techniques); term != "" {
		score += weightTechnique
		m.TechniqueMatch = true
		reasons = append(reasons, "uses "+term)
	}

	if term := firstListHit(tokens, p.Skills); term != "" {
		score += weightSkill
		reasons = append(reasons, "skilled in "+term)
	}

	if tok := firstTokenIn(tokens, p.Location); tok != "" {
		score += weightLocation
		reasons = append(reasons, "located in "+p.Location)
	}

	if tok := firstTokenIn(tokens, p.Name); tok != "" {
		score += weightName
		reasons = append(reasons, "name matches "+tok)
	}

	if w := descriptionScore(p.Description, tokens); w > 0 {
		score += w
		reasons = append(reasons, "description mentions query terms")
	}

	if score == 0 {
		return result.Match{}, false
	}

	m.Score = result.Clamp(score)
	m.Reasons = reasons
	return m, true
}

// professionScore returns the strongest single profession check: exact beats
// substring and synonym, which beat fuzzy.
func professionScore(profession string, tokens []string) (float64, string) {
	prof := strings.ToLower(strings.TrimSpace(profession))
	if prof == "" {
		return 0, ""
	}

	best, bestTerm := 0.0, ""
	record := func(w float64, term string) {
		if w > best {
			best, bestTerm = w, term
		}
	}

	for _, tok := range tokens {
		if tok == prof {
			record(weightProfessionExact, tok)
			continue
		}
		if strings.Contains(prof, tok) || strings.Contains(tok, prof) {
			record(weightProfessionNear, tok)
			continue
		}
		for _, syn := range professionSynonyms[tok] {
			if prof == syn || strings.Contains(prof, syn) {
				record(weightProfessionNear, tok)
			}
		}
		if len(tok) >= fuzzyMinTokenLen && levenshtein(tok, prof) <= fuzzyMaxDistance {
			record(weightProfessionFuzzy, tok)
		}
	}
	return best, bestTerm
}

// descriptionScore counts distinct query tokens appearing in the
// description, capped so long descriptions cannot dominate.
func descriptionScore(description string, tokens []string) float64 {
	desc := strings.ToLower(description)
	if desc == "" {
		return 0
	}
	var score float64
	for _, tok := range tokens {
		if strings.Contains(desc, tok) {
			score += weightDescriptionHit
			if score >= maxDescriptionScore {
				return maxDescriptionScore
			}
		}
	}
	return score
}

// firstListHit returns the first list entry any query token appears in.
func firstListHit(tokens []string, values []string) string {
	for _, v := range values {
		if firstTokenIn(tokens, v) != "" {
			return v
		}
	}
	return ""
}

// firstTokenIn returns the first token contained in target, fold-insensitive.
func firstTokenIn(tokens []string, target string) string {
	lower := strings.ToLower(target)
	if lower == "" {
		return ""
	}
	for _, tok := range tokens {
		if tok != "" && strings.Contains(lower, tok) {
			return tok
		}
	}
	return ""
}
