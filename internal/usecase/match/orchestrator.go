// Package match orchestrates the two matching paths behind one contract:
// try the vector path when the embedding provider is healthy, degrade to
// deterministic keyword matching on any failure, and always return a ranked
// response rather than an error for provider trouble. Only catalog
// unavailability is fatal.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/query"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
	"github.com/craftbridge/artisanmatch/internal/metrics"
	"github.com/craftbridge/artisanmatch/internal/text"
)

// VectorSearcher is the vector ranking path.
type VectorSearcher interface {
	Search(ctx context.Context, q *query.Query) (result.Ranked, error)
}

// fallbackMatcher is the deterministic keyword path.
type fallbackMatcher interface {
	Match(ctx context.Context, q *query.Query) (result.Ranked, error)
}

// HealthReporter answers the single vector-path eligibility question.
type HealthReporter interface {
	IsHealthy() bool
}

// profileGetter resolves profiles for secondary sort orders.
type profileGetter interface {
	GetProfile(ctx context.Context, id string) (*domain.ArtisanProfile, error)
}

// Options tune the orchestrator.
type Options struct {
	// VectorTimeout bounds the single vector-path attempt. Expiry routes
	// the request to fallback, it does not fail it.
	VectorTimeout time.Duration
}

// Orchestrator routes search requests between the vector and fallback paths.
type Orchestrator struct {
	vector        VectorSearcher
	fallback      fallbackMatcher
	health        HealthReporter
	profiles      profileGetter
	normCfg       text.NormalizerConfig
	vectorTimeout time.Duration
	logger        *zap.Logger
}

// New creates the matching orchestrator.
func New(
	vector VectorSearcher,
	fallback fallbackMatcher,
	health HealthReporter,
	profiles profileGetter,
	normCfg text.NormalizerConfig,
	opts Options,
	log *zap.Logger,
) *Orchestrator {
	if opts.VectorTimeout <= 0 {
		opts.VectorTimeout = 5 * time.Second
	}
	return &Orchestrator{
		vector:        vector,
		fallback:      fallback,
		health:        health,
		profiles:      profiles,
		normCfg:       normCfg,
		vectorTimeout: opts.VectorTimeout,
		logger:        log,
	}
}

// Match runs a search end to end. The query is already validated by
// construction; an invalid request never reaches this method, so no catalog
// or provider call is spent on it. The response always carries the path that
// actually produced it.
func (o *Orchestrator) Match(ctx context.Context, q *query.Query) (*result.Response, error) {
	start := time.Now()
	log := o.logger

	ranked, searchType, err := o.route(ctx, q, log)
	if err != nil {
		metrics.MatchRequestsTotal.WithLabelValues(string(searchType), "error").Inc()
		return nil, err
	}
	matches := ranked.Matches

	if err := o.applySort(ctx, matches, q.SortBy()); err != nil {
		log.Warn("Secondary sort degraded to relevance order", zap.Error(err))
	}

	resp := &result.Response{
		Matches:        matches,
		TotalFound:     ranked.PoolSize,
		ProcessingTime: time.Since(start),
		SearchType:     searchType,
		Confidence:     confidence(matches, searchType),
	}
	if q.Explain() {
		resp.QueryAnalysis = o.analyzeQuery(q)
	}

	metrics.MatchRequestsTotal.WithLabelValues(string(searchType), "ok").Inc()
	metrics.MatchDuration.WithLabelValues(string(searchType)).Observe(time.Since(start).Seconds())

	log.Info("Search completed",
		zap.String("search_type", string(searchType)),
		zap.Int("matches", len(matches)),
		zap.Float64("confidence", resp.Confidence),
		zap.Duration("duration", resp.ProcessingTime),
	)
	return resp, nil
}

// route makes the one health decision and runs at most one vector attempt.
// Vector failure of any kind except catalog loss falls through to keyword
// matching, so the request fails at most once.
func (o *Orchestrator) route(ctx context.Context, q *query.Query, log *zap.Logger) (result.Ranked, result.SearchType, error) {
	if o.health.IsHealthy() {
		vctx, cancel := context.WithTimeout(ctx, o.vectorTimeout)
		ranked, err := o.vector.Search(vctx, q)
		cancel()
		if err == nil {
			return ranked, result.SearchIntelligent, nil
		}
		if errors.Is(err, domain.ErrCatalogUnavailable) {
			return result.Ranked{}, result.SearchIntelligent, fmt.Errorf("vector search: %w", err)
		}
		metrics.MatchFallbacksTotal.Inc()
		log.Warn("Vector path failed, degrading to keyword matching", zap.Error(err))
	} else {
		metrics.MatchFallbacksTotal.Inc()
		log.Debug("Embedding provider unhealthy, using keyword matching")
	}

	ranked, err := o.fallback.Match(ctx, q)
	if err != nil {
		return result.Ranked{}, result.SearchFallback, fmt.Errorf("fallback match: %w", err)
	}
	return ranked, result.SearchFallback, nil
}

// applySort reorders matches for non-relevance sort keys and reassigns
// contiguous ranks. Relevance order is what the paths already produced.
func (o *Orchestrator) applySort(ctx context.Context, matches []result.Match, sortBy query.SortBy) error {
	if sortBy == query.SortRelevance || len(matches) < 2 {
		return nil
	}

	profiles := make(map[string]*domain.ArtisanProfile, len(matches))
	for _, m := range matches {
		p, err := o.profiles.GetProfile(ctx, m.ArtisanID)
		if err != nil {
			return fmt.Errorf("resolve profile %s: %w", m.ArtisanID, err)
		}
		profiles[m.ArtisanID] = p
	}

	less := func(a, b *domain.ArtisanProfile) bool {
		switch sortBy {
		case query.SortRating:
			return a.Rating > b.Rating
		case query.SortExperience:
			return a.ExperienceYears > b.ExperienceYears
		case query.SortLocation:
			return strings.ToLower(a.Location) < strings.ToLower(b.Location)
		case query.SortRecent:
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := profiles[matches[i].ArtisanID], profiles[matches[j].ArtisanID]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return matches[i].Score > matches[j].Score
	})
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return nil
}

// confidence estimates how trustworthy the ranked list is: high top score,
// clear separation within the top results and a reasonably sized list all
// raise it, and the vector path gets a fixed bonus over keyword matching.
func confidence(matches []result.Match, searchType result.SearchType) float64 {
	if len(matches) == 0 {
		return 0
	}

	top := matches[0].Score

	const topK = 5
	last := len(matches) - 1
	if last > topK-1 {
		last = topK - 1
	}
	spread := top - matches[last].Score

	poolFactor := float64(len(matches)) / 10
	if poolFactor > 1 {
		poolFactor = 1
	}

	conf := 0.5*top + 0.2*spread + 0.2*poolFactor
	if searchType == result.SearchIntelligent {
		conf += 0.1
	}
	return result.Clamp(conf)
}

// knownMaterials and craftProfessions back query analysis; detection is
// token-exact and intentionally conservative.
var knownMaterials = map[string]struct{}{
	"silver": {}, "gold": {}, "brass": {}, "copper": {}, "clay": {},
	"silk": {}, "cotton": {}, "wool": {}, "wood": {}, "bamboo": {},
	"jute": {}, "stone": {}, "terracotta": {}, "marble": {}, "leather": {},
	"glass": {},
}

var craftProfessions = map[string]string{
	"jewelry": "jeweler", "jewellery": "jeweler", "jeweler": "jeweler",
	"pottery": "potter", "ceramics": "potter", "potter": "potter",
	"weaving": "weaver", "weaver": "weaver", "textiles": "weaver",
	"carving": "carver", "carver": "carver",
	"embroidery": "embroiderer",
	"metalwork":  "metalsmith", "blacksmith": "blacksmith",
	"woodwork": "carpenter", "carpenter": "carpenter",
}

var knownLocations = map[string]struct{}{
	"jaipur": {}, "jodhpur": {}, "rajasthan": {}, "varanasi": {},
	"lucknow": {}, "kutch": {}, "bhuj": {}, "mysore": {},
	"kanchipuram": {}, "srinagar": {}, "kashmir": {},
}

// analyzeQuery reports how the query text was interpreted.
func (o *Orchestrator) analyzeQuery(q *query.Query) *result.QueryAnalysis {
	tokens := text.Tokenize(q.Text(), o.normCfg)
	analysis := &result.QueryAnalysis{Tokens: tokens}

	for _, tok := range tokens {
		if prof, ok := craftProfessions[tok]; ok && analysis.DetectedProfession == "" {
			analysis.DetectedProfession = prof
		}
		if _, ok := knownMaterials[tok]; ok {
			analysis.DetectedMaterials = append(analysis.DetectedMaterials, tok)
		}
		if _, ok := knownLocations[tok]; ok && analysis.DetectedLocation == "" {
			analysis.DetectedLocation = tok
		}
	}
	return analysis
}
