// Package retrieval implements the vector ranking path: candidate profiles
// are scored by weighted per-field cosine similarity against the query
// embedding, and ranked lists are cached until a profile they mention
// changes.
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/cache"
	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
	"github.com/craftbridge/artisanmatch/internal/domain/match/query"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
	"github.com/craftbridge/artisanmatch/internal/metrics"
	"github.com/craftbridge/artisanmatch/internal/text"
)

// catalogReader is the slice of the catalog this service needs.
type catalogReader interface {
	QueryProfiles(ctx context.Context, filters filter.Filters) ([]*domain.ArtisanProfile, error)
	OnInvalidate(handler func(profileID string))
}

// Embedder is the consumer contract for a single embedding field chain.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// FieldEmbedders groups the per-field embedding chains. Each field keeps its
// own cache namespace so a profile's description vector never collides with
// its composite vector.
type FieldEmbedders struct {
	Query          Embedder
	Composite      Embedder
	Description    Embedder
	Specialization Embedder
}

// Options tune the retrieval service.
type Options struct {
	// ReembedBudget caps how many candidates are scored per request, 0
	// meaning no cap. The candidate pool is ID-ordered, so the cap is
	// deterministic.
	ReembedBudget int
}

// Chunking bounds for long field texts. Chunks of one field are embedded
// separately and mean-pooled back into a single vector per candidate.
const (
	chunkMaxTokens     = 512
	chunkOverlapTokens = 32
)

// Service ranks catalog profiles by semantic similarity to a query.
type Service struct {
	catalog catalogReader
	emb     FieldEmbedders
	pre     *text.Preprocessor
	normCfg text.NormalizerConfig
	results *cache.Cache[result.Ranked]
	budget  int
	logger  *zap.Logger
}

// NewService creates the vector retrieval service and subscribes the result
// cache to catalog invalidation.
func NewService(
	catalog catalogReader,
	emb FieldEmbedders,
	normCfg text.NormalizerConfig,
	results *cache.Cache[result.Ranked],
	opts Options,
	logger *zap.Logger,
) *Service {
	s := &Service{
		catalog: catalog,
		emb:     emb,
		pre:     text.NewPreprocessor(normCfg),
		normCfg: normCfg,
		results: results,
		budget:  opts.ReembedBudget,
		logger:  logger,
	}
	catalog.OnInvalidate(func(profileID string) {
		if n := s.results.InvalidateOwner(profileID); n > 0 {
			s.logger.Debug("Invalidated cached result lists",
				zap.String("profile_id", profileID),
				zap.Int("entries", n),
			)
		}
	})
	return s
}

// scoredField pairs a field weight with the batch embedding of every
// candidate's text for that field.
type scoredField struct {
	weight  float64
	vectors [][]float32 // indexed by candidate, nil when absent
	missing []bool      // true when the embedder could not produce a vector
}

// Search runs the vector path end to end. Identical queries against an
// unchanged catalog return bit-identical ranked lists; any profile change
// invalidates the affected cached lists before the next read.
func (s *Service) Search(ctx context.Context, q *query.Query) (result.Ranked, error) {
	normalized := text.Normalize(q.Text(), s.normCfg)
	if normalized == "" {
		normalized = strings.ToLower(strings.TrimSpace(q.Text()))
	}

	key := s.resultKey(normalized, q)
	if cached, ok := s.results.Get(key); ok {
		metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
		return result.Ranked{
			Matches:  append([]result.Match(nil), cached.Matches...),
			PoolSize: cached.PoolSize,
		}, nil
	}
	metrics.ResultCacheTotal.WithLabelValues("miss").Inc()

	pool, err := s.catalog.QueryProfiles(ctx, q.Filters())
	if err != nil {
		return result.Ranked{}, fmt.Errorf("query candidate pool: %w", err)
	}
	if len(pool) == 0 {
		return result.Ranked{Matches: []result.Match{}}, nil
	}
	if s.budget > 0 && len(pool) > s.budget {
		s.logger.Debug("Candidate pool capped by re-embed budget",
			zap.Int("pool", len(pool)),
			zap.Int("budget", s.budget),
		)
		pool = pool[:s.budget]
	}

	queryRes, err := s.emb.Query.Embed(ctx, normalized)
	if err != nil {
		return result.Ranked{}, fmt.Errorf("embed query: %w", err)
	}

	fields, err := s.embedFields(ctx, pool)
	if err != nil {
		return result.Ranked{}, err
	}

	tokens := text.Tokenize(normalized, s.normCfg)
	matches := make([]result.Match, 0, len(pool))
	for i, profile := range pool {
		m, ok := s.scoreCandidate(profile, queryRes.Embedding, fields, i, tokens, q.Explain())
		if ok {
			matches = append(matches, m)
		}
	}

	byID := make(map[string]*domain.ArtisanProfile, len(pool))
	for _, p := range pool {
		byID[p.ID] = p
	}
	final := result.Finalize(matches, func(id string) int {
		if p, ok := byID[id]; ok {
			return p.Quality.Rank()
		}
		return 0
	}, q.MinScore(), q.MaxResults())

	ranked := result.Ranked{Matches: final, PoolSize: len(pool)}

	owners := make([]string, len(pool))
	for i, p := range pool {
		owners[i] = p.ID
	}
	s.results.SetWithOwners(key, result.Ranked{
		Matches:  append([]result.Match(nil), final...),
		PoolSize: len(pool),
	}, owners...)

	return ranked, nil
}

// embedFields batch-embeds every weighted field across the candidate pool.
// A field whose text is empty for a candidate is simply absent; a field the
// embedder failed on is a gap and marks the candidate partial later. Texts
// over the chunk bound are split sentence-aligned, embedded per chunk, and
// mean-pooled back into one vector.
func (s *Service) embedFields(ctx context.Context, pool []*domain.ArtisanProfile) ([]scoredField, error) {
	weights := text.DefaultFieldWeights()
	fields := make([]scoredField, 0, len(weights))

	for _, fw := range weights {
		emb := s.embedderFor(fw.Field)
		idx := make([]int, 0, len(pool))
		counts := make([]int, 0, len(pool))
		batch := make([]string, 0, len(pool))
		for i, p := range pool {
			fieldText := s.pre.FieldText(p, fw.Field)
			if fieldText == "" {
				continue
			}
			chunks := chunkFieldText(fieldText)
			idx = append(idx, i)
			counts = append(counts, len(chunks))
			batch = append(batch, chunks...)
		}

		sf := scoredField{
			weight:  fw.Weight,
			vectors: make([][]float32, len(pool)),
			missing: make([]bool, len(pool)),
		}
		if len(batch) > 0 {
			res, err := emb.BatchEmbed(ctx, batch)
			if err != nil {
				return nil, fmt.Errorf("embed %s field: %w", fw.Field, err)
			}
			pos := 0
			for j, i := range idx {
				vecs := make([][]float32, 0, counts[j])
				for k := 0; k < counts[j]; k++ {
					at := pos + k
					if at < len(res.Missing) && res.Missing[at] {
						continue
					}
					if at < len(res.Embeddings) && res.Embeddings[at] != nil {
						vecs = append(vecs, res.Embeddings[at])
					}
				}
				pos += counts[j]
				if len(vecs) == 0 {
					sf.missing[i] = true
					continue
				}
				sf.vectors[i] = meanPool(vecs)
			}
		}
		fields = append(fields, sf)
	}

	return fields, nil
}

// chunkFieldText splits an oversized field text into embeddable chunks.
// Texts within the bound pass through whole.
func chunkFieldText(t string) []string {
	if text.EstimateTokens(t) <= chunkMaxTokens {
		return []string{t}
	}
	chunks := text.Chunk(t, chunkMaxTokens, chunkOverlapTokens)
	if len(chunks) == 0 {
		return []string{t}
	}
	return chunks
}

// meanPool averages chunk vectors into one field vector.
func meanPool(vecs [][]float32) []float32 {
	if len(vecs) == 1 {
		return vecs[0]
	}
	out := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		for k := range out {
			if k < len(v) {
				out[k] += v[k]
			}
		}
	}
	inv := float32(1) / float32(len(vecs))
	for k := range out {
		out[k] *= inv
	}
	return out
}

func (s *Service) embedderFor(field domain.FieldType) Embedder {
	switch field {
	case domain.FieldDescription:
		return s.emb.Description
	case domain.FieldSpecialization:
		return s.emb.Specialization
	default:
		return s.emb.Composite
	}
}

// scoreCandidate computes the weighted cosine score for one profile. Weights
// of absent fields are renormalized away; embedder gaps mark the match
// partial. A candidate with no comparable field at all is dropped.
func (s *Service) scoreCandidate(
	profile *domain.ArtisanProfile,
	queryVec []float32,
	fields []scoredField,
	i int,
	tokens []string,
	explain bool,
) (result.Match, bool) {
	var weighted, weightSum float64
	partial := false
	var explParts []string

	for f := range fields {
		if fields[f].missing[i] {
			partial = true
			continue
		}
		vec := fields[f].vectors[i]
		if vec == nil {
			continue
		}
		sim, err := Cosine(queryVec, vec)
		if err != nil {
			s.logger.Warn("Skipping incomparable field vector",
				zap.String("profile_id", profile.ID),
				zap.Error(err),
			)
			partial = true
			continue
		}
		weighted += fields[f].weight * sim
		weightSum += fields[f].weight
		if explain {
			explParts = append(explParts, fmt.Sprintf("w=%.1f cos=%.3f", fields[f].weight, sim))
		}
	}
	if weightSum == 0 {
		return result.Match{}, false
	}

	score := result.Clamp(weighted / weightSum)

	m := result.Match{
		ArtisanID:       profile.ID,
		Score:           score,
		Partial:         partial,
		ProfessionMatch: anyTokenIn(tokens, profile.Profession),
		MaterialMatch:   anyTokenOverlap(tokens, profile.Materials),
		TechniqueMatch:  anyTokenOverlap(tokens, profile.Techniques),
	}
	m.Reasons = s.reasons(&m)
	if explain {
		m.Explanation = strings.Join(explParts, ", ")
	}
	return m, true
}

func (s *Service) reasons(m *result.Match) []string {
	reasons := make([]string, 0, 4)
	switch {
	case m.Score >= 0.75:
		reasons = append(reasons, "strong semantic similarity")
	case m.Score >= 0.5:
		reasons = append(reasons, "good semantic similarity")
	default:
		reasons = append(reasons, "related craft profile")
	}
	if m.ProfessionMatch {
		reasons = append(reasons, "profession matches query")
	}
	if m.MaterialMatch {
		reasons = append(reasons, "works with queried materials")
	}
	if m.TechniqueMatch {
		reasons = append(reasons, "uses queried techniques")
	}
	if m.Partial {
		reasons = append(reasons, "scored on partial profile data")
	}
	return reasons
}

// resultKey builds a cache key covering every input that shapes the ranked
// list.
func (s *Service) resultKey(normalized string, q *query.Query) string {
	filters := q.Filters()
	raw := strings.Join([]string{
		normalized,
		filters.Key(),
		strconv.Itoa(q.MaxResults()),
		strconv.FormatFloat(q.MinScore(), 'f', -1, 64),
	}, "|")
	return "res:" + domain.HashText(raw)
}

func anyTokenIn(tokens []string, target string) bool {
	lower := strings.ToLower(target)
	for _, tok := range tokens {
		if tok != "" && strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func anyTokenOverlap(tokens []string, targets []string) bool {
	for _, target := range targets {
		if anyTokenIn(tokens, target) {
			return true
		}
	}
	return false
}
