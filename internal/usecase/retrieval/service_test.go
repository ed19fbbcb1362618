package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/cache"
	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
	"github.com/craftbridge/artisanmatch/internal/domain/match/query"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
	"github.com/craftbridge/artisanmatch/internal/text"
)

// mockCatalog serves a fixed pool and exposes its invalidation handlers.
type mockCatalog struct {
	pool     []*domain.ArtisanProfile
	err      error
	handlers []func(string)
}

func (m *mockCatalog) QueryProfiles(ctx context.Context, filters filter.Filters) ([]*domain.ArtisanProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.pool, nil
}

func (m *mockCatalog) OnInvalidate(h func(string)) {
	m.handlers = append(m.handlers, h)
}

func (m *mockCatalog) invalidate(id string) {
	for _, h := range m.handlers {
		h(id)
	}
}

// axisEmbedder embeds text into a two-axis space: jewelry terms load the
// first axis, pottery terms the second. Similar texts get similar vectors.
type axisEmbedder struct {
	mu         sync.Mutex
	calls      int
	err        error
	allMissing bool
}

func axisVector(s string) []float32 {
	var jewel, pot float32
	for _, term := range []string{"silver", "jewelry", "filigree", "gold"} {
		jewel += float32(strings.Count(s, term))
	}
	for _, term := range []string{"clay", "pottery", "terracotta", "wheel"} {
		pot += float32(strings.Count(s, term))
	}
	return []float32{jewel, pot}
}

func (e *axisEmbedder) Embed(ctx context.Context, s string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: axisVector(s)}, nil
}

func (e *axisEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	res := domain.BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
		Missing:    make([]bool, len(texts)),
	}
	for i, t := range texts {
		if e.allMissing {
			res.Missing[i] = true
			continue
		}
		res.Embeddings[i] = axisVector(t)
	}
	return res, nil
}

func (e *axisEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func testPool() []*domain.ArtisanProfile {
	return []*domain.ArtisanProfile{
		{
			ID:              "a1",
			Name:            "Ravi",
			Profession:      "jeweler",
			Materials:       []string{"silver"},
			Techniques:      []string{"filigree"},
			Specializations: []string{"silver filigree jewelry"},
			Description:     "handmade silver jewelry with fine filigree work",
			Quality:         domain.QualityPremium,
		},
		{
			ID:          "b1",
			Name:        "Meera",
			Profession:  "potter",
			Materials:   []string{"clay"},
			Techniques:  []string{"wheel throwing"},
			Description: "terracotta pottery thrown on the wheel",
			Quality:     domain.QualityStandard,
		},
	}
}

func newTestService(catalog *mockCatalog, emb Embedder, opts Options) *Service {
	return NewService(
		catalog,
		FieldEmbedders{Query: emb, Composite: emb, Description: emb, Specialization: emb},
		text.DefaultNormalizerConfig(),
		cache.New[result.Ranked](64, time.Minute),
		opts,
		zap.NewNop(),
	)
}

func mustQuery(t *testing.T, textArg string) query.Query {
	t.Helper()
	q, err := query.New(textArg, filter.Filters{}, 0, 0, "", false)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func TestSearchRanksBySimilarity(t *testing.T) {
	emb := &axisEmbedder{}
	svc := newTestService(&mockCatalog{pool: testPool()}, emb, Options{})

	q := mustQuery(t, "silver filigree jewelry")
	ranked, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	matches := ranked.Matches
	if len(matches) != 1 {
		t.Fatalf("expected only the jeweler above min score, got %d matches", len(matches))
	}
	if ranked.PoolSize != 2 {
		t.Errorf("expected pool size 2 before score cuts, got %d", ranked.PoolSize)
	}
	m := matches[0]
	if m.ArtisanID != "a1" {
		t.Errorf("expected a1 first, got %s", m.ArtisanID)
	}
	if m.Rank != 1 {
		t.Errorf("expected rank 1, got %d", m.Rank)
	}
	if m.Score <= 0 || m.Score > 1 {
		t.Errorf("score out of range: %v", m.Score)
	}
	if !m.MaterialMatch {
		t.Error("expected material match for silver")
	}
	if !m.TechniqueMatch {
		t.Error("expected technique match for filigree")
	}
	if len(m.Reasons) == 0 {
		t.Error("expected at least one match reason")
	}
}

func TestSearchIsDeterministicAndCached(t *testing.T) {
	emb := &axisEmbedder{}
	svc := newTestService(&mockCatalog{pool: testPool()}, emb, Options{})
	q := mustQuery(t, "silver jewelry")

	first, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}
	callsAfterFirst := emb.callCount()

	second, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}

	if emb.callCount() != callsAfterFirst {
		t.Error("second identical search should be served from cache without embedding")
	}
	if first.PoolSize != second.PoolSize {
		t.Errorf("pool size differs between identical searches: %d vs %d", first.PoolSize, second.PoolSize)
	}
	if len(first.Matches) != len(second.Matches) {
		t.Fatalf("result sets differ in size: %d vs %d", len(first.Matches), len(second.Matches))
	}
	for i := range first.Matches {
		if first.Matches[i].ArtisanID != second.Matches[i].ArtisanID || first.Matches[i].Score != second.Matches[i].Score || first.Matches[i].Rank != second.Matches[i].Rank {
			t.Errorf("result %d differs between identical searches: %+v vs %+v", i, first.Matches[i], second.Matches[i])
		}
	}
}

func TestSearchProfileChangeInvalidatesCache(t *testing.T) {
	emb := &axisEmbedder{}
	catalog := &mockCatalog{pool: testPool()}
	svc := newTestService(catalog, emb, Options{})
	q := mustQuery(t, "silver jewelry")

	if _, err := svc.Search(context.Background(), &q); err != nil {
		t.Fatalf("Search: %v", err)
	}
	callsAfterFirst := emb.callCount()

	catalog.invalidate("a1")

	if _, err := svc.Search(context.Background(), &q); err != nil {
		t.Fatalf("Search after invalidation: %v", err)
	}
	if emb.callCount() == callsAfterFirst {
		t.Error("expected re-embedding after profile invalidation")
	}
}

func TestSearchEmbedderGapMarksPartial(t *testing.T) {
	queryEmb := &axisEmbedder{}
	gapped := &axisEmbedder{allMissing: true}
	svc := NewService(
		&mockCatalog{pool: testPool()},
		FieldEmbedders{Query: queryEmb, Composite: queryEmb, Description: gapped, Specialization: queryEmb},
		text.DefaultNormalizerConfig(),
		cache.New[result.Ranked](64, time.Minute),
		Options{},
		zap.NewNop(),
	)

	q := mustQuery(t, "silver filigree jewelry")
	ranked, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ranked.Matches) == 0 {
		t.Fatal("expected matches despite description gap")
	}
	for _, m := range ranked.Matches {
		if !m.Partial {
			t.Errorf("match %s should be flagged partial", m.ArtisanID)
		}
	}
}

// recordingEmbedder wraps the axis embedder and keeps every batch it saw.
type recordingEmbedder struct {
	axisEmbedder
	batchSizes []int
}

func (e *recordingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.mu.Lock()
	e.batchSizes = append(e.batchSizes, len(texts))
	e.mu.Unlock()
	return e.axisEmbedder.BatchEmbed(ctx, texts)
}

func TestSearchChunksLongDescriptions(t *testing.T) {
	// One candidate with a description far past the chunk bound: the
	// description field must reach the embedder as several chunks, and the
	// candidate still scores through the pooled vector.
	longDesc := strings.Repeat("handmade silver jewelry with fine filigree work in traditional rajasthani style. ", 80)
	pool := []*domain.ArtisanProfile{{
		ID:          "a1",
		Profession:  "jeweler",
		Materials:   []string{"silver"},
		Description: longDesc,
	}}

	descEmb := &recordingEmbedder{}
	other := &axisEmbedder{}
	svc := NewService(
		&mockCatalog{pool: pool},
		FieldEmbedders{Query: other, Composite: other, Description: descEmb, Specialization: other},
		text.DefaultNormalizerConfig(),
		cache.New[result.Ranked](64, time.Minute),
		Options{},
		zap.NewNop(),
	)

	q := mustQuery(t, "silver filigree jewelry")
	ranked, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(descEmb.batchSizes) != 1 || descEmb.batchSizes[0] < 2 {
		t.Fatalf("expected one description batch of several chunks, got %v", descEmb.batchSizes)
	}
	if len(ranked.Matches) != 1 || ranked.Matches[0].ArtisanID != "a1" {
		t.Fatalf("expected the jeweler to score through pooled chunk vectors, got %+v", ranked.Matches)
	}
	if ranked.Matches[0].Partial {
		t.Error("chunked embedding must not mark the match partial")
	}
}

func TestSearchQueryEmbedFailurePropagates(t *testing.T) {
	emb := &axisEmbedder{err: errors.New("provider down")}
	svc := newTestService(&mockCatalog{pool: testPool()}, emb, Options{})

	q := mustQuery(t, "silver jewelry")
	if _, err := svc.Search(context.Background(), &q); err == nil {
		t.Fatal("expected error when query embedding fails")
	}
}

func TestSearchCatalogFailurePropagates(t *testing.T) {
	emb := &axisEmbedder{}
	svc := newTestService(&mockCatalog{err: domain.ErrCatalogUnavailable}, emb, Options{})

	q := mustQuery(t, "silver jewelry")
	_, err := svc.Search(context.Background(), &q)
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestSearchEmptyPool(t *testing.T) {
	emb := &axisEmbedder{}
	svc := newTestService(&mockCatalog{}, emb, Options{})

	q := mustQuery(t, "silver jewelry")
	ranked, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ranked.Matches) != 0 {
		t.Errorf("expected no matches for empty pool, got %d", len(ranked.Matches))
	}
	if ranked.PoolSize != 0 {
		t.Errorf("expected zero pool size, got %d", ranked.PoolSize)
	}
}

func TestSearchReembedBudgetCapsPool(t *testing.T) {
	emb := &axisEmbedder{}
	svc := newTestService(&mockCatalog{pool: testPool()}, emb, Options{ReembedBudget: 1})

	// Budget 1 keeps only the first ID-ordered candidate, the jeweler.
	q := mustQuery(t, "silver jewelry")
	ranked, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, m := range ranked.Matches {
		if m.ArtisanID == "b1" {
			t.Error("candidate outside the budget cap should not be scored")
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Cosine: %v", err)
			}
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}
