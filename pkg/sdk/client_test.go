package artisanmatch

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubEmbedder embeds text into a two-axis space: jewelry terms load the
// first axis, pottery terms the second.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, s string) (EmbeddingResult, error) {
	return EmbeddingResult{Embedding: stubVector(s)}, nil
}

func (stubEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	res := BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
		Missing:    make([]bool, len(texts)),
	}
	for i, t := range texts {
		res.Embeddings[i] = stubVector(t)
	}
	return res, nil
}

func stubVector(s string) []float32 {
	var jewel, pot float32
	for _, term := range []string{"silver", "jewelry", "filigree", "gold"} {
		jewel += float32(strings.Count(s, term))
	}
	for _, term := range []string{"clay", "pottery", "terracotta", "wheel"} {
		pot += float32(strings.Count(s, term))
	}
	return []float32{jewel, pot}
}

func seedCatalog(t *testing.T, c *Client) {
	t.Helper()
	profiles := []Profile{
		{
			ID:              "jaipur-jeweler",
			Name:            "Meera Devi",
			Profession:      "jeweler",
			Materials:       []string{"silver", "gold"},
			Techniques:      []string{"filigree"},
			Specializations: []string{"silver jewelry"},
			Description:     "Handcrafted silver jewelry from Jaipur",
			Location:        "Jaipur, Rajasthan",
			ExperienceYears: 12,
			Quality:         "export",
		},
		{
			ID:              "pune-potter",
			Name:            "Ravi Kumbhar",
			Profession:      "potter",
			Materials:       []string{"clay", "terracotta"},
			Techniques:      []string{"wheel throwing"},
			Description:     "Terracotta pottery thrown on the wheel",
			Location:        "Pune, Maharashtra",
			ExperienceYears: 8,
			Quality:         "standard",
		},
	}
	for _, p := range profiles {
		if err := c.Profiles().Upsert(context.Background(), p); err != nil {
			t.Fatalf("upsert %s: %v", p.ID, err)
		}
	}
}

func TestNew_RequiresDriver(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error without a driver")
	}
}

func TestMatch_KeywordPathWithoutEmbedder(t *testing.T) {
	c, err := New(context.Background(), WithMemory())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()
	seedCatalog(t, c)

	resp, err := c.Match(context.Background(), MatchRequest{Query: "silver jewelry jaipur"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if resp.SearchType != "fallback" {
		t.Errorf("expected fallback path, got %q", resp.SearchType)
	}
	if len(resp.Matches) == 0 || resp.Matches[0].ArtisanID != "jaipur-jeweler" {
		t.Fatalf("expected jaipur-jeweler first, got %+v", resp.Matches)
	}
	if resp.Matches[0].Rank != 1 {
		t.Errorf("expected rank 1, got %d", resp.Matches[0].Rank)
	}
	if resp.TotalFound != 2 {
		t.Errorf("expected TotalFound=2 for the full candidate pool, got %d", resp.TotalFound)
	}
}

func TestMatch_VectorPathWithEmbedder(t *testing.T) {
	c, err := New(context.Background(), WithMemory(), WithEmbedder(stubEmbedder{}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()
	seedCatalog(t, c)

	resp, err := c.Match(context.Background(), MatchRequest{Query: "silver jewelry"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if resp.SearchType != "intelligent" {
		t.Errorf("expected intelligent path, got %q", resp.SearchType)
	}
	if len(resp.Matches) == 0 || resp.Matches[0].ArtisanID != "jaipur-jeweler" {
		t.Fatalf("expected jaipur-jeweler first, got %+v", resp.Matches)
	}
}

func TestMatch_EmptyQueryRejected(t *testing.T) {
	c, err := New(context.Background(), WithMemory())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()

	_, err = c.Match(context.Background(), MatchRequest{Query: "   "})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestMatch_FiltersNarrowPool(t *testing.T) {
	c, err := New(context.Background(), WithMemory())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()
	seedCatalog(t, c)

	resp, err := c.Match(context.Background(), MatchRequest{
		Query:   "handcrafted pottery",
		Filters: Filters{Profession: "potter"},
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	for _, m := range resp.Matches {
		if m.ArtisanID != "pune-potter" {
			t.Errorf("filter leaked profile %s", m.ArtisanID)
		}
	}
}

func TestProfiles_CRUD(t *testing.T) {
	c, err := New(context.Background(), WithMemory())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	p := Profile{ID: "p1", Name: "Asha", Profession: "weaver"}
	if err := c.Profiles().Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := c.Profiles().Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Asha" || got.Profession != "weaver" {
		t.Errorf("unexpected profile: %+v", got)
	}

	if err := c.Profiles().Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Profiles().Get(ctx, "p1"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestProfiles_UpsertRejectsInvalid(t *testing.T) {
	c, err := New(context.Background(), WithMemory())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()

	err = c.Profiles().Upsert(context.Background(), Profile{ID: "x"})
	if err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestHealth_MemoryCatalog(t *testing.T) {
	c, err := New(context.Background(), WithMemory())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()

	hs := c.Health(context.Background())
	if hs.Status != "ok" {
		t.Errorf("expected ok, got %q (checks: %v)", hs.Status, hs.Checks)
	}
	if hs.Checks["catalog"] != "ok" {
		t.Errorf("expected catalog ok, got %v", hs.Checks)
	}
}

func TestPing_MemoryCatalog(t *testing.T) {
	c, err := New(context.Background(), WithMemory())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
