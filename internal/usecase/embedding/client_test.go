package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/domain"
)

// mockProvider embeds each text as a one-element vector holding its length,
// so tests can verify order without depending on call scheduling.
type mockProvider struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	batchSizes []int
	failTexts  map[string]int // text -> remaining failures
	failAll    bool
}

func (m *mockProvider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.failAll {
		return domain.EmbeddingResult{}, errors.New("provider down")
	}
	if n, ok := m.failTexts[text]; ok && n > 0 {
		m.failTexts[text] = n - 1
		return domain.EmbeddingResult{}, errors.New("transient")
	}
	return domain.EmbeddingResult{
		Embedding:   []float32{float32(len(text))},
		TotalTokens: len(text),
	}, nil
}

func (m *mockProvider) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.failAll {
		return domain.BatchEmbeddingResult{}, errors.New("provider down")
	}
	for _, text := range texts {
		if n, ok := m.failTexts[text]; ok && n > 0 {
			m.failTexts[text] = n - 1
			return domain.BatchEmbeddingResult{}, errors.New("transient")
		}
	}
	res := domain.BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
		Missing:    make([]bool, len(texts)),
	}
	for i, text := range texts {
		res.Embeddings[i] = []float32{float32(len(text))}
		res.TotalTokens += len(text)
	}
	return res, nil
}

func newTestClient(t *testing.T, provider Provider) (*Client, *Tracker) {
	t.Helper()
	tracker := NewTracker(20, 0.5)
	client, err := NewClient(provider, tracker, Options{
		MaxBatchSize: 2,
		Workers:      2,
		RetryDelay:   time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Close)
	return client, tracker
}

func TestBatchEmbedSplitsAndPreservesOrder(t *testing.T) {
	provider := &mockProvider{}
	client, tracker := newTestClient(t, provider)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	res, err := client.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}

	if len(res.Embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}
	for i, text := range texts {
		if res.Missing[i] {
			t.Errorf("text %q unexpectedly missing", text)
		}
		if got := res.Embeddings[i][0]; got != float32(len(text)) {
			t.Errorf("embedding for %q out of order: got %v, want %v", text, got, float32(len(text)))
		}
	}

	provider.mu.Lock()
	calls, sizes := provider.batchCalls, append([]int(nil), provider.batchSizes...)
	provider.mu.Unlock()
	if calls != 3 {
		t.Errorf("expected 3 sub-batches for 5 texts at max 2, got %d (%v)", calls, sizes)
	}
	for _, size := range sizes {
		if size > 2 {
			t.Errorf("sub-batch size %d exceeds max 2", size)
		}
	}

	if !tracker.IsHealthy() {
		t.Error("expected tracker healthy after successful batch")
	}
}

func TestBatchEmbedFlagsFailedSubBatch(t *testing.T) {
	// "ccc" fails on both the first attempt and the retry; its whole
	// sub-batch comes back missing while the rest succeeds.
	provider := &mockProvider{failTexts: map[string]int{"ccc": 2}}
	client, _ := newTestClient(t, provider)

	texts := []string{"a", "bb", "ccc", "dddd"}
	res, err := client.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}

	if res.Missing[0] || res.Missing[1] {
		t.Error("healthy sub-batch should not be flagged missing")
	}
	if !res.Missing[2] || !res.Missing[3] {
		t.Errorf("expected sub-batch of %q flagged missing, got %v", "ccc", res.Missing)
	}
	if res.Embeddings[2] != nil || res.Embeddings[3] != nil {
		t.Error("missing items must have nil embeddings")
	}
}

func TestBatchEmbedRetryRecoversTransientFailure(t *testing.T) {
	provider := &mockProvider{failTexts: map[string]int{"bb": 1}}
	client, _ := newTestClient(t, provider)

	res, err := client.BatchEmbed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	for i, m := range res.Missing {
		if m {
			t.Errorf("item %d missing after successful retry", i)
		}
	}

	provider.mu.Lock()
	calls := provider.batchCalls
	provider.mu.Unlock()
	if calls != 2 {
		t.Errorf("expected 2 provider calls (initial + retry), got %d", calls)
	}
}

func TestBatchEmbedAllFailedIsError(t *testing.T) {
	provider := &mockProvider{failAll: true}
	client, tracker := newTestClient(t, provider)

	_, err := client.BatchEmbed(context.Background(), []string{"a", "bb", "ccc"})
	if err == nil {
		t.Fatal("expected error when every sub-batch fails")
	}
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}
	if tracker.IsHealthy() {
		t.Error("expected tracker unhealthy after total failure")
	}
}

func TestBatchEmbedEmptyInput(t *testing.T) {
	client, _ := newTestClient(t, &mockProvider{})
	res, err := client.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchEmbed(nil): %v", err)
	}
	if len(res.Embeddings) != 0 {
		t.Errorf("expected empty result, got %d embeddings", len(res.Embeddings))
	}
}

func TestEmbedRetriesOnceThenFails(t *testing.T) {
	provider := &mockProvider{failAll: true}
	client, tracker := newTestClient(t, provider)

	_, err := client.Embed(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "provider down") {
		t.Errorf("expected wrapped provider error, got %v", err)
	}

	provider.mu.Lock()
	calls := provider.embedCalls
	provider.mu.Unlock()
	if calls != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", calls)
	}
	if tracker.IsHealthy() {
		t.Error("expected tracker unhealthy after repeated failures")
	}
}

func TestEmbedCancelledContextSkipsRetry(t *testing.T) {
	provider := &mockProvider{failAll: true}
	client, _ := newTestClient(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Embed(ctx, "anything")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}

	provider.mu.Lock()
	calls := provider.embedCalls
	provider.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected no retry on cancelled context, got %d calls", calls)
	}
}
