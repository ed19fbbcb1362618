package artisanmatch

import "context"

// Embedder converts text to vector embeddings.
// Optional; without one every request is served by keyword matching.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single provider call.
// Optional. If the provided Embedder also implements BatchEmbedder, field
// embedding uses it for significantly better throughput.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker probes the provider directly. Optional. If the provided
// Embedder implements it, Health() includes a live provider check.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate
// token usage. Missing flags items the provider could not vectorize.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	Missing      []bool
	PromptTokens int
	TotalTokens  int
}
