package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
// Missing[i] is true when the i-th text could not be embedded; Embeddings[i] is
// nil in that case. A batch with missing items is a partial result, not an error.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	Missing      []bool
	PromptTokens int
	TotalTokens  int
}

// FieldType names the profile field an embedding was generated from.
type FieldType string

// FieldType values.
const (
	FieldComposite      FieldType = "composite"
	FieldDescription    FieldType = "description"
	FieldSpecialization FieldType = "specialization"
	FieldQuery          FieldType = "query"
)

// EmbeddingRecord is a stored vector tied to the content it was generated from.
// The record is valid only while ContentHash matches the hash of the current
// normalized text for the owner's field; a stale record must be regenerated.
type EmbeddingRecord struct {
	OwnerID     string
	FieldType   FieldType
	ContentHash string
	Vector      []float32
	GeneratedAt time.Time
}

// Fresh reports whether the record still matches the given normalized text.
func (r *EmbeddingRecord) Fresh(normalizedText string) bool {
	return r.ContentHash == HashText(normalizedText)
}

// HashText returns the hex sha256 digest used for content-addressed cache keys.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
