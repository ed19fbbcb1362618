package retrieval

import (
	"fmt"
	"math"

	"github.com/craftbridge/artisanmatch/internal/domain"
)

// Cosine returns the cosine similarity of two vectors. A zero vector has no
// direction and yields 0. Vectors of different dimensionality come from
// different models and cannot be compared.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine: %d vs %d: %w", len(a), len(b), domain.ErrVectorDimMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
