package artisanmatch

import "github.com/craftbridge/artisanmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery       = domain.ErrInvalidQuery
	ErrProfileNotFound    = domain.ErrProfileNotFound
	ErrCatalogUnavailable = domain.ErrCatalogUnavailable
	ErrEmbeddingProvider  = domain.ErrEmbeddingProvider
	ErrVectorDimMismatch  = domain.ErrVectorDimMismatch
)
