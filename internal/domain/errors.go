package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrProfileNotFound signals a missing artisan profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrCatalogUnavailable signals that the catalog store cannot serve the request.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrEmbeddingProvider signals an embedding provider failure (timeout, quota, auth, transport).
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrEmbeddingUnhealthy signals that the provider is currently considered down.
	ErrEmbeddingUnhealthy = errors.New("embedding provider unhealthy")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
