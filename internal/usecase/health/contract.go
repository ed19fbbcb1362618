package health

import "context"

// CatalogPinger checks catalog store availability.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker probes the embedding provider directly.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// WindowReporter exposes the rolling embedding outcome window maintained by
// the embedding client.
type WindowReporter interface {
	IsHealthy() bool
}
