package health

import "context"

// Status is the aggregated service health.
type Status string

// Status values. The catalog is the only hard dependency: without it no
// matching path can serve, so its loss is Unhealthy. Embedding trouble only
// degrades the service because keyword matching keeps working.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is an individual component outcome.
type CheckResult string

// CheckResult values.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report aggregates component health.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across the catalog and the embedding
// provider.
type Service struct {
	catalog   CatalogPinger
	embedding EmbeddingChecker
	window    WindowReporter
}

// New creates a Service. embedding and window may be nil when the vector
// path is not configured.
func New(catalog CatalogPinger, embedding EmbeddingChecker, window WindowReporter) *Service {
	return &Service{catalog: catalog, embedding: embedding, window: window}
}

// Check probes every component and aggregates the outcome.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	catalogOK := true
	if err := s.catalog.Ping(ctx); err != nil {
		checks["catalog"] = CheckError
		catalogOK = false
	} else {
		checks["catalog"] = CheckOK
	}

	embeddingOK := true
	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding_provider"] = CheckError
			embeddingOK = false
		} else {
			checks["embedding_provider"] = CheckOK
		}
	}
	if s.window != nil {
		if s.window.IsHealthy() {
			checks["embedding_window"] = CheckOK
		} else {
			checks["embedding_window"] = CheckError
			embeddingOK = false
		}
	}

	switch {
	case !catalogOK:
		return Report{Status: Unhealthy, Checks: checks}
	case !embeddingOK:
		return Report{Status: Degraded, Checks: checks}
	default:
		return Report{Status: Healthy, Checks: checks}
	}
}
