// Package chi implements the HTTP API: search, health, and metrics. Handlers
// only validate and translate; every domain error maps to a stable JSON
// error code through the handler chain.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
	"github.com/craftbridge/artisanmatch/internal/domain/match/query"
	"github.com/craftbridge/artisanmatch/internal/domain/match/result"
	logpkg "github.com/craftbridge/artisanmatch/internal/logger"
	healthuc "github.com/craftbridge/artisanmatch/internal/usecase/health"
)

// errorCode is the machine-readable error identifier in API responses.
type errorCode string

// API error codes.
const (
	codeBadRequest         errorCode = "bad_request"
	codeInvalidQuery       errorCode = "invalid_query"
	codeProfileNotFound    errorCode = "profile_not_found"
	codeCatalogUnavailable errorCode = "catalog_unavailable"
	codeEmbeddingProvider  errorCode = "embedding_provider_error"
	codeInternalError      errorCode = "internal_error"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// matcher runs a validated search.
type matcher interface {
	Match(ctx context.Context, q *query.Query) (*result.Response, error)
}

// healthChecker aggregates component health.
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API server.
type Server struct {
	matcher       matcher
	health        healthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(m matcher, h healthChecker, logger *zap.Logger) *Server {
	s := &Server{
		matcher: m,
		health:  h,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrProfileNotFound, http.StatusNotFound, codeProfileNotFound),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, codeCatalogUnavailable),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrEmbeddingUnhealthy, http.StatusBadGateway, codeEmbeddingProvider),
	}
	return s
}

// Register mounts the API routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/search", s.Search)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

// searchFilters is the wire form of the structured pre-filter.
type searchFilters struct {
	Profession   string   `json:"profession,omitempty"`
	Materials    []string `json:"materials,omitempty"`
	Techniques   []string `json:"techniques,omitempty"`
	Location     string   `json:"location,omitempty"`
	MinYears     int      `json:"minExperienceYears,omitempty"`
	Availability string   `json:"availability,omitempty"`
	Quality      string   `json:"quality,omitempty"`
}

// searchRequest is the POST /v1/search body.
type searchRequest struct {
	QueryText  string         `json:"queryText"`
	Filters    *searchFilters `json:"filters,omitempty"`
	MaxResults int            `json:"maxResults,omitempty"`
	MinScore   float64        `json:"minScore,omitempty"`
	SortBy     string         `json:"sortBy,omitempty"`
	Explain    bool           `json:"enableExplanations,omitempty"`
}

// searchResponse is the POST /v1/search reply. processingTime is in
// milliseconds.
type searchResponse struct {
	Matches        []result.Match        `json:"matches"`
	TotalFound     int                   `json:"totalFound"`
	ProcessingTime int64                 `json:"processingTime"`
	SearchType     result.SearchType     `json:"searchType"`
	Confidence     float64               `json:"confidence"`
	QueryAnalysis  *result.QueryAnalysis `json:"queryAnalysis,omitempty"`
}

// Search handles POST /v1/search. Request validation happens here, before
// any catalog or embedding call is spent on a bad request.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	q, err := query.New(
		req.QueryText,
		filtersFromRequest(req.Filters),
		req.MaxResults,
		req.MinScore,
		query.SortBy(req.SortBy),
		req.Explain,
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.matcher.Match(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Matches:        resp.Matches,
		TotalFound:     resp.TotalFound,
		ProcessingTime: resp.ProcessingTime.Milliseconds(),
		SearchType:     resp.SearchType,
		Confidence:     resp.Confidence,
		QueryAnalysis:  resp.QueryAnalysis,
	})
}

// healthResponse is the GET /health reply.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /health. Degraded still answers 200: the service can
// serve searches without the embedding provider.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func filtersFromRequest(f *searchFilters) filter.Filters {
	if f == nil {
		return filter.Filters{}
	}
	return filter.Filters{
		Profession:   f.Profession,
		Materials:    f.Materials,
		Techniques:   f.Techniques,
		Location:     f.Location,
		MinYears:     f.MinYears,
		Availability: domain.Availability(f.Availability),
		Quality:      domain.QualityLevel(f.Quality),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrProfileNotFound,
		domain.ErrCatalogUnavailable,
		domain.ErrEmbeddingProvider,
		domain.ErrEmbeddingUnhealthy,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// requestLogger prefers the request-scoped logger attached by the wide-event
// middleware, which carries the request ID.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l, ok := logpkg.Lookup(r.Context()); ok {
		return l
	}
	return s.logger
}
