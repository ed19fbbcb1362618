package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching Prometheus metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artisanmatch",
			Name:      "match_requests_total",
			Help:      "Total number of match requests by search type",
		},
		[]string{"search_type", "status"},
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artisanmatch",
			Name:      "match_duration_seconds",
			Help:      "End-to-end match request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"search_type"},
	)

	MatchFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "artisanmatch",
			Name:      "match_fallbacks_total",
			Help:      "Vector-path attempts that fell back to keyword matching mid-request",
		},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artisanmatch",
			Name:      "result_cache_total",
			Help:      "Ranked result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var matchMetricsRegistered bool

// RegisterMatchingMetrics registers Prometheus matching metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchRequestsTotal)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(MatchFallbacksTotal)
	prometheus.MustRegister(ResultCacheTotal)
	matchMetricsRegistered = true
}
