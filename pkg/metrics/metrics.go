package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "journal_upstream_requests_total", Help: "Outbound provider requests by outcome"},
		[]string{"provider", "outcome"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "journal_cache_lookups_total", Help: "Cache lookups by component, tier and result"},
		[]string{"component", "tier", "result"},
	)
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "journal_llm_calls_total", Help: "LLM invocations by model and outcome"},
		[]string{"model", "outcome"},
	)
	AnalysisRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "journal_analysis_requests_total", Help: "Period analysis requests by result"},
		[]string{"result"},
	)
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "journal_analysis_duration_seconds",
			Help:    "Wall time of a period analysis",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)
)

func init() {
	prometheus.MustRegister(UpstreamRequests, CacheLookups, LLMCalls, AnalysisRequests, AnalysisDuration)
}

// Handler Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
