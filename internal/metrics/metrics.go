// Package metrics exposes Prometheus counters for remote calls, caching and pipeline stages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RemoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "landchange_remote_requests_total",
		Help: "Total remote compute requests by root operation",
	}, []string{"op"})
	RemoteFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "landchange_remote_failures_total",
		Help: "Total failed remote compute requests by root operation",
	}, []string{"op"})
	RemoteDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "landchange_remote_duration_seconds",
		Help:    "Remote compute call duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"op"})
	RemoteRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landchange_remote_retries_total",
		Help: "Total retried remote compute attempts",
	})
	ResultCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landchange_result_cache_hits_total",
		Help: "Total durable result cache hits",
	})
	ResultCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landchange_result_cache_misses_total",
		Help: "Total durable result cache misses",
	})
	AnalysisCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landchange_analysis_cache_hits_total",
		Help: "Total in-session analysis cache hits",
	})
	AnalysisCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "landchange_analysis_cache_misses_total",
		Help: "Total in-session analysis cache misses",
	})
	StageOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "landchange_stage_outcomes_total",
		Help: "Per-year pipeline stage outcomes",
	}, []string{"stage", "state"})
)

func init() {
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteFailuresTotal)
	prometheus.MustRegister(RemoteDurationSeconds)
	prometheus.MustRegister(RemoteRetriesTotal)
	prometheus.MustRegister(ResultCacheHitsTotal)
	prometheus.MustRegister(ResultCacheMissesTotal)
	prometheus.MustRegister(AnalysisCacheHitsTotal)
	prometheus.MustRegister(AnalysisCacheMissesTotal)
	prometheus.MustRegister(StageOutcomesTotal)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
