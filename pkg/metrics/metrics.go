// Package metrics defines Prometheus metrics for kpath runs and the HTTP API.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kpath_runs_total",
			Help: "Total k-shortest-paths runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kpath_run_duration_seconds",
			Help:    "Duration of a k-shortest-paths run including trace encoding",
			Buckets: prometheus.DefBuckets,
		},
	)

	PathsFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kpath_paths_found",
			Help:    "Number of paths found per run",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	EdgesPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kpath_edges_pruned_total",
			Help: "Total adjacency entries removed after discovered paths",
		},
	)

	FrontierPops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kpath_frontier_pops_total",
			Help: "Total frontier entries expanded, stale entries included",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kpath_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kpath_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal, RunDuration, PathsFound,
		EdgesPruned, FrontierPops,
		RequestDuration, RequestsTotal,
	)
}
