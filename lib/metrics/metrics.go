package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodflex_upstream_requests_total",
			Help: "Count of requests made to the catalog service",
		},
		[]string{"endpoint", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kodflex_upstream_request_duration_seconds",
			Help:    "Time taken by catalog service requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"endpoint"},
	)
	Aggregations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodflex_catalog_aggregations_total",
			Help: "Count of catalog refreshes by outcome",
		},
		[]string{"result"}, // ok, failed, partial
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kodflex_active_sessions",
			Help: "Current number of signed-in sessions",
		},
	)
)

// Init registers the collectors with the default registry. Call it once from main.
func Init() {
	prometheus.MustRegister(
		UpstreamRequests,
		UpstreamDuration,
		Aggregations,
		ActiveSessions,
	)
}
