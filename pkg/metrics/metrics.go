package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgtree_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccessDecisions counts organization access evaluations by outcome (allow|deny|error).
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgtree_access_decisions_total",
			Help: "Total number of organization access evaluations",
		},
		[]string{"result"},
	)

	// TransferResolutions counts ownership transfer outcomes (accepted|rejected|cancelled).
	TransferResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgtree_ownership_transfer_resolutions_total",
			Help: "Total number of resolved ownership transfers",
		},
		[]string{"status"},
	)

	// CSRFRejections counts state-changing requests rejected by CSRF validation.
	CSRFRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orgtree_csrf_rejections_total",
			Help: "Total number of requests rejected by CSRF validation",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgtree_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
