package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metaforge_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// platform API calls labelled by operation and outcome
	PlatformCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_platform_calls_total",
			Help: "Total advertising platform API calls",
		},
		[]string{"operation", "outcome"},
	)

	// platform API latency per operation
	PlatformLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metaforge_platform_call_duration_seconds",
			Help:    "Duration of advertising platform API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// per-combination deployment results labelled by outcome (deployed or error kind)
	CombinationDeployments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_combination_deployments_total",
			Help: "Total combination deployment attempts by outcome",
		},
		[]string{"outcome"},
	)

	// placement provisioning results: reused, created, failed
	PlacementProvisioning = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_placement_provisioning_total",
			Help: "Total placement provisioning results",
		},
		[]string{"result"},
	)

	// media resolution labelled by media kind and whether the cached reference was used
	MediaResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_media_resolutions_total",
			Help: "Total media resolutions by kind and source",
		},
		[]string{"kind", "source"},
	)

	// wall time of a whole batch
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metaforge_batch_duration_seconds",
			Help:    "Duration of deployment batches",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// insights rows written per sync cycle outcome
	InsightsSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_insights_sync_total",
			Help: "Total insights fetches by outcome",
		},
		[]string{"outcome"},
	)

	// outbound platform calls passing the per account limiter
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_rate_limit_requests_total",
			Help: "Total platform calls checked by the ad account rate limiter",
		},
		[]string{"account"},
	)

	// calls that had to wait for a token
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metaforge_rate_limit_hits_total",
			Help: "Total platform calls delayed by the ad account rate limiter",
		},
		[]string{"account"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		PlatformCalls,
		PlatformLatency,
		CombinationDeployments,
		PlacementProvisioning,
		MediaResolutions,
		BatchDuration,
		InsightsSync,
		RateLimitRequests,
		RateLimitHits,
	)
}
