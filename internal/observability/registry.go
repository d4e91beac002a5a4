package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// so components receive metrics through dependency injection instead of globals.
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Platform client metrics
	IncrementPlatformCalls(operation, outcome string)
	RecordPlatformLatency(operation string, duration time.Duration)

	// Deployment metrics
	IncrementCombinationDeployments(outcome string)
	IncrementPlacementProvisioning(result string)
	IncrementMediaResolutions(kind, source string)
	RecordBatchDuration(duration time.Duration)

	// Insights metrics
	IncrementInsightsSync(outcome string)

	// Rate limiting metrics
	IncrementRateLimitRequests(account string)
	IncrementRateLimitHits(account string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementPlatformCalls(operation, outcome string) {
	PlatformCalls.WithLabelValues(operation, outcome).Inc()
}

func (r *PrometheusRegistry) RecordPlatformLatency(operation string, duration time.Duration) {
	PlatformLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementCombinationDeployments(outcome string) {
	CombinationDeployments.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) IncrementPlacementProvisioning(result string) {
	PlacementProvisioning.WithLabelValues(result).Inc()
}

func (r *PrometheusRegistry) IncrementMediaResolutions(kind, source string) {
	MediaResolutions.WithLabelValues(kind, source).Inc()
}

func (r *PrometheusRegistry) RecordBatchDuration(duration time.Duration) {
	BatchDuration.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementInsightsSync(outcome string) {
	InsightsSync.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitRequests(account string) {
	RateLimitRequests.WithLabelValues(account).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(account string) {
	RateLimitHits.WithLabelValues(account).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementPlatformCalls(operation, outcome string)                     {}
func (r *NoOpRegistry) RecordPlatformLatency(operation string, duration time.Duration)       {}
func (r *NoOpRegistry) IncrementCombinationDeployments(outcome string)                       {}
func (r *NoOpRegistry) IncrementPlacementProvisioning(result string)                         {}
func (r *NoOpRegistry) IncrementMediaResolutions(kind, source string)                        {}
func (r *NoOpRegistry) RecordBatchDuration(duration time.Duration)                           {}
func (r *NoOpRegistry) IncrementInsightsSync(outcome string)                                 {}
func (r *NoOpRegistry) IncrementRateLimitRequests(account string)                            {}
func (r *NoOpRegistry) IncrementRateLimitHits(account string)                                {}
