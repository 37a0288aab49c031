package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	PipelineTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_pipeline_ticks_total",
			Help: "Total number of pipeline ticks",
		},
		[]string{"context", "status"}, // status: success|error
	)

	PostsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_posts_ingested_total",
			Help: "Posts admitted into the pipeline",
		},
		[]string{"platform"},
	)

	PostsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_posts_skipped_total",
			Help: "Posts rejected before classification",
		},
		[]string{"platform", "reason"}, // reason: duplicate|filtered|malformed
	)

	// Platform adapter metrics
	AdapterCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_adapter_calls_total",
			Help: "Total number of platform fetch calls",
		},
		[]string{"platform", "status"}, // status: success|rate_limited|auth_failed|unavailable
	)

	// Classifier metrics
	ClassifierCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_classifier_calls_total",
			Help: "Total number of AI classification calls",
		},
		[]string{"provider", "status"}, // status: success|error|rate_limited
	)

	ClassifierLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tifo_classifier_latency_seconds",
			Help:    "Classification call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	ClassifierFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_classifier_fallbacks_total",
			Help: "Posts classified via the neutral fallback shape",
		},
		[]string{"provider"},
	)

	// Rate limiter metrics
	RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_rate_limit_rejections_total",
			Help: "Calls rejected by the sliding-window limiter",
		},
		[]string{"identity", "operation"},
	)

	// Scheduler metrics
	RefreshInterval = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tifo_refresh_interval_seconds",
			Help: "Current polling interval per context",
		},
		[]string{"context"},
	)

	ContextsBoosted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tifo_contexts_boosted",
			Help: "Number of contexts currently in the boosted state",
		},
	)

	// Aggregation metrics
	AggregationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tifo_aggregation_runs_total",
			Help: "Aggregation passes per scope",
		},
		[]string{"scope", "status"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		PipelineTicks,
		PostsIngested,
		PostsSkipped,
		AdapterCalls,
		ClassifierCalls,
		ClassifierLatency,
		ClassifierFallbacks,
		RateLimitRejections,
		RefreshInterval,
		ContextsBoosted,
		AggregationRuns,
	)
}

// Handler returns the HTTP handler exposing collected metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
