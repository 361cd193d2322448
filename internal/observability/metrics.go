// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	PostsListed      prometheus.Counter
	CommentsSeen     prometheus.Counter
	CommentsSkipped  prometheus.Counter
	FeedErrors       *prometheus.CounterVec
	RepliesPosted    *prometheus.CounterVec
	NotifierFailures prometheus.Counter

	// Parser metrics
	CommandsParsed   prometheus.Counter
	CommandsRejected *prometheus.CounterVec

	// Profile metrics
	ProfilesScraped    prometheus.Counter
	ProfileCacheHits   prometheus.Counter
	ProfileCacheMisses prometheus.Counter
	ScrapeErrors       prometheus.Counter

	// Deployment metrics
	DeploymentsTotal   *prometheus.CounterVec
	DeploymentDuration prometheus.Histogram

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Health metrics
	LastSuccessfulCycle      prometheus.Gauge
	LastSuccessfulDeployment prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "feedo"
	}

	return &Metrics{
		// Feed metrics
		PostsListed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "posts_listed_total",
			Help:      "Total number of posts returned by the feed",
		}),
		CommentsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "comments_seen_total",
			Help:      "Total number of comments observed across cycles",
		}),
		CommentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "comments_skipped_total",
			Help:      "Total number of comments skipped as already processed",
		}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of feed API errors by operation",
		}, []string{"operation"}),
		RepliesPosted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "replies_posted_total",
			Help:      "Total number of replies posted by kind",
		}, []string{"kind"}),
		NotifierFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "notifier_failures_total",
			Help:      "Total number of reply attempts that failed",
		}),

		// Parser metrics
		CommandsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "commands_parsed_total",
			Help:      "Total number of valid deploy commands parsed",
		}),
		CommandsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "commands_rejected_total",
			Help:      "Total number of rejected comments by reason",
		}, []string{"reason"}),

		// Profile metrics
		ProfilesScraped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "scraped_total",
			Help:      "Total number of creator profiles scraped",
		}),
		ProfileCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "cache_hits_total",
			Help:      "Total number of profile store hits",
		}),
		ProfileCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "cache_misses_total",
			Help:      "Total number of profile store misses",
		}),
		ScrapeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "scrape_errors_total",
			Help:      "Total number of profile scrape failures",
		}),

		// Deployment metrics
		DeploymentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deployment",
			Name:      "total",
			Help:      "Total number of deployments by status",
		}, []string{"status"}),
		DeploymentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deployment",
			Name:      "duration_seconds",
			Help:      "End-to-end deployment duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),

		// Cycle metrics
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "total",
			Help:      "Total number of polling cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Polling cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last fully successful polling cycle",
		}),
		LastSuccessfulDeployment: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_deployment_timestamp",
			Help:      "Unix timestamp of last successful deployment",
		}),
	}
}

// RecordDeploymentStatus records a finished deployment on this instance.
func (m *Metrics) RecordDeploymentStatus(status string, durationSeconds float64) {
	m.DeploymentsTotal.WithLabelValues(status).Inc()
	m.DeploymentDuration.Observe(durationSeconds)
}

// RecordCycleStatus records a finished polling cycle on this instance.
func (m *Metrics) RecordCycleStatus(status string, durationSeconds float64) {
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(durationSeconds)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCommentSeen increments the comments seen counter.
func RecordCommentSeen() {
	DefaultMetrics.CommentsSeen.Inc()
}

// RecordCommandParsed increments the parsed commands counter.
func RecordCommandParsed() {
	DefaultMetrics.CommandsParsed.Inc()
}

// RecordCommandRejected records a rejected comment by reason.
func RecordCommandRejected(reason string) {
	DefaultMetrics.CommandsRejected.WithLabelValues(reason).Inc()
}

// RecordFeedError records a feed API error by operation.
func RecordFeedError(operation string) {
	DefaultMetrics.FeedErrors.WithLabelValues(operation).Inc()
}

// RecordDeployment records a finished deployment.
func RecordDeployment(status string, durationSeconds float64) {
	DefaultMetrics.DeploymentsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.DeploymentDuration.Observe(durationSeconds)
}

// RecordCycle records a finished polling cycle.
func RecordCycle(status string, durationSeconds float64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
}
