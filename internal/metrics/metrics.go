// Package metrics exposes Prometheus counters for analyses and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
)

// Namespace prefixes every metric name.
const Namespace = "aggscope"

// Collector holds all metrics of one process. Each collector owns its
// registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Analysis metrics
	Analyses         *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	Clusters         prometheus.Histogram
	Cuts             prometheus.Counter
	Unconverged      prometheus.Counter
}

// NewCollector creates a collector registered on a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "analyses_total",
				Help:      "Total number of analyses by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Analysis duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
		),
		Clusters: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "clusters_per_analysis",
				Help:      "Number of clusters produced by one analysis",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		Cuts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cuts_total",
				Help:      "Total number of cut recommendations emitted",
			},
		),
		Unconverged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "unconverged_total",
				Help:      "Analyses whose community detection hit a pass or level cap",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Analyses,
		c.AnalysisDuration,
		c.Clusters,
		c.Cuts,
		c.Unconverged,
	)
	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveAnalysis records a successful analysis.
func (c *Collector) ObserveAnalysis(report *aggregate.Report, elapsed time.Duration) {
	c.Analyses.WithLabelValues("ok").Inc()
	c.AnalysisDuration.Observe(elapsed.Seconds())
	c.Clusters.Observe(float64(len(report.Clusters)))
	c.Cuts.Add(float64(len(report.Cuts)))
	if !report.Summary.Converged {
		c.Unconverged.Inc()
	}
}

// ObserveFailure records an analysis that returned an error.
func (c *Collector) ObserveFailure() {
	c.Analyses.WithLabelValues("error").Inc()
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route, status string, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
