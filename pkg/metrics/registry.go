// Package metrics exposes Prometheus instruments for the analysis engine,
// the batch scheduler and the HTTP surface. Record methods are safe on a
// nil *Registry so components can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racksmith"

// Registry holds every instrument on a private Prometheus registry.
type Registry struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Analysis
	AnalysesTotal         *prometheus.CounterVec
	AnalysisDuration      prometheus.Histogram
	ChainsDetected        prometheus.Histogram
	NestingDepth          prometheus.Histogram
	ComplianceIssuesTotal *prometheus.CounterVec
	ConcurrencyConflicts  prometheus.Counter
	ExtractionWarnings    prometheus.Counter

	// Batches
	BatchesSubmittedTotal *prometheus.CounterVec
	BatchesRejectedTotal  prometheus.Counter
	BatchesFinishedTotal  *prometheus.CounterVec
	BatchItemsTotal       *prometheus.CounterVec
	QueueDepth            *prometheus.GaugeVec
	WorkersBusy           prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every instrument initialized and the
// Go runtime and process collectors attached.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{registry: reg}
	r.initHTTPMetrics()
	r.initAnalysisMetrics()
	r.initBatchMetrics()
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
