package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.AnalysesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis runs by outcome",
		},
		[]string{"status", "compliant"}, // succeeded/failed, true/false
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Measured read and extraction time per run",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	r.ChainsDetected = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_chains_detected",
			Help:      "Chains detected per successful run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	r.NestingDepth = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_nesting_depth",
			Help:      "Chain nesting levels per successful run",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		},
	)

	r.ComplianceIssuesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compliance_issues_total",
			Help:      "Compliance issues reported by code",
		},
		[]string{"issue"},
	)

	r.ConcurrencyConflicts = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_conflicts_total",
			Help:      "Analyses rejected because the rack was already being analyzed",
		},
	)

	r.ExtractionWarnings = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_warnings_total",
			Help:      "Non-fatal extraction warnings",
		},
	)
}
