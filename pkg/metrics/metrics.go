package metrics

import (
	"strconv"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration.
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAnalysis records one completed analysis run.
func (r *Registry) RecordAnalysis(status string, compliant bool, duration time.Duration, chains, depth int, issues []string) {
	if r == nil {
		return
	}
	r.AnalysesTotal.WithLabelValues(status, strconv.FormatBool(compliant)).Inc()
	r.AnalysisDuration.Observe(duration.Seconds())
	if status == "succeeded" {
		r.ChainsDetected.Observe(float64(chains))
		r.NestingDepth.Observe(float64(depth))
	}
	for _, issue := range issues {
		r.ComplianceIssuesTotal.WithLabelValues(issue).Inc()
	}
}

// RecordConflict counts an analysis rejected by the per-rack lock.
func (r *Registry) RecordConflict() {
	if r == nil {
		return
	}
	r.ConcurrencyConflicts.Inc()
}

// RecordWarnings counts extraction warnings.
func (r *Registry) RecordWarnings(n int) {
	if r == nil || n == 0 {
		return
	}
	r.ExtractionWarnings.Add(float64(n))
}

// RecordBatchSubmitted counts an admitted batch.
func (r *Registry) RecordBatchSubmitted(priority string) {
	if r == nil {
		return
	}
	r.BatchesSubmittedTotal.WithLabelValues(priority).Inc()
}

// RecordBatchRejected counts a batch refused at admission.
func (r *Registry) RecordBatchRejected() {
	if r == nil {
		return
	}
	r.BatchesRejectedTotal.Inc()
}

// RecordBatchFinished counts a batch reaching a terminal status.
func (r *Registry) RecordBatchFinished(status string) {
	if r == nil {
		return
	}
	r.BatchesFinishedTotal.WithLabelValues(status).Inc()
}

// RecordBatchItem counts a batch item reaching a terminal status.
func (r *Registry) RecordBatchItem(status string) {
	if r == nil {
		return
	}
	r.BatchItemsTotal.WithLabelValues(status).Inc()
}

// SetQueueDepth sets the queued item count for a priority.
func (r *Registry) SetQueueDepth(priority string, n int) {
	if r == nil {
		return
	}
	r.QueueDepth.WithLabelValues(priority).Set(float64(n))
}

// WorkerStarted marks a worker busy.
func (r *Registry) WorkerStarted() {
	if r == nil {
		return
	}
	r.WorkersBusy.Inc()
}

// WorkerFinished marks a worker idle.
func (r *Registry) WorkerFinished() {
	if r == nil {
		return
	}
	r.WorkersBusy.Dec()
}
