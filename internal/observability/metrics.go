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
	// Payment metrics
	PaymentsConfirmed           prometheus.Counter
	PaymentVerificationFailures *prometheus.CounterVec
	VerificationDuration        prometheus.Histogram

	// Sweeper metrics
	SweeperRuns              prometheus.Counter
	SweeperPaymentsConfirmed prometheus.Counter

	// Analysis metrics
	AnalysisRuns   *prometheus.CounterVec
	QueryJobs      *prometheus.CounterVec
	QueryJobErrors *prometheus.CounterVec

	// Dune metrics
	DuneRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_analysis"
	}

	return &Metrics{
		// Payment metrics
		PaymentsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "payments_confirmed_total",
			Help:      "Total number of payments confirmed on-chain",
		}),
		PaymentVerificationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "verification_failures_total",
			Help:      "Total number of failed payment verifications by outcome",
		}, []string{"outcome"}),
		VerificationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "verification_duration_seconds",
			Help:      "On-chain payment verification duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Sweeper metrics
		SweeperRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "runs_total",
			Help:      "Total number of pending-payment sweep cycles",
		}),
		SweeperPaymentsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "payments_confirmed_total",
			Help:      "Total number of payments confirmed by the sweeper",
		}),

		// Analysis metrics
		AnalysisRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by final result",
		}, []string{"result"}),
		QueryJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "query_jobs_total",
			Help:      "Total number of query jobs by terminal status",
		}, []string{"status"}),
		QueryJobErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "query_job_errors_total",
			Help:      "Total number of query job failures by error type",
		}, []string{"error_type"}),

		// Dune metrics
		DuneRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dune",
			Name:      "request_duration_seconds",
			Help:      "Dune API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPaymentConfirmed increments the confirmed payments counter.
func RecordPaymentConfirmed() {
	DefaultMetrics.PaymentsConfirmed.Inc()
}

// RecordVerificationFailure records a failed verification by outcome.
func RecordVerificationFailure(outcome string) {
	DefaultMetrics.PaymentVerificationFailures.WithLabelValues(outcome).Inc()
}

// RecordVerificationDuration records how long an on-chain verification took.
func RecordVerificationDuration(seconds float64) {
	DefaultMetrics.VerificationDuration.Observe(seconds)
}

// RecordSweeperRun increments the sweep cycle counter.
func RecordSweeperRun() {
	DefaultMetrics.SweeperRuns.Inc()
}

// RecordSweeperConfirmed increments the sweeper-confirmed payments counter.
func RecordSweeperConfirmed() {
	DefaultMetrics.SweeperPaymentsConfirmed.Inc()
}

// RecordAnalysisRun records a finished analysis run by result.
func RecordAnalysisRun(result string) {
	DefaultMetrics.AnalysisRuns.WithLabelValues(result).Inc()
}

// RecordQueryJob records a query job reaching a terminal status.
func RecordQueryJob(status string) {
	DefaultMetrics.QueryJobs.WithLabelValues(status).Inc()
}

// RecordQueryJobError records a query job failure by error type.
func RecordQueryJobError(errorType string) {
	DefaultMetrics.QueryJobErrors.WithLabelValues(errorType).Inc()
}

// RecordDuneRequest records a Dune API request duration by operation.
func RecordDuneRequest(operation string, seconds float64) {
	DefaultMetrics.DuneRequestDuration.WithLabelValues(operation).Observe(seconds)
}
