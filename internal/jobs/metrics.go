// Package jobs holds the metrics shared by long-running scoring jobs such as
// batch score and batch rank runs.
package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as exported to Prometheus.
const (
	MetricJobsTotal      = "oppscore_jobs_total"
	MetricJobDuration    = "oppscore_job_duration_seconds"
	MetricJobErrorsTotal = "oppscore_job_errors_total"
	MetricJobsInFlight   = "oppscore_jobs_in_flight"
)

// Job types.
const (
	JobTypeBatchScore = "batch_score"
	JobTypeBatchRank  = "batch_rank"
)

// Error types for IncJobErrors.
const (
	ErrorTypeTimeout  = "timeout"
	ErrorTypeCanceled = "canceled"
	ErrorTypeInput    = "input_error"
	ErrorTypeScoring  = "scoring_error"
)

// Completion statuses. A run with any failed record is a failure.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Reporter receives job lifecycle events. Every JobStarted is followed by
// exactly one JobFinished for the same type. Jobs treat a nil Reporter as
// "not instrumented".
type Reporter interface {
	JobStarted(jobType string)
	JobFinished(jobType, status string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

var _ Reporter = (*Metrics)(nil)

// Metrics implements Reporter with Prometheus collectors.
type Metrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
}

// NewMetrics builds unregistered collectors; see Register.
func NewMetrics() *Metrics {
	return &Metrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricJobsTotal,
			Help: "Finished jobs by type and status.",
		}, []string{"job_type", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: MetricJobDuration,
			Help: "Wall time of finished jobs.",
			// A batch tops out at the run timeout, five minutes by default.
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job_type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricJobErrorsTotal,
			Help: "Job and per-record errors by cause.",
		}, []string{"job_type", "error_type"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricJobsInFlight,
			Help: "Jobs started and not yet finished.",
		}, []string{"job_type"}),
	}
}

// Register adds every collector to reg, stopping at the first failure.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) JobStarted(jobType string) {
	m.inFlight.WithLabelValues(jobType).Inc()
}

func (m *Metrics) JobFinished(jobType, status string, seconds float64) {
	m.inFlight.WithLabelValues(jobType).Dec()
	m.total.WithLabelValues(jobType, status).Inc()
	m.duration.WithLabelValues(jobType).Observe(seconds)
}

func (m *Metrics) IncJobErrors(jobType, errorType string) {
	m.errors.WithLabelValues(jobType, errorType).Inc()
}

// Collectors lists the collectors in registration order.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.total, m.duration, m.errors, m.inFlight}
}
