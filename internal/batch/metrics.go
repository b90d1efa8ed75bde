package batch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/onnwee/oppscore/internal/scoring"
)

// Metrics names as constants for consistency.
const (
	MetricBatchRunsTotal             = "oppscore_batch_runs_total"
	MetricBatchRunDuration           = "oppscore_batch_run_duration_seconds"
	MetricBatchRecordsTotal          = "oppscore_batch_records_total"
	MetricBatchUnavailableComponents = "oppscore_batch_unavailable_components_total"
	MetricBatchLastRunTimestamp      = "oppscore_batch_last_run_timestamp"
)

// Record outcome label values.
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
)

// Metrics contains Prometheus metrics for batch runs.
// All operations are thread-safe.
type Metrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	recordsTotal     *prometheus.CounterVec
	unavailable      *prometheus.CounterVec
	lastRunTimestamp *prometheus.GaugeVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBatchRunsTotal,
				Help: "Total number of batch runs by kind and status",
			},
			[]string{"kind", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricBatchRunDuration,
				Help:    "Histogram of batch run duration in seconds by kind",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 300.0},
			},
			[]string{"kind"},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBatchRecordsTotal,
				Help: "Total number of records handled by batch runs by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		unavailable: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBatchUnavailableComponents,
				Help: "Total number of unavailable sub-scores in batch scoring results by component",
			},
			[]string{"component"},
		),
		lastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricBatchLastRunTimestamp,
				Help: "Unix timestamp of the last completed batch run by kind",
			},
			[]string{"kind"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(kind, status string, seconds float64) {
	m.runsTotal.WithLabelValues(kind, status).Inc()
	m.runDuration.WithLabelValues(kind).Observe(seconds)
	m.lastRunTimestamp.WithLabelValues(kind).SetToCurrentTime()
}

// ObserveRecords adds the processed and failed record counts of a run.
func (m *Metrics) ObserveRecords(kind string, processed, failed int) {
	m.recordsTotal.WithLabelValues(kind, OutcomeProcessed).Add(float64(processed))
	m.recordsTotal.WithLabelValues(kind, OutcomeFailed).Add(float64(failed))
}

// ObserveResult counts the unavailable components of a scoring result.
func (m *Metrics) ObserveResult(res *scoring.ScoreResult) {
	if res == nil {
		return
	}
	for c, cr := range res.Components {
		if cr.Unavailable {
			m.unavailable.WithLabelValues(string(c)).Inc()
		}
	}
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.recordsTotal,
		m.unavailable,
		m.lastRunTimestamp,
	}
}
