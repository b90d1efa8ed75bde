package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricProviderRequestsTotal = "oppscore_provider_requests_total"
	MetricProviderDuration      = "oppscore_provider_duration_seconds"
	MetricScoresTotal           = "oppscore_scores_total"
	MetricOverallScore          = "oppscore_overall_score"
)

// Provider outcome label values.
const (
	OutcomeScored      = "scored"
	OutcomeUnavailable = "unavailable"
)

// Metrics contains Prometheus metrics for record scoring.
// All operations are thread-safe.
type Metrics struct {
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	scoresTotal      *prometheus.CounterVec
	overallScore     prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricProviderRequestsTotal,
				Help: "Total number of sub-score provider calls by component and outcome",
			},
			[]string{"component", "outcome"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricProviderDuration,
				Help:    "Histogram of sub-score provider call duration in seconds by component",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
			},
			[]string{"component"},
		),
		scoresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricScoresTotal,
				Help: "Total number of scored records by final state",
			},
			[]string{"state"},
		),
		overallScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricOverallScore,
			Help:    "Distribution of overall record scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
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

// ObserveProvider records one provider call.
func (m *Metrics) ObserveProvider(component Component, outcome string, seconds float64) {
	m.providerRequests.WithLabelValues(string(component), outcome).Inc()
	m.providerDuration.WithLabelValues(string(component)).Observe(seconds)
}

// ObserveScore records the final state of a scored record and, unless it
// failed, its overall score.
func (m *Metrics) ObserveScore(state State, overall float64) {
	m.scoresTotal.WithLabelValues(string(state)).Inc()
	if state != StateFailed {
		m.overallScore.Observe(overall)
	}
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.providerRequests,
		m.providerDuration,
		m.scoresTotal,
		m.overallScore,
	}
}
