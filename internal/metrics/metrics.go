package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Mutation outcomes
const (
	OutcomeApplied  = "applied"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics holds the collectors for line mutations. A nil *Metrics is a no-op.
type Metrics struct {
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	segments  *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subway_line_mutations_total",
				Help: "Line mutations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subway_line_mutation_duration_seconds",
				Help:    "Time spent in a line mutation, lock to save",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		segments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "subway_line_segments",
				Help: "Segments currently stored per line",
			},
			[]string{"line"},
		),
	}
	reg.MustRegister(m.mutations, m.duration, m.segments)
	return m
}

// ObserveMutation records one finished mutation
func (m *Metrics) ObserveMutation(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetSegmentCount publishes the current size of a line
func (m *Metrics) SetSegmentCount(line string, count int) {
	if m == nil {
		return
	}
	m.segments.WithLabelValues(line).Set(float64(count))
}

// ForgetLine drops the series of a deleted line
func (m *Metrics) ForgetLine(line string) {
	if m == nil {
		return
	}
	m.segments.DeleteLabelValues(line)
}
