package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "epeer"

// Metrics instruments handshake attempts.
type Metrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
	inFlight prometheus.Gauge
}

// NewMetrics builds the collectors and registers them on reg when it is not
// nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "handshake",
			Name:      "outcomes_total",
			Help:      "Finished handshake attempts by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Time from dial to the terminal state of an attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "handshake",
			Name:      "in_flight",
			Help:      "Handshake attempts currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.duration, m.inFlight)
	}
	return m
}

func resultLabel(o Outcome) string {
	if o.Established() {
		return "established"
	}
	return o.Reason().String()
}

// observe records a launched attempt.
func (m *Metrics) observe(o Outcome) {
	m.outcomes.WithLabelValues(resultLabel(o)).Inc()
	m.duration.Observe(o.Duration.Seconds())
}

// notLaunched records a candidate that never got a connection attempt.
func (m *Metrics) notLaunched(o Outcome) {
	m.outcomes.WithLabelValues(resultLabel(o)).Inc()
}
