// Package metrics holds the Prometheus instruments for solves, generation
// runs and service sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

const namespace = "tiledwfc"

// Metrics groups the instruments. A nil *Metrics records nothing.
type Metrics struct {
	solves      *prometheus.CounterVec
	steps       *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
	generations *prometheus.CounterVec
	attempts    *prometheus.HistogramVec
	sessions    prometheus.Gauge
}

// New registers the instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "solves_total",
			Help:      "Solve attempts by tileset and final status",
		}, []string{"tileset", "status"}),

		steps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "observations",
			Help:      "Cells observed per solve attempt",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"tileset"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "duration_seconds",
			Help:      "Wall time per solve attempt in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"tileset", "status"}),

		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "runs_total",
			Help:      "Generation runs by tileset and outcome (solved, exhausted, cancelled)",
		}, []string{"tileset", "outcome"}),

		attempts: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "attempts",
			Help:      "Seeds tried per generation run",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}, []string{"tileset"}),

		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_sessions",
			Help:      "Open WebSocket generation sessions",
		}),
	}
}

// ObserveSolve records one finished solve attempt.
func (m *Metrics) ObserveSolve(tileset string, status wfc.Status, steps int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(tileset, status.String()).Inc()
	m.steps.WithLabelValues(tileset).Observe(float64(steps))
	m.duration.WithLabelValues(tileset, status.String()).Observe(elapsed.Seconds())
}

// ObserveGeneration records a generation run and how many seeds it took.
func (m *Metrics) ObserveGeneration(tileset, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(tileset, outcome).Inc()
	m.attempts.WithLabelValues(tileset).Observe(float64(attempts))
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}
