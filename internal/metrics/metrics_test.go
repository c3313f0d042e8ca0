package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

func TestObserveSolve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSolve("pipes", wfc.StatusResolved, 12, 3*time.Millisecond)
	m.ObserveSolve("pipes", wfc.StatusResolved, 9, time.Millisecond)
	m.ObserveSolve("pipes", wfc.StatusContradiction, 4, time.Millisecond)

	if got := testutil.ToFloat64(m.solves.WithLabelValues("pipes", "resolved")); got != 2 {
		t.Errorf("resolved solves = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.solves.WithLabelValues("pipes", "contradiction")); got != 1 {
		t.Errorf("contradicted solves = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.steps); got != 1 {
		t.Errorf("observation series = %d, want 1", got)
	}
}

func TestObserveGeneration(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveGeneration("pipes", "solved", 3)

	expected := `
# HELP tiledwfc_generator_runs_total Generation runs by tileset and outcome (solved, exhausted, cancelled)
# TYPE tiledwfc_generator_runs_total counter
tiledwfc_generator_runs_total{outcome="solved",tileset="pipes"} 1
`
	if err := testutil.CollectAndCompare(m.generations, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestSessions(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := testutil.ToFloat64(m.sessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveSolve("pipes", wfc.StatusResolved, 1, time.Second)
	m.ObserveGeneration("pipes", "solved", 1)
	m.SessionOpened()
	m.SessionClosed()
}
