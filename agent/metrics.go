package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
	outcomeEmpty  = "empty"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	lookups       *prometheus.CounterVec
	generations   *prometheus.CounterVec
	researchSkips *prometheus.CounterVec
	nodeDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veriyield",
			Subsystem: "agent",
			Name:      "lookups_total",
			Help:      "Search lookups issued by research nodes, by outcome.",
		}, []string{"pipeline", "outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veriyield",
			Subsystem: "agent",
			Name:      "generations_total",
			Help:      "Completion calls issued by synthesis nodes, by outcome.",
		}, []string{"pipeline", "outcome"}),
		researchSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veriyield",
			Subsystem: "agent",
			Name:      "research_skips_total",
			Help:      "Research node runs that reused seeded research.",
		}, []string{"pipeline"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "veriyield",
			Subsystem: "agent",
			Name:      "node_duration_seconds",
			Help:      "Wall time per pipeline node.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"pipeline", "node"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups, m.generations, m.researchSkips, m.nodeDuration)
	}
	return m
}

func (m *Metrics) lookup(pipeline, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(pipeline, outcome).Inc()
}

func (m *Metrics) generation(pipeline, outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(pipeline, outcome).Inc()
}

func (m *Metrics) researchSkipped(pipeline string) {
	if m == nil {
		return
	}
	m.researchSkips.WithLabelValues(pipeline).Inc()
}

func (m *Metrics) observeNode(pipeline, node string, d time.Duration) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(pipeline, node).Observe(d.Seconds())
}
