package asset

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for image resolution.
type Metrics struct {
	probeFailures    *prometheus.CounterVec
	terminalFailures prometheus.Counter
	cacheLookups     *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the instance registered with the global registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors with reg and panics on a
// registration conflict. Tests pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		probeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "folio",
				Subsystem: "asset",
				Name:      "probe_failures_total",
				Help:      "Candidate sources that failed to load, by extension.",
			},
			[]string{"extension"},
		),
		terminalFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "folio",
				Subsystem: "asset",
				Name:      "terminal_failures_total",
				Help:      "References whose candidate extensions were all exhausted.",
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "folio",
				Subsystem: "asset",
				Name:      "cache_lookups_total",
				Help:      "Resolution cache lookups by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.probeFailures, m.terminalFailures, m.cacheLookups)
	return m
}

func (m *Metrics) probeFailed(ext string) {
	if m == nil {
		return
	}
	m.probeFailures.WithLabelValues(ext).Inc()
}

func (m *Metrics) terminal() {
	if m == nil {
		return
	}
	m.terminalFailures.Inc()
}

func (m *Metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}
