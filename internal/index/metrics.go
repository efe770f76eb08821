package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors owned by the local index.
// A nil *Metrics disables instrumentation.
type Metrics struct {
	// entries is the number of committed entries.
	entries prometheus.Gauge

	// addsTotal counts Add calls by outcome: "ok", "embedding", "dimension",
	// or "persistence".
	addsTotal *prometheus.CounterVec

	// searchDurationSeconds records the latency of Search.
	searchDurationSeconds prometheus.Histogram
}

// NewMetrics registers the index collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "index",
			Name:      "entries",
			Help:      "Number of committed entries in the local vector index.",
		}),

		addsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "index",
			Name:      "adds_total",
			Help:      "Total number of Add calls, partitioned by outcome.",
		}, []string{"outcome"}),

		searchDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "index",
			Name:      "search_duration_seconds",
			Help:      "Latency of brute-force similarity search.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
	}
}

func (m *Metrics) setEntries(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}

func (m *Metrics) add(outcome string) {
	if m != nil {
		m.addsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeSearch(seconds float64) {
	if m != nil {
		m.searchDurationSeconds.Observe(seconds)
	}
}
