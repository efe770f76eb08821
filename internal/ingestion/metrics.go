package ingestion

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the ingestion counters.
type Metrics struct {
	filesTotal  *prometheus.CounterVec
	chunksTotal prometheus.Counter
}

// NewMetrics creates and registers the ingestion metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		filesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Files offered for ingestion, by outcome (loaded, failed).",
		}, []string{"outcome"}),
		chunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks committed to the index.",
		}),
	}
	reg.MustRegister(m.filesTotal, m.chunksTotal)
	return m
}

func (m *Metrics) file(outcome string) {
	if m != nil {
		m.filesTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) chunks(n int) {
	if m != nil {
		m.chunksTotal.Add(float64(n))
	}
}
