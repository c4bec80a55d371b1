package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's counters. Each instance owns its registry so
// tests and multiple runs in one process do not collide.
type Metrics struct {
	Registry  *prometheus.Registry
	Documents *prometheus.CounterVec
	Fetches   *prometheus.CounterVec
	Cursor    prometheus.Gauge
	Follows   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grailed_documents_total",
			Help: "Documents processed by the ingestion pipeline, by entity and outcome.",
		}, []string{"entity", "outcome"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grailed_fetches_total",
			Help: "Crawler fetch attempts, by entity and result.",
		}, []string{"entity", "result"}),
		Cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grailed_crawl_next_id",
			Help: "Next id the crawler will fetch.",
		}),
		Follows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grailed_follows_added_total",
			Help: "New listing follow pairs recorded.",
		}),
	}
	m.Registry.MustRegister(m.Documents, m.Fetches, m.Cursor, m.Follows)
	return m
}

// Document counts one ingested document. A nil Metrics is a no-op.
func (m *Metrics) Document(entity, outcome string) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) Fetch(entity, result string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(entity, result).Inc()
}

func (m *Metrics) SetCursor(next int64) {
	if m == nil {
		return
	}
	m.Cursor.Set(float64(next))
}

func (m *Metrics) AddFollows(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.Follows.Add(float64(n))
}
