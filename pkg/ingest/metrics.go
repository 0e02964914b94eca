package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the ingest counters. A nil *Metrics records nothing.
type Metrics struct {
	Rows          *prometheus.CounterVec
	Batches       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
}

// NewMetrics creates the ingest metrics and registers them on reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marinedb",
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Source rows processed, by outcome (written, skipped).",
		}, []string{"outcome"}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marinedb",
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Ingest batches, by outcome (committed, aborted).",
		}, []string{"outcome"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marinedb",
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of committed ingest batches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Rows, m.Batches, m.BatchDuration)
	}
	return m
}

func (m *Metrics) row(outcome string) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(outcome).Inc()
}

func (m *Metrics) batch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(outcome).Inc()
	if outcome == outcomeCommitted {
		m.BatchDuration.Observe(seconds)
	}
}

const (
	outcomeWritten   = "written"
	outcomeSkipped   = "skipped"
	outcomeCommitted = "committed"
	outcomeAborted   = "aborted"
)
