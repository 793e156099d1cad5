// Package metrics exposes run counters of the sort pipeline to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "uniqsort"

type Metrics struct {
	TokensRead     prometheus.Counter
	TokensRejected prometheus.Counter
	TokensAccepted prometheus.Counter
	ChunksWritten  prometheus.Counter
	TokensEmitted  prometheus.Counter
	Duplicates     prometheus.Counter
	Failures       *prometheus.CounterVec
	PhaseDuration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		TokensRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_read_total",
			Help:      "Raw tokens split from the input, valid or not",
		}),
		TokensRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_rejected_total",
			Help:      "Raw tokens that normalized to nothing",
		}),
		TokensAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_accepted_total",
			Help:      "Tokens inserted into a working set",
		}),
		ChunksWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Chunk files flushed to disk",
		}),
		TokensEmitted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_emitted_total",
			Help:      "Tokens written to the final output",
		}),
		Duplicates: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_suppressed_total",
			Help:      "Cross-chunk duplicates dropped by the merge",
		}),
		Failures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Best-effort failures by kind",
		}, []string{"kind"}),
		PhaseDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each pipeline phase",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
		}, []string{"phase"}),
	}
}

func (m *Metrics) AddTokensRead(n int) {
	if m == nil {
		return
	}
	m.TokensRead.Add(float64(n))
}

func (m *Metrics) AddTokensRejected(n int) {
	if m == nil {
		return
	}
	m.TokensRejected.Add(float64(n))
}

func (m *Metrics) IncTokensAccepted() {
	if m == nil {
		return
	}
	m.TokensAccepted.Inc()
}

func (m *Metrics) IncChunksWritten() {
	if m == nil {
		return
	}
	m.ChunksWritten.Inc()
}

func (m *Metrics) IncTokensEmitted() {
	if m == nil {
		return
	}
	m.TokensEmitted.Inc()
}

func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.Duplicates.Inc()
}

func (m *Metrics) IncFailure(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
