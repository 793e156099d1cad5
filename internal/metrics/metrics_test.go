package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.AddTokensRead(5)
	m.AddTokensRejected(2)
	m.IncTokensAccepted()
	m.IncChunksWritten()
	m.IncTokensEmitted()
	m.IncDuplicates()
	m.IncDuplicates()
	m.IncFailure("chunk-write")
	m.ObservePhase("merge", 20*time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.TokensRead))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChunksWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensEmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Duplicates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("chunk-write")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AddTokensRead(1)
		m.AddTokensRejected(1)
		m.IncTokensAccepted()
		m.IncChunksWritten()
		m.IncTokensEmitted()
		m.IncDuplicates()
		m.IncFailure("x")
		m.ObservePhase("x", time.Second)
	})
}
