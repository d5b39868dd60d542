package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterWithFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.StationEvents))
	require.NoError(t, reg.Register(m.BatchSize))

	m.StationEvents.WithLabelValues("success").Add(3)
	m.StationEvents.WithLabelValues("failed").Inc()

	assert.InDelta(t, 3.0, testutil.ToFloat64(m.StationEvents.WithLabelValues("success")), 1e-12)
	assert.Equal(t, 2, testutil.CollectAndCount(m.StationEvents))
}

func TestMetrics_CollectorsAreDistinct(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}
}
