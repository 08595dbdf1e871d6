package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveQuery(OpSearch, StatusOK, 2*time.Millisecond)
	m.ObserveRebuild(nil)
	m.SetIndexedTools(5)

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.GetName())
	}

	assert.Contains(t, names, "toolcatalog_query_duration_seconds")
	assert.Contains(t, names, "toolcatalog_index_rebuilds_total")
	assert.Contains(t, names, "toolcatalog_index_tools")
}

func TestPrometheusMetrics_Values(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveRebuild(nil)
	m.ObserveRebuild(nil)
	m.ObserveRebuild(errors.New("bad record"))
	m.SetIndexedTools(3)
	m.SetIndexedTools(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rebuilds.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues(StatusError)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.indexedTools))

	m.ObserveQuery(OpGet, StatusNotFound, time.Millisecond)
	m.ObserveQuery(OpGet, StatusNotFound, time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.queryDuration))
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NewNoopMetrics()
	assert.NotPanics(t, func() {
		m.ObserveQuery(OpList, StatusOK, time.Second)
		m.ObserveRebuild(errors.New("ignored"))
		m.SetIndexedTools(1)
	})
}
