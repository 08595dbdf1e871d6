package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	queryDuration *prometheus.HistogramVec
	rebuilds      *prometheus.CounterVec
	indexedTools  prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolcatalog_query_duration_seconds",
				Help:    "Duration of catalog queries in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op", "status"},
		),
		rebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolcatalog_index_rebuilds_total",
				Help: "Total number of index rebuild attempts",
			},
			[]string{"status"},
		),
		indexedTools: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolcatalog_index_tools",
				Help: "Number of tools in the active index",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveQuery(op, status string, duration time.Duration) {
	p.queryDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveRebuild(err error) {
	p.rebuilds.WithLabelValues(statusOf(err)).Inc()
}

func (p *PrometheusMetrics) SetIndexedTools(n int) {
	p.indexedTools.Set(float64(n))
}

var _ Metrics = (*PrometheusMetrics)(nil)
