package supervisor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded by RecordFetch.
const (
	OutcomeReady = "ready"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Metrics collects Prometheus metrics for panels and the metrics source.
type Metrics struct {
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	activePanels    prometheus.Gauge
	snapshotsTotal  *prometheus.CounterVec
	samplesIngested prometheus.Counter
	sourceHealthy   prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
)

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInst = &Metrics{
			fetchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "proxy_panel_fetches_total",
					Help: "Total number of panel snapshot fetches by outcome",
				},
				[]string{"timeframe", "outcome"},
			),
			fetchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "proxy_panel_fetch_duration_seconds",
					Help:    "Panel snapshot fetch duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"timeframe"},
			),
			activePanels: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "proxy_panel_sessions_active",
					Help: "Number of mounted panel sessions",
				},
			),
			snapshotsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "proxy_metrics_source_snapshots_total",
					Help: "Total number of snapshots served by the metrics source",
				},
				[]string{"cache"},
			),
			samplesIngested: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "proxy_metrics_source_samples_ingested_total",
					Help: "Total number of proxy samples ingested",
				},
			),
			sourceHealthy: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "proxy_panel_source_healthy",
					Help: "Metrics source health status (1 = healthy, 0 = unhealthy)",
				},
			),
		}
	})
	return metricsInst
}

// RecordFetch records a finished panel fetch.
func (m *Metrics) RecordFetch(timeframe, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if timeframe == "" {
		timeframe = "unknown"
	}
	m.fetchesTotal.WithLabelValues(timeframe, outcome).Inc()
	m.fetchDuration.WithLabelValues(timeframe).Observe(duration.Seconds())
}

// UpdateActivePanels sets the mounted panel gauge.
func (m *Metrics) UpdateActivePanels(count int) {
	if m == nil {
		return
	}
	m.activePanels.Set(float64(count))
}

// RecordSnapshot records a snapshot served by the source; cache is
// "hit", "miss" or "off".
func (m *Metrics) RecordSnapshot(cache string) {
	if m == nil {
		return
	}
	m.snapshotsTotal.WithLabelValues(cache).Inc()
}

// RecordSamples records ingested samples.
func (m *Metrics) RecordSamples(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.samplesIngested.Add(float64(n))
}

// UpdateSourceHealth updates the metrics source health gauge.
func (m *Metrics) UpdateSourceHealth(healthy bool) {
	if m == nil {
		return
	}
	if healthy {
		m.sourceHealthy.Set(1)
	} else {
		m.sourceHealthy.Set(0)
	}
}
