package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seismic_intensity"

// Metrics holds the Prometheus counters, histograms, and gauges for intensity
// processing.
type Metrics struct {
	RecordsDecoded prometheus.Counter
	DecodeErrors   prometheus.Counter

	// Per station-event metrics.
	StationEvents   *prometheus.CounterVec // labels: status={success,partial,failed}
	StationFailures *prometheus.CounterVec // labels: kind, stage
	StationDuration prometheus.Histogram
	WorkersInFlight prometheus.Gauge

	// Batch metrics.
	BatchSize     prometheus.Histogram
	BatchDuration prometheus.Histogram
	ResultsLoaded *prometheus.CounterVec // labels: sink
	LoadErrors    *prometheus.CounterVec // labels: sink

	WatcherRunning prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_decoded_total",
			Help:      "Total waveform records decoded from input files.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total input files that could not be decoded.",
		}),
		StationEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_events_total",
			Help:      "Station events processed, by result status.",
		}, []string{"status"}),
		StationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_failures_total",
			Help:      "Failed station events, by error kind and stage.",
		}, []string{"kind", "stage"}),
		StationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "station_processing_duration_seconds",
			Help:      "Duration of preprocessing, extraction and computation for one station event.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		WorkersInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_in_flight",
			Help:      "Station events currently being processed.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of station events per batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete decode-process-load batch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ResultsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_loaded_total",
			Help:      "Intensity results written, by sink.",
		}, []string{"sink"}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Failed batch writes, by sink.",
		}, []string{"sink"}),
		WatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watcher_running",
			Help:      "1 when the directory watcher is active, 0 when shut down.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsDecoded,
		m.DecodeErrors,
		m.StationEvents,
		m.StationFailures,
		m.StationDuration,
		m.WorkersInFlight,
		m.BatchSize,
		m.BatchDuration,
		m.ResultsLoaded,
		m.LoadErrors,
		m.WatcherRunning,
	}
}
