package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// drought-index pipeline.
type Metrics struct {
	SnapshotsProcessed prometheus.Counter
	SPIValuesComputed  prometheus.Counter
	SPIValuesUndefined prometheus.Counter
	RecordsLoaded      prometheus.Counter
	CycleErrors        prometheus.Counter
	PipelineRunning    prometheus.Gauge
	SnapshotLocations  prometheus.Gauge
	ComputeDuration    prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SnapshotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "snapshots_processed_total",
			Help:      "Completed extract-compute-load cycles.",
		}),
		SPIValuesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "spi_values_computed_total",
			Help:      "Defined SPI values produced across all locations and scales.",
		}),
		SPIValuesUndefined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "spi_values_undefined_total",
			Help:      "Accumulated months left without an index (thin or degenerate fits).",
		}),
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "records_loaded_total",
			Help:      "Regional and yearly records written to sinks.",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "cycle_errors_total",
			Help:      "Failed extract-compute-load cycles.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drought_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		SnapshotLocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drought_etl",
			Name:      "snapshot_locations",
			Help:      "Location series in the most recent snapshot.",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drought_etl",
			Name:      "compute_duration_seconds",
			Help:      "Duration of a full snapshot recompute.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	prometheus.MustRegister(
		m.SnapshotsProcessed,
		m.SPIValuesComputed,
		m.SPIValuesUndefined,
		m.RecordsLoaded,
		m.CycleErrors,
		m.PipelineRunning,
		m.SnapshotLocations,
		m.ComputeDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SnapshotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "snapshots_processed_total"}),
		SPIValuesComputed:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "spi_values_computed_total"}),
		SPIValuesUndefined: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "spi_values_undefined_total"}),
		RecordsLoaded:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "records_loaded_total"}),
		CycleErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "cycle_errors_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "drought_etl", Name: "pipeline_running"}),
		SnapshotLocations:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "drought_etl", Name: "snapshot_locations"}),
		ComputeDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "drought_etl", Name: "compute_duration_seconds"}),
	}
}
