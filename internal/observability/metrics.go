package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// crash data engine.
type Metrics struct {
	// Load and normalization metrics.
	DatasetsLoaded      prometheus.Counter
	DatasetLoadFailures prometheus.Counter
	RowsNormalized      prometheus.Counter
	CoercionWarnings    *prometheus.CounterVec // label: column
	LoadDuration        prometheus.Histogram

	// Cached loader metrics.
	DatasetCache *prometheus.CounterVec // label: result={hit,miss,refresh}

	// Query metrics.
	FilterOps         prometheus.Counter
	AggregateOps      *prometheus.CounterVec // label: dimension
	FilterDuration    prometheus.Histogram
	AggregateDuration prometheus.Histogram

	// Session metrics.
	DrillDownResets prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "datasets_loaded_total",
			Help:      "Total crash exports loaded and normalized successfully.",
		}),
		DatasetLoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "dataset_load_failures_total",
			Help:      "Total load attempts that failed closed.",
		}),
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "rows_normalized_total",
			Help:      "Total raw rows normalized into crash records.",
		}),
		CoercionWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "coercion_warnings_total",
			Help:      "Cells that failed to parse and took their field default, by source column.",
		}, []string{"column"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crash_engine",
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete read-parse-normalize pass.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		DatasetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "dataset_cache_total",
			Help:      "Cached loader lookups by result.",
		}, []string{"result"}),
		FilterOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "filter_ops_total",
			Help:      "Total filter passes executed.",
		}),
		AggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "aggregate_ops_total",
			Help:      "Total aggregations executed, by group-by dimension.",
		}, []string{"dimension"}),
		FilterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crash_engine",
			Name:      "filter_duration_seconds",
			Help:      "Duration of one filter pass over a dataset.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		AggregateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crash_engine",
			Name:      "aggregate_duration_seconds",
			Help:      "Duration of one aggregation pass over a view.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		DrillDownResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crash_engine",
			Name:      "drilldown_resets_total",
			Help:      "Drill-down selections dropped because the category vanished from the filtered view.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crash_engine",
			Name:      "active_sessions",
			Help:      "Sessions currently tracked by the session store.",
		}),
	}

	prometheus.MustRegister(
		m.DatasetsLoaded,
		m.DatasetLoadFailures,
		m.RowsNormalized,
		m.CoercionWarnings,
		m.LoadDuration,
		m.DatasetCache,
		m.FilterOps,
		m.AggregateOps,
		m.FilterDuration,
		m.AggregateDuration,
		m.DrillDownResets,
		m.ActiveSessions,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetsLoaded:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crash_engine", Name: "datasets_loaded_total"}),
		DatasetLoadFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crash_engine", Name: "dataset_load_failures_total"}),
		RowsNormalized:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crash_engine", Name: "rows_normalized_total"}),
		CoercionWarnings:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crash_engine", Name: "coercion_warnings_total"}, []string{"column"}),
		LoadDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "crash_engine", Name: "load_duration_seconds"}),
		DatasetCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crash_engine", Name: "dataset_cache_total"}, []string{"result"}),
		FilterOps:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crash_engine", Name: "filter_ops_total"}),
		AggregateOps:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crash_engine", Name: "aggregate_ops_total"}, []string{"dimension"}),
		FilterDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "crash_engine", Name: "filter_duration_seconds"}),
		AggregateDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "crash_engine", Name: "aggregate_duration_seconds"}),
		DrillDownResets:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crash_engine", Name: "drilldown_resets_total"}),
		ActiveSessions:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "crash_engine", Name: "active_sessions"}),
	}
}
