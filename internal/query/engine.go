package query

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
)

// Engine runs the package's operations with logging and metrics attached.
// The operations themselves are pure package functions; Engine is the
// instrumented front the presentation layer talks to, so every recomputation
// pass shows up in the process metrics.
type Engine struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an Engine with the given observability.
func NewEngine(logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{logger: logger, metrics: metrics}
}

// Filter applies spec to view. A rejected spec is returned as an error and
// nothing executes.
func (e *Engine) Filter(view View, spec FilterSpec) (View, error) {
	start := time.Now()

	out, err := Filter(view, spec)
	if err != nil {
		e.logger.Warn("filter spec rejected", "error", err)
		return nil, err
	}

	e.metrics.FilterOps.Inc()
	e.metrics.FilterDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("filter pass", "records_in", len(view), "records_out", len(out))
	return out, nil
}

// Aggregate runs spec over view.
func (e *Engine) Aggregate(view View, spec AggregationSpec) (*ResultTable, error) {
	start := time.Now()

	table, err := Aggregate(view, spec)
	if err != nil {
		e.logger.Warn("aggregation spec rejected", "error", err, "dimension", string(spec.GroupBy))
		return nil, err
	}

	e.metrics.AggregateOps.WithLabelValues(string(spec.GroupBy)).Inc()
	e.metrics.AggregateDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("aggregate pass",
		"dimension", string(spec.GroupBy),
		"records_in", len(view),
		"groups_out", len(table.Rows),
	)
	return table, nil
}

// CumulativeCostSeries builds the per-date running total of a field. It
// counts as a date aggregation in the metrics.
func (e *Engine) CumulativeCostSeries(view View, field Field) ([]SeriesPoint, error) {
	start := time.Now()

	series, err := CumulativeCostSeries(view, field)
	if err != nil {
		e.logger.Warn("series field rejected", "error", err)
		return nil, err
	}

	e.metrics.AggregateOps.WithLabelValues(string(DimDate)).Inc()
	e.metrics.AggregateDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("cumulative series pass", "field", string(field), "points", len(series))
	return series, nil
}

// Summarize totals a view.
func (e *Engine) Summarize(view View) Totals {
	return Summarize(view)
}

// MapReady returns the coordinate-complete subset of view.
func (e *Engine) MapReady(view View) View {
	return MapReady(view)
}

// MapBounds computes the viewport envelope of view.
func (e *Engine) MapBounds(view View) (Bounds, bool) {
	return MapBounds(view)
}

// StreetNames lists the dataset's reportable street vocabulary.
func (e *Engine) StreetNames(ds *domain.CrashDataset) []string {
	return StreetNames(ds)
}
