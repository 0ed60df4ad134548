package query_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
	"github.com/couchcryptid/crash-data-engine/internal/query"
)

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func TestEngine(t *testing.T) {
	engine := query.NewEngine(slog.Default(), newTestMetrics())
	view := makeView(t, scenarioRows()...)

	t.Run("filter pass", func(t *testing.T) {
		out, err := engine.Filter(view, query.FilterSpec{
			Severities: []string{domain.SeverityFatal},
			HourLo:     0,
			HourHi:     23,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "3"}, ids(out))
	})

	t.Run("rejected filter spec executes nothing", func(t *testing.T) {
		_, err := engine.Filter(view, query.FilterSpec{HourLo: 9, HourHi: 3})
		assert.Error(t, err)
	})

	t.Run("aggregate pass", func(t *testing.T) {
		table, err := engine.Aggregate(view, query.AggregationSpec{
			GroupBy:    query.DimDay,
			Reductions: []query.Reduction{{Op: query.OpCount}},
		})
		require.NoError(t, err)
		assert.Len(t, table.Rows, 7)
	})

	t.Run("rejected aggregation spec executes nothing", func(t *testing.T) {
		_, err := engine.Aggregate(view, query.AggregationSpec{GroupBy: "velocity"})
		assert.Error(t, err)
	})

	t.Run("cumulative series pass", func(t *testing.T) {
		series, err := engine.CumulativeCostSeries(view, query.FieldComprehensiveCost)
		require.NoError(t, err)
		assert.Len(t, series, 2)
	})

	t.Run("derived views and totals", func(t *testing.T) {
		assert.Equal(t, 3, engine.Summarize(view).Crashes)
		assert.Empty(t, engine.MapReady(view))

		_, ok := engine.MapBounds(view)
		assert.False(t, ok)

		assert.Empty(t, engine.StreetNames(makeDataset(t, scenarioRows()...)))
	})
}
