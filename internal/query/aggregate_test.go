package query_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/query"
)

func countBy(dim query.Dimension) query.AggregationSpec {
	return query.AggregationSpec{
		GroupBy:    dim,
		Reductions: []query.Reduction{{Op: query.OpCount}},
	}
}

func TestAggregate_Weekday(t *testing.T) {
	t.Run("filtered scenario counts by day", func(t *testing.T) {
		view := makeView(t, scenarioRows()...)
		view, err := query.Filter(view, query.FilterSpec{
			Severities: []string{domain.SeverityFatal},
			Days:       []string{"Monday", "Tuesday"},
			HourLo:     0,
			HourHi:     23,
		})
		require.NoError(t, err)

		table, err := query.Aggregate(view, countBy(query.DimDay))
		require.NoError(t, err)

		want := &query.ResultTable{
			Dimension: query.DimDay,
			Columns:   []string{"count"},
			Rows: []query.ResultRow{
				{Group: "Monday", Values: []float64{1}},
				{Group: "Tuesday", Values: []float64{1}},
				{Group: "Wednesday", Values: []float64{0}},
				{Group: "Thursday", Values: []float64{0}},
				{Group: "Friday", Values: []float64{0}},
				{Group: "Saturday", Values: []float64{0}},
				{Group: "Sunday", Values: []float64{0}},
			},
		}
		if diff := cmp.Diff(want, table); diff != "" {
			t.Fatalf("weekday table mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty view still yields the full week", func(t *testing.T) {
		table, err := query.Aggregate(query.View{}, countBy(query.DimDay))
		require.NoError(t, err)

		require.Len(t, table.Rows, 7)
		assert.Equal(t, "Monday", table.Rows[0].Group)
		assert.Equal(t, "Sunday", table.Rows[6].Group)
		for _, row := range table.Rows {
			assert.Equal(t, []float64{0}, row.Values)
		}
	})

	t.Run("records without a weekday are left out", func(t *testing.T) {
		view := makeView(t,
			map[string]string{domain.ColID: "1", domain.ColTimestamp: "garbage"},
			map[string]string{domain.ColID: "2", domain.ColTimestamp: "2021-04-26 08:15:00"},
		)

		table, err := query.Aggregate(view, countBy(query.DimDay))
		require.NoError(t, err)

		require.Len(t, table.Rows, 7)
		assert.Equal(t, []float64{1}, table.Rows[0].Values, "Monday")
		total := 0.0
		for _, row := range table.Rows {
			total += row.Values[0]
		}
		assert.Equal(t, 1.0, total)
	})
}

func TestAggregate_GroupOrdering(t *testing.T) {
	t.Run("label dimensions keep discovery order with nulls last", func(t *testing.T) {
		view := makeView(t,
			map[string]string{domain.ColID: "1", domain.ColSeverity: "3"},
			map[string]string{domain.ColID: "2", domain.ColSeverity: "1"},
			map[string]string{domain.ColID: "3", domain.ColSeverity: "9"},
			map[string]string{domain.ColID: "4", domain.ColSeverity: "3"},
		)

		table, err := query.Aggregate(view, countBy(query.DimSeverity))
		require.NoError(t, err)

		want := &query.ResultTable{
			Dimension: query.DimSeverity,
			Columns:   []string{"count"},
			Rows: []query.ResultRow{
				{Group: domain.SeverityMinorInjury, Values: []float64{2}},
				{Group: domain.SeverityFatal, Values: []float64{1}},
				{Group: "", Null: true, Values: []float64{1}},
			},
		}
		if diff := cmp.Diff(want, table); diff != "" {
			t.Fatalf("severity table mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hours ascend numerically with nulls last", func(t *testing.T) {
		view := makeView(t,
			map[string]string{domain.ColID: "1", domain.ColTimestamp: "2021-04-26 22:00:00"},
			map[string]string{domain.ColID: "2", domain.ColTimestamp: "2021-04-26 08:30:00"},
			map[string]string{domain.ColID: "3", domain.ColTimestamp: "bad"},
			map[string]string{domain.ColID: "4", domain.ColTimestamp: "2021-04-26 08:45:00"},
		)

		table, err := query.Aggregate(view, countBy(query.DimHour))
		require.NoError(t, err)

		require.Len(t, table.Rows, 3)
		assert.Equal(t, "8", table.Rows[0].Group)
		assert.Equal(t, "22", table.Rows[1].Group)
		assert.True(t, table.Rows[2].Null)
	})

	t.Run("months follow the calendar", func(t *testing.T) {
		view := makeView(t,
			map[string]string{domain.ColID: "1", domain.ColTimestamp: "2021-03-05 10:00:00"},
			map[string]string{domain.ColID: "2", domain.ColTimestamp: "2021-01-10 10:00:00"},
			map[string]string{domain.ColID: "3", domain.ColTimestamp: "2021-03-09 10:00:00"},
		)

		table, err := query.Aggregate(view, countBy(query.DimMonth))
		require.NoError(t, err)

		require.Len(t, table.Rows, 2)
		assert.Equal(t, "January", table.Rows[0].Group)
		assert.Equal(t, "March", table.Rows[1].Group)
		assert.Equal(t, []float64{2}, table.Rows[1].Values)
	})

	t.Run("speed limits ascend numerically not lexically", func(t *testing.T) {
		view := makeView(t,
			map[string]string{domain.ColID: "1", domain.ColSpeedLimit: "45"},
			map[string]string{domain.ColID: "2", domain.ColSpeedLimit: "5"},
			map[string]string{domain.ColID: "3", domain.ColSpeedLimit: "30"},
		)

		table, err := query.Aggregate(view, countBy(query.DimSpeedLimit))
		require.NoError(t, err)

		groups := make([]string, len(table.Rows))
		for i, row := range table.Rows {
			groups[i] = row.Group
		}
		assert.Equal(t, []string{"5", "30", "45"}, groups)
	})

	t.Run("street grouping only sees reportable names", func(t *testing.T) {
		view := makeView(t,
			map[string]string{domain.ColID: "1", domain.ColStreetName: "LAMAR BLVD"},
			map[string]string{domain.ColID: "2", domain.ColStreetName: "NOT REPORTED"},
			map[string]string{domain.ColID: "3"},
			map[string]string{domain.ColID: "4", domain.ColStreetName: "LAMAR BLVD"},
		)

		table, err := query.Aggregate(view, countBy(query.DimStreet))
		require.NoError(t, err)

		want := &query.ResultTable{
			Dimension: query.DimStreet,
			Columns:   []string{"count"},
			Rows:      []query.ResultRow{{Group: "LAMAR BLVD", Values: []float64{2}}},
		}
		if diff := cmp.Diff(want, table); diff != "" {
			t.Fatalf("street table mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestAggregate_Reductions(t *testing.T) {
	view := makeView(t,
		map[string]string{domain.ColID: "1", domain.ColSeverity: "1", domain.ColDeaths: "2", domain.ColCost: "3000000"},
		map[string]string{domain.ColID: "2", domain.ColSeverity: "1", domain.ColDeaths: "1", domain.ColCost: "1000000"},
		map[string]string{domain.ColID: "3", domain.ColSeverity: "0", domain.ColDeaths: "0", domain.ColCost: "20000"},
	)

	t.Run("count sum and mean per group", func(t *testing.T) {
		table, err := query.Aggregate(view, query.AggregationSpec{
			GroupBy: query.DimSeverity,
			Reductions: []query.Reduction{
				{Op: query.OpCount},
				{Op: query.OpSum, Field: query.FieldDeathCount},
				{Op: query.OpMean, Field: query.FieldComprehensiveCost, As: "avg_cost"},
			},
		})
		require.NoError(t, err)

		want := &query.ResultTable{
			Dimension: query.DimSeverity,
			Columns:   []string{"count", "sum_death_count", "avg_cost"},
			Rows: []query.ResultRow{
				{Group: domain.SeverityFatal, Values: []float64{2, 3, 2000000}},
				{Group: domain.SeverityNoInjury, Values: []float64{1, 0, 20000}},
			},
		}
		if diff := cmp.Diff(want, table); diff != "" {
			t.Fatalf("reduction table mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejected specs", func(t *testing.T) {
		tests := []struct {
			name    string
			spec    query.AggregationSpec
			wantErr string
		}{
			{
				name:    "unknown dimension",
				spec:    countBy(query.Dimension("velocity")),
				wantErr: "not one of",
			},
			{
				name: "sum without a field",
				spec: query.AggregationSpec{
					GroupBy:    query.DimSeverity,
					Reductions: []query.Reduction{{Op: query.OpSum}},
				},
				wantErr: "field is required",
			},
			{
				name: "no reductions",
				spec: query.AggregationSpec{GroupBy: query.DimSeverity},
				wantErr: "reductions",
			},
			{
				name: "duplicate result column",
				spec: query.AggregationSpec{
					GroupBy: query.DimSeverity,
					Reductions: []query.Reduction{
						{Op: query.OpCount},
						{Op: query.OpCount},
					},
				},
				wantErr: "duplicate result column",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := query.Aggregate(view, tt.spec)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})
}

func TestAggregate_TopN(t *testing.T) {
	// Discovery order: SOUTH FIRST (2), LAMAR (2), BURNET (1).
	view := makeView(t,
		map[string]string{domain.ColID: "1", domain.ColStreetName: "SOUTH FIRST ST"},
		map[string]string{domain.ColID: "2", domain.ColStreetName: "LAMAR BLVD"},
		map[string]string{domain.ColID: "3", domain.ColStreetName: "SOUTH FIRST ST"},
		map[string]string{domain.ColID: "4", domain.ColStreetName: "BURNET RD"},
		map[string]string{domain.ColID: "5", domain.ColStreetName: "LAMAR BLVD"},
	)

	topStreets := func(n int, ascending bool) *query.ResultTable {
		t.Helper()
		table, err := query.Aggregate(view, query.AggregationSpec{
			GroupBy:    query.DimStreet,
			Reductions: []query.Reduction{{Op: query.OpCount}},
			TopN:       &query.TopN{By: "count", N: n, Ascending: ascending},
		})
		require.NoError(t, err)
		return table
	}

	t.Run("descending with stable ties", func(t *testing.T) {
		table := topStreets(2, false)

		require.Len(t, table.Rows, 2)
		assert.Equal(t, "SOUTH FIRST ST", table.Rows[0].Group)
		assert.Equal(t, "LAMAR BLVD", table.Rows[1].Group)
	})

	t.Run("repeat invocation ranks identically", func(t *testing.T) {
		first := topStreets(2, false)
		second := topStreets(2, false)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("rankings differ across invocations (-first +second):\n%s", diff)
		}
	})

	t.Run("n larger than group count returns every group", func(t *testing.T) {
		table := topStreets(10, false)
		assert.Len(t, table.Rows, 3)
	})

	t.Run("ascending puts the smallest group first", func(t *testing.T) {
		table := topStreets(1, true)

		require.Len(t, table.Rows, 1)
		assert.Equal(t, "BURNET RD", table.Rows[0].Group)
	})

	t.Run("unknown ranking column", func(t *testing.T) {
		_, err := query.Aggregate(view, query.AggregationSpec{
			GroupBy:    query.DimStreet,
			Reductions: []query.Reduction{{Op: query.OpCount}},
			TopN:       &query.TopN{By: "cost", N: 3},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), `top-n column "cost"`)
	})
}

func TestNarrowByGroup(t *testing.T) {
	view := makeView(t, scenarioRows()...)

	t.Run("keeps exactly the matching records", func(t *testing.T) {
		out := query.NarrowByGroup(view, query.DimSeverity, domain.SeverityFatal)
		assert.Equal(t, []string{"1", "3"}, ids(out))
	})

	t.Run("unknown group narrows to nothing", func(t *testing.T) {
		out := query.NarrowByGroup(view, query.DimSeverity, "Catastrophic")
		assert.Empty(t, out)
	})

	t.Run("the null group has no selectable label", func(t *testing.T) {
		withNull := makeView(t,
			map[string]string{domain.ColID: "1", domain.ColSeverity: "9"},
		)
		out := query.NarrowByGroup(withNull, query.DimSeverity, "")
		assert.Empty(t, out)
	})
}

func TestHasGroup(t *testing.T) {
	view := makeView(t, scenarioRows()...)

	assert.True(t, query.HasGroup(view, query.DimSeverity, domain.SeverityFatal))
	assert.True(t, query.HasGroup(view, query.DimDay, "Tuesday"))
	assert.False(t, query.HasGroup(view, query.DimSeverity, domain.SeveritySeriousInjury))
	assert.False(t, query.HasGroup(view, query.DimDay, "Friday"))
}
