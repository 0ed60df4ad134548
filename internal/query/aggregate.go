package query

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/validation"
)

// ResultRow is one group of an aggregation result. Null marks the row that
// collects records with no value for the grouping dimension; its Group label
// is empty.
type ResultRow struct {
	Group  string    `json:"group"`
	Null   bool      `json:"null,omitempty"`
	Values []float64 `json:"values"`
}

// ResultTable is the output of one aggregation pass: one row per group, one
// value column per requested reduction.
type ResultTable struct {
	Dimension Dimension   `json:"dimension"`
	Columns   []string    `json:"columns"`
	Rows      []ResultRow `json:"rows"`
}

// ColumnIndex returns the position of a named result column.
func (t *ResultTable) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// Aggregate groups view by spec.GroupBy, applies every reduction to each
// group and returns one row per group. Records with no value for the
// dimension form their own null group, ordered last — except day grouping,
// which always returns exactly seven rows in Monday-to-Sunday order with
// zero-filled absences, and street grouping, which only considers records
// with a reportable street name. The input view is never mutated.
func Aggregate(view View, spec AggregationSpec) (*ResultTable, error) {
	if err := validation.ValidateStruct(spec); err != nil {
		return nil, err
	}

	columns := make([]string, len(spec.Reductions))
	for i, red := range spec.Reductions {
		columns[i] = red.columnName()
		for _, prev := range columns[:i] {
			if prev == columns[i] {
				return nil, fmt.Errorf("duplicate result column %q", columns[i])
			}
		}
	}

	groups, byKey := accumulate(view, spec)
	if spec.GroupBy == DimDay {
		groups = reindexWeek(byKey, len(spec.Reductions))
	} else {
		orderGroups(groups, spec.GroupBy)
	}

	table := &ResultTable{
		Dimension: spec.GroupBy,
		Columns:   columns,
		Rows:      make([]ResultRow, len(groups)),
	}
	for i, g := range groups {
		table.Rows[i] = ResultRow{Group: g.key.label, Null: g.key.null, Values: g.reduce(spec.Reductions)}
	}

	if spec.TopN != nil {
		if err := rankTopN(table, *spec.TopN); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// NarrowByGroup returns the subsequence of view falling in the named group
// of the dimension. Only labeled groups can be narrowed to; the null group
// has no label to select.
func NarrowByGroup(view View, dim Dimension, group string) View {
	out := make(View, 0, len(view))
	for _, rec := range view {
		if key, _, ok := groupOf(rec, dim); ok && !key.null && key.label == group {
			out = append(out, rec)
		}
	}
	return out
}

// HasGroup reports whether any record of view falls in the named group of
// the dimension.
func HasGroup(view View, dim Dimension, group string) bool {
	for _, rec := range view {
		if key, _, ok := groupOf(rec, dim); ok && !key.null && key.label == group {
			return true
		}
	}
	return false
}

// groupKey identifies one group of a dimension.
type groupKey struct {
	label string
	null  bool
}

// groupAccum carries one group's running state: discovery position is the
// slice position, ordering key for sorted dimensions, count and per-field
// sums for the reductions.
type groupAccum struct {
	key     groupKey
	sortKey float64
	count   int
	sums    []float64
}

// reduce finalizes the group's value for each reduction. A zero-count group
// (possible only through weekday zero-fill) reduces to all zeros.
func (g *groupAccum) reduce(reductions []Reduction) []float64 {
	values := make([]float64, len(reductions))
	for i, red := range reductions {
		switch red.Op {
		case OpCount:
			values[i] = float64(g.count)
		case OpSum:
			values[i] = g.sums[i]
		case OpMean:
			if g.count > 0 {
				values[i] = g.sums[i] / float64(g.count)
			}
		}
	}
	return values
}

func accumulate(view View, spec AggregationSpec) ([]*groupAccum, map[groupKey]*groupAccum) {
	groups := make([]*groupAccum, 0)
	byKey := make(map[groupKey]*groupAccum)

	for _, rec := range view {
		key, sortKey, ok := groupOf(rec, spec.GroupBy)
		if !ok {
			continue
		}
		g := byKey[key]
		if g == nil {
			g = &groupAccum{key: key, sortKey: sortKey, sums: make([]float64, len(spec.Reductions))}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.count++
		for i, red := range spec.Reductions {
			if red.Op != OpCount {
				g.sums[i] += fieldValue(rec, red.Field)
			}
		}
	}
	return groups, byKey
}

// groupOf places a record in its group for the dimension. ok is false when
// the record does not participate in the dimension at all: day grouping
// excludes records with no weekday (the week reindex has no position for
// them) and street grouping excludes non-reportable street names.
func groupOf(rec *domain.CrashRecord, dim Dimension) (key groupKey, sortKey float64, ok bool) {
	switch dim {
	case DimHour:
		if rec.Hour == nil {
			return groupKey{null: true}, 0, true
		}
		return groupKey{label: strconv.Itoa(*rec.Hour)}, float64(*rec.Hour), true
	case DimDay:
		if rec.DayName == nil {
			return groupKey{}, 0, false
		}
		return groupKey{label: *rec.DayName}, 0, true
	case DimMonth:
		if rec.MonthName == nil {
			return groupKey{null: true}, 0, true
		}
		return groupKey{label: *rec.MonthName}, float64(monthIndex(*rec.MonthName)), true
	case DimDate:
		if rec.Date == nil {
			return groupKey{null: true}, 0, true
		}
		return groupKey{label: rec.Date.Format(time.DateOnly)}, float64(rec.Date.Unix()), true
	case DimSeverity:
		if rec.SeverityLabel == nil {
			return groupKey{null: true}, 0, true
		}
		return groupKey{label: *rec.SeverityLabel}, 0, true
	case DimRoadType:
		if rec.RoadType == nil {
			return groupKey{null: true}, 0, true
		}
		return groupKey{label: *rec.RoadType}, 0, true
	case DimStreet:
		if !rec.StreetReportable {
			return groupKey{}, 0, false
		}
		return groupKey{label: *rec.StreetName}, 0, true
	case DimSpeedLimit:
		return groupKey{label: strconv.FormatFloat(rec.SpeedLimit, 'f', -1, 64)}, rec.SpeedLimit, true
	}
	return groupKey{}, 0, false
}

// fieldValue reads the named numeric field off a record. Normalization
// guarantees every field has a value, so there is no null handling here.
func fieldValue(rec *domain.CrashRecord, field Field) float64 {
	switch field {
	case FieldDeathCount:
		return float64(rec.DeathCount)
	case FieldSeriousInjuryCount:
		return float64(rec.SeriousInjuryCount)
	case FieldPedestrianDeathCount:
		return float64(rec.PedestrianDeathCount)
	case FieldBicycleDeathCount:
		return float64(rec.BicycleDeathCount)
	case FieldMotorcycleDeathCount:
		return float64(rec.MotorcycleDeathCount)
	case FieldMotorVehicleDeathCount:
		return float64(rec.MotorVehicleDeathCount)
	case FieldSpeedLimit:
		return rec.SpeedLimit
	case FieldComprehensiveCost:
		return rec.ComprehensiveCost
	}
	return 0
}

// knownField reports whether field names a reducible record field.
func knownField(field Field) bool {
	switch field {
	case FieldDeathCount, FieldSeriousInjuryCount, FieldPedestrianDeathCount,
		FieldBicycleDeathCount, FieldMotorcycleDeathCount, FieldMotorVehicleDeathCount,
		FieldSpeedLimit, FieldComprehensiveCost:
		return true
	}
	return false
}

// orderGroups arranges groups for presentation: chronological or numeric
// ascending for hour, month, date and speed limit, discovery order for the
// label dimensions. The null group always lands last.
func orderGroups(groups []*groupAccum, dim Dimension) {
	switch dim {
	case DimHour, DimMonth, DimDate, DimSpeedLimit:
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].key.null != groups[j].key.null {
				return !groups[i].key.null
			}
			return groups[i].sortKey < groups[j].sortKey
		})
	default:
		sort.SliceStable(groups, func(i, j int) bool {
			return !groups[i].key.null && groups[j].key.null
		})
	}
}

// reindexWeek rebuilds day groups as exactly seven rows in Monday-to-Sunday
// order, zero-filling weekdays absent from the input.
func reindexWeek(byKey map[groupKey]*groupAccum, reductions int) []*groupAccum {
	week := make([]*groupAccum, 0, 7)
	for _, day := range domain.WeekdayNames() {
		if g, ok := byKey[groupKey{label: day}]; ok {
			week = append(week, g)
			continue
		}
		week = append(week, &groupAccum{key: groupKey{label: day}, sums: make([]float64, reductions)})
	}
	return week
}

// rankTopN stable-sorts rows by the ranking column (descending unless asked
// otherwise, ties keeping their current order) and truncates to N.
func rankTopN(table *ResultTable, spec TopN) error {
	idx, ok := table.ColumnIndex(spec.By)
	if !ok {
		return fmt.Errorf("top-n column %q is not a result column", spec.By)
	}

	sort.SliceStable(table.Rows, func(i, j int) bool {
		if spec.Ascending {
			return table.Rows[i].Values[idx] < table.Rows[j].Values[idx]
		}
		return table.Rows[i].Values[idx] > table.Rows[j].Values[idx]
	})
	if len(table.Rows) > spec.N {
		table.Rows = table.Rows[:spec.N]
	}
	return nil
}

// monthIndex maps a month name to its calendar position, 1 through 12.
func monthIndex(name string) int {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return int(m)
		}
	}
	return 0
}
