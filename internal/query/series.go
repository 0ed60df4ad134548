package query

import (
	"fmt"
	"sort"
	"time"
)

// SeriesPoint is one calendar date of a cumulative series: the per-date sum
// and the running total up to and including that date.
type SeriesPoint struct {
	Date       time.Time `json:"date"`
	Total      float64   `json:"total"`
	Cumulative float64   `json:"cumulative"`
}

// CumulativeCostSeries sums the named field per calendar date and carries a
// running total across dates in ascending order. Records without a parsed
// date have no calendar position and are excluded. With a non-negative field
// the running total is monotonically non-decreasing.
func CumulativeCostSeries(view View, field Field) ([]SeriesPoint, error) {
	if !knownField(field) {
		return nil, fmt.Errorf("unknown series field %q", field)
	}

	totals := make(map[time.Time]float64)
	for _, rec := range view {
		if rec.Date == nil {
			continue
		}
		totals[*rec.Date] += fieldValue(rec, field)
	}

	dates := make([]time.Time, 0, len(totals))
	for date := range totals {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	series := make([]SeriesPoint, len(dates))
	running := 0.0
	for i, date := range dates {
		running += totals[date]
		series[i] = SeriesPoint{Date: date, Total: totals[date], Cumulative: running}
	}
	return series, nil
}
