package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/s2"
)

// minMarkerSize is the map marker floor for records with no posted speed
// limit, so zero-speed crashes still render at a visible size.
const minMarkerSize = 5.0

// timestampLayouts are the wall-clock formats observed across export
// generations. Tried in order; first match wins.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
}

// CoercionReport tallies non-blank cells that failed to parse and were
// replaced by their per-field default during normalization. Blank cells take
// defaults silently and are not counted — absence is routine, garbage is not.
type CoercionReport struct {
	ByColumn map[string]int
}

func newCoercionReport() *CoercionReport {
	return &CoercionReport{ByColumn: make(map[string]int)}
}

func (r *CoercionReport) warn(column string) {
	r.ByColumn[column]++
}

// Total returns the number of coerced cells across all columns.
func (r *CoercionReport) Total() int {
	n := 0
	for _, c := range r.ByColumn {
		n += c
	}
	return n
}

// NormalizeTable converts a raw crash export into a typed CrashDataset.
// Every row survives: cells that fail to parse fall back to the per-field
// default (zero for counts and amounts, nil for nullable fields) and are
// tallied in the returned CoercionReport. Normalization is deterministic —
// the same table always yields the same records.
func NormalizeTable(table *RawTable) (*CrashDataset, *CoercionReport) {
	idx := make(map[string]int, len(table.Header))
	for i, h := range table.Header {
		idx[h] = i
	}

	report := newCoercionReport()
	records := make([]CrashRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, normalizeRow(rowReader{idx: idx, row: row}, report))
	}

	return &CrashDataset{
		Records: records,
		Source: SourceInfo{
			Path:     table.Path,
			RowCount: len(records),
			LoadedAt: clock.Now(),
		},
	}, report
}

// rowReader resolves cells by column name for one raw row. Rows shorter than
// the header read as blank in the missing positions.
type rowReader struct {
	idx map[string]int
	row RawRow
}

func (r rowReader) get(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.row.Cells) {
		return ""
	}
	return strings.TrimSpace(r.row.Cells[i])
}

func normalizeRow(row rowReader, report *CoercionReport) CrashRecord {
	var rec CrashRecord
	warn := func(col string, warned bool) {
		if warned {
			report.warn(col)
		}
	}

	rec.ID = row.get(ColID)
	if rec.ID == "" {
		rec.ID = fallbackID(row)
		report.warn(ColID)
	}

	ts, warned := parseTimestamp(row.get(ColTimestamp))
	warn(ColTimestamp, warned)
	rec.Timestamp = ts
	if ts != nil {
		hour := ts.Hour()
		day := ts.Weekday().String()
		month := ts.Month().String()
		date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
		rec.Hour = &hour
		rec.DayName = &day
		rec.MonthName = &month
		rec.Date = &date
	}

	code, label, warned := parseSeverity(row.get(ColSeverity))
	warn(ColSeverity, warned)
	rec.SeverityCode = code
	rec.SeverityLabel = label

	onSystem, warned := parseOnSystem(row.get(ColOnSystem))
	warn(ColOnSystem, warned)
	rec.OnSystem = onSystem
	if onSystem != nil {
		roadType := RoadTypeOffSystem
		if *onSystem {
			roadType = RoadTypeOnSystem
		}
		rec.RoadType = &roadType
	}

	rec.DeathCount, warned = parseCount(row.get(ColDeaths))
	warn(ColDeaths, warned)
	rec.SeriousInjuryCount, warned = parseCount(row.get(ColSeriousInjuries))
	warn(ColSeriousInjuries, warned)
	rec.PedestrianDeathCount, warned = parseCount(row.get(ColPedestrianDeaths))
	warn(ColPedestrianDeaths, warned)
	rec.BicycleDeathCount, warned = parseCount(row.get(ColBicycleDeaths))
	warn(ColBicycleDeaths, warned)
	rec.MotorcycleDeathCount, warned = parseCount(row.get(ColMotorcycleDeaths))
	warn(ColMotorcycleDeaths, warned)
	rec.MotorVehicleDeathCount, warned = parseCount(row.get(ColMotorVehicleDeaths))
	warn(ColMotorVehicleDeaths, warned)

	rec.SpeedLimit, warned = parseNonNegativeFloat(row.get(ColSpeedLimit))
	warn(ColSpeedLimit, warned)
	rec.ComprehensiveCost, warned = parseNonNegativeFloat(row.get(ColCost))
	warn(ColCost, warned)

	rec.Latitude, warned = parseCoordinate(row.get(ColLatitude))
	warn(ColLatitude, warned)
	rec.Longitude, warned = parseCoordinate(row.get(ColLongitude))
	warn(ColLongitude, warned)
	if rec.Latitude != nil && rec.Longitude != nil {
		// A pair that parses but lies off the globe is as unusable as one
		// that doesn't parse; both coordinates go null together.
		if !s2.LatLngFromDegrees(*rec.Latitude, *rec.Longitude).IsValid() {
			rec.Latitude, rec.Longitude = nil, nil
			report.warn(ColLatitude)
		}
	}

	rec.StreetName = cleanStreet(row.get(ColStreetName))
	rec.StreetReportable = rec.StreetName != nil && streetReportable(*rec.StreetName)

	rec.UnitsInvolved = row.get(ColUnitsInvolved)

	rec.MapMarkerSize = minMarkerSize
	if rec.SpeedLimit > 0 {
		rec.MapMarkerSize = rec.SpeedLimit
	}
	rec.IsHighSeverity = rec.DeathCount > 0 || rec.SeriousInjuryCount > 0
	rec.IsVRUFatal = rec.PedestrianDeathCount > 0 || rec.BicycleDeathCount > 0

	return rec
}

// parseTimestamp parses a local civil timestamp. The export writes US/Central
// wall-clock time with no offset, so the value is kept as-is with no zone
// math. Returns nil (and a warning for non-blank input) on failure.
func parseTimestamp(s string) (*time.Time, bool) {
	if s == "" {
		return nil, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, false
		}
	}
	return nil, true
}

// parseSeverity maps a crash_sev_id cell to its code and label. Codes outside
// the fixed table keep their numeric value but yield a nil label.
func parseSeverity(s string) (*int, *string, bool) {
	if s == "" {
		return nil, nil, false
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return nil, nil, true
	}
	label, ok := severityLabels[code]
	if !ok {
		return &code, nil, true
	}
	return &code, &label, false
}

var (
	onSystemTrue  = map[string]bool{"true": true, "t": true, "y": true, "yes": true, "1": true}
	onSystemFalse = map[string]bool{"false": true, "f": true, "n": true, "no": true, "0": true}
)

// parseOnSystem reads the tri-state onsys_fl flag. Export generations have
// written TRUE/True/T/Y/1 and their negatives; anything else is null.
func parseOnSystem(s string) (*bool, bool) {
	if s == "" {
		return nil, false
	}
	lowered := strings.ToLower(s)
	if onSystemTrue[lowered] {
		v := true
		return &v, false
	}
	if onSystemFalse[lowered] {
		v := false
		return &v, false
	}
	return nil, true
}

// parseCount parses a non-negative integer count column, returning 0 on
// failure. Negative counts violate the source contract and clamp to 0.
func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true
	}
	if n < 0 {
		return 0, true
	}
	return n, false
}

// parseNonNegativeFloat parses a non-negative numeric column (speed limit,
// comprehensive cost), returning 0 on failure and clamping negatives to 0.
func parseNonNegativeFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true
	}
	if v < 0 {
		return 0, true
	}
	return v, false
}

// parseCoordinate parses one latitude or longitude cell. Unlike counts, a
// failed coordinate is null rather than zero — (0, 0) is a real place.
func parseCoordinate(s string) (*float64, bool) {
	if s == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, true
	}
	return &v, false
}

// cleanStreet trims a street name cell, mapping blanks to nil.
func cleanStreet(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// streetReportable rejects the source system's placeholder street values.
// The check is a substring match because placeholders appear embedded in
// otherwise plausible names ("UNKNOWN ACCESS RD").
func streetReportable(name string) bool {
	upper := strings.ToUpper(name)
	return !strings.Contains(upper, "NOT REPORTED") && !strings.Contains(upper, "UNKNOWN")
}

// fallbackID produces a deterministic ID for rows whose ID cell is blank, so
// re-loading the same file always yields the same record identity.
func fallbackID(row rowReader) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%d",
		row.get(ColTimestamp),
		row.get(ColStreetName),
		row.get(ColLatitude),
		row.get(ColLongitude),
		row.row.Line,
	)
	hash := sha256.Sum256([]byte(input))
	return "crash-" + hex.EncodeToString(hash[:8])
}
