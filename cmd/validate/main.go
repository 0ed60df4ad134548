// Command validate runs end-to-end integrity checks over a crash data
// export: the file loads through the real loader, normalization holds its
// invariants, the filtering and aggregation engine behaves sanely on the
// data, and the dataset profile looks like crash data.
//
// Usage:
//
//	go run ./cmd/validate -data data/crashes.csv [-strict]
//
// -strict additionally fails when any cell was coerced to a default.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crash-data-engine/internal/adapter/csvfile"
	"github.com/couchcryptid/crash-data-engine/internal/config"
	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
	"github.com/couchcryptid/crash-data-engine/internal/query"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataPath := flag.String("data", "", "path to the crash CSV export (falls back to CRASH_DATA_PATH)")
	strict := flag.Bool("strict", false, "fail when any cell was coerced to a default")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath == "" {
		*dataPath = cfg.DataPath
	}
	if *dataPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(cfg, *dataPath, *strict); code != 0 {
		os.Exit(code)
	}
}

func run(cfg *config.Config, dataPath string, strict bool) int {
	// Pin the clock so the two normalization passes in phase 2 agree on
	// dataset metadata.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2021, time.April, 26, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Crash Data Integrity Validation ===")
	fmt.Println()

	// The report owns stdout; structured logs go to stderr at whatever level
	// LOG_LEVEL asks for.
	loader := csvfile.NewLoader(observability.NewLogger(cfg), observability.NewMetrics())

	ds, err := loader.Load(context.Background(), dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load crash data: %v\n", err)
		return 1
	}

	table, err := loadTable(dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: re-read crash data: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(table, ds),
		validateNormalization(table, ds, strict),
		validateEngine(ds),
		validateProfile(ds),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d rows, %d with coordinates, %d reportable street names\n",
		ds.Len(), len(query.MapReady(query.NewView(ds))), len(query.StreetNames(ds)))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadTable reads the export into a raw table, independently of the loader,
// so later phases can re-run normalization themselves.
func loadTable(path string) (*domain.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no rows in %s", path)
	}

	header := make([]string, len(all[0]))
	for i, cell := range all[0] {
		header[i] = strings.TrimSpace(cell)
	}

	table := &domain.RawTable{Path: path, Header: header}
	for i, row := range all[1:] {
		table.Rows = append(table.Rows, domain.RawRow{Line: i + 2, Cells: row})
	}
	return table, nil
}

// ── Phase 1: Load & Schema ──
// The loader already failed closed on missing columns; this phase checks the
// shape of what it produced.

func validateSchema(table *domain.RawTable, ds *domain.CrashDataset) *phase {
	p := &phase{name: "Phase 1: Load & Schema"}

	if ds.Len() == 0 {
		p.errorf("export has a header but no data rows")
	}
	if ds.Len() != len(table.Rows) {
		p.errorf("normalizer dropped rows: %d in, %d out", len(table.Rows), ds.Len())
	}
	if ds.Source.RowCount != ds.Len() {
		p.errorf("source metadata says %d rows, dataset has %d", ds.Source.RowCount, ds.Len())
	}

	seen := make(map[string]int, ds.Len())
	for i := range ds.Records {
		id := ds.Records[i].ID
		if id == "" {
			p.errorf("record %d: empty ID after normalization", i)
			continue
		}
		seen[id]++
	}
	dupes := 0
	for id, n := range seen {
		if n > 1 {
			dupes++
			if dupes <= 5 {
				p.errorf("ID %q appears %d times", id, n)
			}
		}
	}
	if dupes > 5 {
		p.errorf("... and %d more duplicated IDs", dupes-5)
	}

	if !hasColumn(table.Header, domain.ColUnitsInvolved) {
		fmt.Printf("  Note: optional column %q absent (older export)\n", domain.ColUnitsInvolved)
	}
	return p
}

func hasColumn(header []string, name string) bool {
	for _, col := range header {
		if col == name {
			return true
		}
	}
	return false
}

// ── Phase 2: Normalization Invariants ──
// Re-runs normalization and checks the per-record contract.

func validateNormalization(table *domain.RawTable, ds *domain.CrashDataset, strict bool) *phase {
	p := &phase{name: "Phase 2: Normalization Invariants"}

	rerun, report := domain.NormalizeTable(table)
	if rerun.Len() != ds.Len() {
		p.errorf("re-run produced %d records, first run %d", rerun.Len(), ds.Len())
	} else {
		for i := range ds.Records {
			if !reflect.DeepEqual(ds.Records[i], rerun.Records[i]) {
				p.errorf("record %d (%s): normalization is not deterministic", i, ds.Records[i].ID)
				break
			}
		}
	}

	severities := make(map[string]bool)
	for _, label := range domain.SeverityLabels() {
		severities[label] = true
	}
	weekdays := make(map[string]bool)
	for _, day := range domain.WeekdayNames() {
		weekdays[day] = true
	}

	for i := range ds.Records {
		checkRecord(p, i, &ds.Records[i], severities, weekdays)
	}

	if total := report.Total(); total > 0 {
		columns := make([]string, 0, len(report.ByColumn))
		for col := range report.ByColumn {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		for _, col := range columns {
			fmt.Printf("  Note: %d cell(s) in %q coerced to defaults\n", report.ByColumn[col], col)
		}
		if strict {
			p.errorf("strict: %d cells were coerced to defaults", total)
		}
	}
	return p
}

func checkRecord(p *phase, i int, rec *domain.CrashRecord, severities, weekdays map[string]bool) {
	pf := func(format string, args ...any) {
		p.errorf("record %d (ID %s): "+format, append([]any{i, rec.ID}, args...)...)
	}

	if rec.SeverityLabel != nil && !severities[*rec.SeverityLabel] {
		pf("severity label %q outside the code table", *rec.SeverityLabel)
	}
	if rec.SpeedLimit < 0 {
		pf("negative speed limit %g survived normalization", rec.SpeedLimit)
	}
	if rec.MapMarkerSize < 5 {
		pf("marker size %g below the floor", rec.MapMarkerSize)
	}
	if rec.SpeedLimit > 0 && rec.MapMarkerSize != rec.SpeedLimit {
		pf("marker size %g disagrees with speed limit %g", rec.MapMarkerSize, rec.SpeedLimit)
	}

	for name, n := range map[string]int{
		"death_cnt":                 rec.DeathCount,
		"sus_serious_injry_cnt":     rec.SeriousInjuryCount,
		"pedestrian_death_count":    rec.PedestrianDeathCount,
		"bicycle_death_count":       rec.BicycleDeathCount,
		"motorcycle_death_count":    rec.MotorcycleDeathCount,
		"motor_vehicle_death_count": rec.MotorVehicleDeathCount,
	} {
		if n < 0 {
			pf("negative %s %d", name, n)
		}
	}

	if rec.Timestamp == nil {
		if rec.Hour != nil || rec.DayName != nil || rec.MonthName != nil || rec.Date != nil {
			pf("derived time fields set without a timestamp")
		}
	} else {
		if rec.Hour == nil || *rec.Hour < 0 || *rec.Hour > 23 {
			pf("hour missing or out of range")
		}
		if rec.DayName == nil || !weekdays[*rec.DayName] {
			pf("weekday missing or unknown")
		}
		if rec.Date == nil {
			pf("calendar date missing")
		}
	}

	// Half pairs survive normalization (they are just not map-ready), but a
	// complete pair must be a real position.
	if rec.Latitude != nil && rec.Longitude != nil &&
		(math.Abs(*rec.Latitude) > 90 || math.Abs(*rec.Longitude) > 180) {
		pf("coordinates (%g, %g) off the globe", *rec.Latitude, *rec.Longitude)
	}

	if rec.StreetReportable {
		if rec.StreetName == nil {
			pf("reportable street with no name")
		} else {
			upper := strings.ToUpper(*rec.StreetName)
			if strings.Contains(upper, "NOT REPORTED") || strings.Contains(upper, "UNKNOWN") {
				pf("placeholder street %q marked reportable", *rec.StreetName)
			}
		}
	}

	if rec.IsHighSeverity != (rec.DeathCount > 0 || rec.SeriousInjuryCount > 0) {
		pf("is_high_severity disagrees with counts")
	}
	if rec.IsVRUFatal != (rec.PedestrianDeathCount > 0 || rec.BicycleDeathCount > 0) {
		pf("is_vru_fatal disagrees with counts")
	}
}

// ── Phase 3: Engine Sanity ──
// Runs the filtering and aggregation engine over the real data and checks
// the contract properties hold.

func validateEngine(ds *domain.CrashDataset) *phase {
	p := &phase{name: "Phase 3: Engine Sanity"}
	view := query.NewView(ds)

	checkFilterIdempotence(p, view)
	checkWeekdayShape(p, view)
	checkTopNBounds(p, view)
	checkCumulativeSeries(p, view)
	checkDrillDownConsistency(p, view)
	checkMapViews(p, view)

	return p
}

func checkFilterIdempotence(p *phase, view query.View) {
	spec := query.FilterSpec{
		Severities: []string{domain.SeverityFatal, domain.SeveritySeriousInjury},
		HourLo:     0,
		HourHi:     23,
	}

	once, err := query.Filter(view, spec)
	if err != nil {
		p.errorf("filter: %v", err)
		return
	}
	twice, err := query.Filter(once, spec)
	if err != nil {
		p.errorf("re-filter: %v", err)
		return
	}

	if len(once) > len(view) {
		p.errorf("filter grew the view: %d -> %d", len(view), len(once))
	}
	if len(once) != len(twice) {
		p.errorf("filter is not idempotent: %d then %d records", len(once), len(twice))
		return
	}
	for i := range once {
		if once[i] != twice[i] {
			p.errorf("re-filter reordered records at position %d", i)
			return
		}
	}
}

func checkWeekdayShape(p *phase, view query.View) {
	table, err := query.Aggregate(view, query.AggregationSpec{
		GroupBy:    query.DimDay,
		Reductions: []query.Reduction{{Op: query.OpCount}},
	})
	if err != nil {
		p.errorf("weekday aggregation: %v", err)
		return
	}

	if len(table.Rows) != 7 {
		p.errorf("weekday aggregation has %d rows, want 7", len(table.Rows))
		return
	}
	for i, day := range domain.WeekdayNames() {
		if table.Rows[i].Group != day {
			p.errorf("weekday row %d is %q, want %q", i, table.Rows[i].Group, day)
		}
	}

	counted := 0.0
	for _, row := range table.Rows {
		counted += row.Values[0]
	}
	if counted > float64(len(view)) {
		p.errorf("weekday counts total %g, more than %d records", counted, len(view))
	}
}

func checkTopNBounds(p *phase, view query.View) {
	const n = 5
	table, err := query.Aggregate(view, query.AggregationSpec{
		GroupBy:    query.DimStreet,
		Reductions: []query.Reduction{{Op: query.OpCount}},
		TopN:       &query.TopN{By: "count", N: n},
	})
	if err != nil {
		p.errorf("top streets aggregation: %v", err)
		return
	}

	if len(table.Rows) > n {
		p.errorf("top-%d returned %d rows", n, len(table.Rows))
	}
	for i := 1; i < len(table.Rows); i++ {
		if table.Rows[i].Values[0] > table.Rows[i-1].Values[0] {
			p.errorf("top streets not descending at row %d", i)
		}
	}
}

func checkCumulativeSeries(p *phase, view query.View) {
	series, err := query.CumulativeCostSeries(view, query.FieldComprehensiveCost)
	if err != nil {
		p.errorf("cumulative series: %v", err)
		return
	}

	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			p.errorf("series dates not ascending at point %d", i)
		}
		if series[i].Cumulative < series[i-1].Cumulative-1e-9 {
			p.errorf("running total decreased at %s", series[i].Date.Format(time.DateOnly))
		}
	}

	if len(series) > 0 {
		datedTotal := 0.0
		for _, rec := range view {
			if rec.Date != nil {
				datedTotal += rec.ComprehensiveCost
			}
		}
		last := series[len(series)-1].Cumulative
		if math.Abs(last-datedTotal) > 1e-6 {
			p.errorf("running total ends at %g, dated records sum to %g", last, datedTotal)
		}
	}
}

func checkDrillDownConsistency(p *phase, view query.View) {
	table, err := query.Aggregate(view, query.AggregationSpec{
		GroupBy:    query.DimSeverity,
		Reductions: []query.Reduction{{Op: query.OpCount}},
	})
	if err != nil {
		p.errorf("severity aggregation: %v", err)
		return
	}

	for _, row := range table.Rows {
		if row.Null {
			continue
		}
		if !query.HasGroup(view, query.DimSeverity, row.Group) {
			p.errorf("severity %q aggregated but HasGroup denies it", row.Group)
			continue
		}
		narrowed := query.NarrowByGroup(view, query.DimSeverity, row.Group)
		if float64(len(narrowed)) != row.Values[0] {
			p.errorf("severity %q: narrow keeps %d records, aggregation counted %g",
				row.Group, len(narrowed), row.Values[0])
		}
		for _, rec := range narrowed {
			if rec.SeverityLabel == nil || *rec.SeverityLabel != row.Group {
				p.errorf("severity %q: narrowed view contains a foreign record %s", row.Group, rec.ID)
				break
			}
		}
	}
}

func checkMapViews(p *phase, view query.View) {
	mapReady := query.MapReady(view)
	for _, rec := range mapReady {
		if !rec.HasCoordinates() {
			p.errorf("map-ready record %s lacks coordinates", rec.ID)
		}
	}

	bounds, ok := query.MapBounds(mapReady)
	if !ok {
		if len(mapReady) > 0 {
			p.errorf("no bounds despite %d map-ready records", len(mapReady))
		}
		return
	}
	for _, rec := range mapReady {
		if *rec.Latitude < bounds.MinLat-1e-9 || *rec.Latitude > bounds.MaxLat+1e-9 ||
			*rec.Longitude < bounds.MinLng-1e-9 || *rec.Longitude > bounds.MaxLng+1e-9 {
			p.errorf("record %s at (%g, %g) outside bounds", rec.ID, *rec.Latitude, *rec.Longitude)
			break
		}
	}
}

// ── Phase 4: Dataset Profile ──
// Totals the dataset the way dashboards do and prints the headline figures.

func validateProfile(ds *domain.CrashDataset) *phase {
	p := &phase{name: "Phase 4: Dataset Profile"}
	view := query.NewView(ds)
	totals := query.Summarize(view)

	if totals.Crashes != ds.Len() {
		p.errorf("summary counts %d crashes, dataset has %d", totals.Crashes, ds.Len())
	}
	if totals.FatalityRate < 0 {
		p.errorf("negative fatality rate %g", totals.FatalityRate)
	}
	if totals.AverageCost < 0 {
		p.errorf("negative average cost %g", totals.AverageCost)
	}

	noTime, noSeverity, noCoords := 0, 0, 0
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.Timestamp == nil {
			noTime++
		}
		if rec.SeverityLabel == nil {
			noSeverity++
		}
		if !rec.HasCoordinates() {
			noCoords++
		}
	}
	if ds.Len() > 0 && noTime == ds.Len() {
		p.errorf("no record has a parseable timestamp; wrong column or format?")
	}

	fmt.Printf("  Note: null rates: timestamp %s, severity %s, coordinates %s\n",
		pct(noTime, ds.Len()), pct(noSeverity, ds.Len()), pct(noCoords, ds.Len()))
	fmt.Printf("  Note: %d deaths, %d serious injuries, fatality rate %.2f%%\n",
		totals.Deaths, totals.SeriousInjuries, totals.FatalityRate)
	fmt.Printf("  Note: total comprehensive cost $%.0f, average $%.0f per crash\n",
		totals.TotalCost, totals.AverageCost)

	return p
}

// ── Helpers ──

func pct(n, total int) string {
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}
