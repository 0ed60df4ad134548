// Command genmock writes a deterministic synthetic crash CSV and loads it
// back through the real loader, so the printed stats are exactly what the
// engine will see. Roughly one row in seven carries a deliberate defect —
// garbled timestamps, unknown severity codes, negative speeds, placeholder
// street names, missing or off-globe coordinates, truncated rows — cycling
// through every coercion edge the normalizer handles.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/crashes.csv -rows 500 -seed 42
//	go run ./cmd/genmock -out data/mock/crashes.csv -rows 500 -seed 42 \
//	  -start 2021-01-04 -days 365
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/crash-data-engine/internal/adapter/csvfile"
	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
	"github.com/couchcryptid/crash-data-engine/internal/query"
)

// streets are the clean corridor names the generator draws from. Placeholder
// and blank names are injected separately as defect rows.
var streets = []string{
	"LAMAR BLVD",
	"BURNET RD",
	"CONGRESS AVE",
	"GUADALUPE ST",
	"AIRPORT BLVD",
	"CESAR CHAVEZ ST",
	"SLAUGHTER LN",
	"PARMER LN",
	"RIVERSIDE DR",
	"MANCHACA RD",
}

// speedLimits includes 0 for unposted segments.
var speedLimits = []int{0, 25, 30, 35, 40, 45, 55, 60, 65}

// costBands approximate the comprehensive-cost scale of the source export,
// keyed by severity code. Each row jitters its band by ±20%.
var costBands = map[int]float64{
	0: 20_000,
	1: 3_100_000,
	2: 1_600_000,
	3: 250_000,
	4: 120_000,
	5: 60_000,
}

// severityWeights drive the weighted severity pick: mostly property-damage
// and possible-injury crashes, a thin tail of fatal ones.
var severityWeights = []struct {
	code   int
	weight int
}{
	{code: 0, weight: 30},
	{code: 4, weight: 25},
	{code: 3, weight: 25},
	{code: 2, weight: 12},
	{code: 1, weight: 5},
	{code: 5, weight: 3},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the crash CSV fixture")
	rows := flag.Int("rows", 500, "number of data rows to generate")
	seed := flag.Int64("seed", 1, "PRNG seed; same seed, same fixture")
	start := flag.String("start", "2021-01-04", "first crash date (YYYY-MM-DD)")
	days := flag.Int("days", 365, "length of the date window in days")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	startDate, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	if *rows <= 0 || *days <= 0 {
		return fmt.Errorf("-rows and -days must be positive")
	}

	rng := rand.New(rand.NewSource(*seed))
	records := buildFixture(rng, *rows, startDate, *days)
	if err := writeCSV(*out, records); err != nil {
		return err
	}
	log.Printf("wrote %d rows: %s", *rows, *out)

	// Load the fixture back through the real loader so the stats below match
	// what tests and the validate command will observe.
	loader := csvfile.NewLoader(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})), observability.NewMetrics())
	dataset, err := loader.Load(context.Background(), *out)
	if err != nil {
		return fmt.Errorf("load generated fixture: %w", err)
	}

	printStats(dataset)
	return nil
}

// header lists every required column in export order plus the optional
// units_involved passthrough column.
func header() []string {
	return []string{
		domain.ColID,
		domain.ColTimestamp,
		domain.ColSeverity,
		domain.ColOnSystem,
		domain.ColDeaths,
		domain.ColSeriousInjuries,
		domain.ColPedestrianDeaths,
		domain.ColBicycleDeaths,
		domain.ColMotorcycleDeaths,
		domain.ColMotorVehicleDeaths,
		domain.ColStreetName,
		domain.ColLatitude,
		domain.ColLongitude,
		domain.ColSpeedLimit,
		domain.ColCost,
		domain.ColUnitsInvolved,
	}
}

func buildFixture(rng *rand.Rand, rows int, start time.Time, days int) [][]string {
	records := make([][]string, 0, rows+1)
	records = append(records, header())
	flawed := 0
	for i := 0; i < rows; i++ {
		row := cleanRow(rng, i, start, days)
		// Every seventh row takes the next defect in the cycle, so any fixture
		// of a few dozen rows exercises the full set.
		if i%7 == 6 {
			row = applyFlaw(row, flawed)
			flawed++
		}
		records = append(records, row)
	}
	return records
}

// cleanRow builds one well-formed row keyed by column position.
func cleanRow(rng *rand.Rand, i int, start time.Time, days int) []string {
	ts := start.AddDate(0, 0, rng.Intn(days)).
		Add(time.Duration(rng.Intn(24)) * time.Hour).
		Add(time.Duration(rng.Intn(60)) * time.Minute)
	layout := "2006-01-02 15:04:05"
	if i%11 == 5 {
		// Older export generations used US-style timestamps; both must load.
		layout = "01/02/2006 15:04"
	}

	sev := pickSeverity(rng)
	deaths, ped, bike, moto, mv := pickDeaths(rng, sev)
	serious := 0
	switch sev {
	case 2:
		serious = 1 + rng.Intn(3)
	case 1:
		serious = rng.Intn(2)
	}

	onsys := []string{"true", "false", "TRUE", "FALSE", "Y", "N", "1", "0"}[rng.Intn(8)]
	lat := 30.15 + rng.Float64()*0.3
	lng := -97.95 + rng.Float64()*0.4
	speed := speedLimits[rng.Intn(len(speedLimits))]
	cost := costBands[sev] * (0.8 + rng.Float64()*0.4)

	return []string{
		strconv.Itoa(17_800_000 + i),
		ts.Format(layout),
		strconv.Itoa(sev),
		onsys,
		strconv.Itoa(deaths),
		strconv.Itoa(serious),
		strconv.Itoa(ped),
		strconv.Itoa(bike),
		strconv.Itoa(moto),
		strconv.Itoa(mv),
		streets[rng.Intn(len(streets))],
		strconv.FormatFloat(lat, 'f', 6, 64),
		strconv.FormatFloat(lng, 'f', 6, 64),
		strconv.Itoa(speed),
		strconv.FormatFloat(cost, 'f', 0, 64),
		strconv.Itoa(1 + rng.Intn(4)),
	}
}

func pickSeverity(rng *rand.Rand) int {
	total := 0
	for _, w := range severityWeights {
		total += w.weight
	}
	n := rng.Intn(total)
	for _, w := range severityWeights {
		if n < w.weight {
			return w.code
		}
		n -= w.weight
	}
	return 0
}

// pickDeaths assigns the death count for a severity and attributes all deaths
// of a fatal crash to a single travel mode, the way single-event records read
// in the source export.
func pickDeaths(rng *rand.Rand, sev int) (deaths, ped, bike, moto, mv int) {
	if sev != 1 {
		return 0, 0, 0, 0, 0
	}
	deaths = 1 + rng.Intn(2)
	switch rng.Intn(4) {
	case 0:
		ped = deaths
	case 1:
		bike = deaths
	case 2:
		moto = deaths
	default:
		mv = deaths
	}
	return deaths, ped, bike, moto, mv
}

// Column positions matching header(), for flaw injection.
const (
	posID = iota
	posTimestamp
	posSeverity
	posOnSystem
	posDeaths
	posSerious
	posPedDeaths
	posBikeDeaths
	posMotoDeaths
	posMVDeaths
	posStreet
	posLatitude
	posLongitude
	posSpeed
	posCost
	posUnits
)

// flaws are the defect injectors, one per coercion edge. applyFlaw cycles
// through them in order.
var flaws = []func([]string) []string{
	func(r []string) []string { r[posTimestamp] = "pending review"; return r },
	func(r []string) []string { r[posTimestamp] = ""; return r },
	func(r []string) []string { r[posSeverity] = "9"; return r },
	func(r []string) []string { r[posSeverity] = "N/A"; return r },
	func(r []string) []string { r[posOnSystem] = "maybe"; return r },
	func(r []string) []string { r[posSpeed] = "-5"; return r },
	func(r []string) []string { r[posSpeed] = "varies"; return r },
	func(r []string) []string { r[posDeaths] = "-1"; return r },
	func(r []string) []string { r[posCost] = "TBD"; return r },
	func(r []string) []string { r[posStreet] = ""; return r },
	func(r []string) []string { r[posStreet] = "NOT REPORTED"; return r },
	func(r []string) []string { r[posStreet] = "UNKNOWN"; return r },
	func(r []string) []string { r[posLatitude], r[posLongitude] = "", ""; return r },
	func(r []string) []string { r[posLongitude] = ""; return r },
	func(r []string) []string { r[posLatitude] = "130.5"; return r },
	func(r []string) []string { r[posID] = ""; return r },
	func(r []string) []string { return r[:posStreet+1] }, // truncated row
}

func applyFlaw(row []string, n int) []string {
	return flaws[n%len(flaws)](row)
}

func writeCSV(path string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func printStats(dataset *domain.CrashDataset) {
	view := query.NewView(dataset)
	totals := query.Summarize(view)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows loaded: %d\n", dataset.Len())
	fmt.Printf("Deaths: %d  serious injuries: %d  fatality rate: %.2f per 100 crashes\n",
		totals.Deaths, totals.SeriousInjuries, totals.FatalityRate)
	fmt.Printf("Total cost: $%.0f  average: $%.0f\n", totals.TotalCost, totals.AverageCost)

	fmt.Println("\nBy severity:")
	printBreakdown(view, query.DimSeverity, nil)

	fmt.Println("\nBy road type:")
	printBreakdown(view, query.DimRoadType, nil)

	fmt.Println("\nBy weekday:")
	printBreakdown(view, query.DimDay, nil)

	fmt.Println("\nTop 5 streets by crash count:")
	printBreakdown(view, query.DimStreet, &query.TopN{By: "count", N: 5})

	var noTimestamp, noCoords, highSeverity, vruFatal, reportable int
	for _, rec := range view {
		if rec.Timestamp == nil {
			noTimestamp++
		}
		if !rec.HasCoordinates() {
			noCoords++
		}
		if rec.IsHighSeverity {
			highSeverity++
		}
		if rec.IsVRUFatal {
			vruFatal++
		}
		if rec.StreetReportable {
			reportable++
		}
	}
	fmt.Println("\nRecord flags:")
	fmt.Printf("  %-24s %d\n", "high severity", highSeverity)
	fmt.Printf("  %-24s %d\n", "VRU fatal", vruFatal)
	fmt.Printf("  %-24s %d\n", "street reportable", reportable)
	fmt.Printf("  %-24s %d\n", "null timestamp", noTimestamp)
	fmt.Printf("  %-24s %d\n", "missing coordinates", noCoords)

	if b, ok := query.MapBounds(view); ok {
		fmt.Printf("\nMap bounds: lat %.4f..%.4f  lng %.4f..%.4f  center (%.4f, %.4f)\n",
			b.MinLat, b.MaxLat, b.MinLng, b.MaxLng, b.CenterLat, b.CenterLng)
	}
}

func printBreakdown(view query.View, dim query.Dimension, topN *query.TopN) {
	table, err := query.Aggregate(view, query.AggregationSpec{
		GroupBy:    dim,
		Reductions: []query.Reduction{{Op: query.OpCount}},
		TopN:       topN,
	})
	if err != nil {
		fmt.Printf("  aggregate %s: %v\n", dim, err)
		return
	}
	for _, row := range table.Rows {
		label := row.Group
		if row.Null {
			label = "(null)"
		}
		fmt.Printf("  %-24s %d\n", label, int(row.Values[0]))
	}
}
