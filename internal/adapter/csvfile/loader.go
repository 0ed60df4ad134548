// Package csvfile loads crash exports from delimited text files.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
)

// LoadError is the only error a loader returns: the source was missing,
// unreadable, not parseable as delimited text, or missing required columns.
// Loads fail closed — a LoadError always means no dataset, never a partial one.
type LoadError struct {
	Path    string
	Reason  string
	Missing []string // required columns absent from the header
	Err     error
}

func (e *LoadError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("load %s: %s: %s", e.Path, e.Reason, strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader reads and normalizes crash exports. It implements domain.DatasetSource.
type Loader struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a crash export loader.
func NewLoader(logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{logger: logger, metrics: metrics}
}

// Load reads the export at path, verifies the required columns, and
// normalizes every row. The context is consulted before the read starts;
// parsing itself is not interruptible.
func (l *Loader) Load(ctx context.Context, path string) (*domain.CrashDataset, error) {
	start := time.Now()

	table, err := readTable(ctx, path)
	if err != nil {
		l.metrics.DatasetLoadFailures.Inc()
		l.logger.Error("dataset load failed", "path", path, "error", err)
		return nil, err
	}

	ds, report := domain.NormalizeTable(table)

	l.metrics.DatasetsLoaded.Inc()
	l.metrics.RowsNormalized.Add(float64(ds.Len()))
	for column, count := range report.ByColumn {
		l.metrics.CoercionWarnings.WithLabelValues(column).Add(float64(count))
	}
	l.metrics.LoadDuration.Observe(time.Since(start).Seconds())

	if report.Total() > 0 {
		l.logger.Warn("dataset loaded with coerced cells",
			"path", path, "rows", ds.Len(), "coerced_cells", report.Total())
		for column, count := range report.ByColumn {
			l.logger.Debug("column coercions", "column", column, "count", count)
		}
	} else {
		l.logger.Info("dataset loaded", "path", path, "rows", ds.Len())
	}

	return ds, nil
}

func readTable(ctx context.Context, path string) (*domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Reason: "canceled", Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "open source", Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // exports occasionally truncate trailing cells
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "parse delimited text", Err: err}
	}
	if len(rows) == 0 {
		return nil, &LoadError{Path: path, Reason: "empty source"}
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &LoadError{Path: path, Reason: "missing required columns", Missing: missing}
	}

	table := &domain.RawTable{Path: path, Header: header}
	for i, row := range rows[1:] {
		table.Rows = append(table.Rows, domain.RawRow{Line: i + 2, Cells: row})
	}
	return table, nil
}

// missingColumns returns every required column absent from the header, in
// required-column order so LoadError messages are stable.
func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range domain.RequiredColumns() {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
