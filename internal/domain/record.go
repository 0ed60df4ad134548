package domain

import "time"

// Source column names, spelled exactly as the municipal crash export writes
// them. The export mixes human-readable headers with database identifiers;
// both spellings are load-bearing and case-sensitive.
const (
	ColID                 = "ID"
	ColTimestamp          = "Crash timestamp (US/Central)"
	ColSeverity           = "crash_sev_id"
	ColOnSystem           = "onsys_fl"
	ColDeaths             = "death_cnt"
	ColSeriousInjuries    = "sus_serious_injry_cnt"
	ColPedestrianDeaths   = "pedestrian_death_count"
	ColBicycleDeaths      = "bicycle_death_count"
	ColMotorcycleDeaths   = "motorcycle_death_count"
	ColMotorVehicleDeaths = "motor_vehicle_death_count"
	ColStreetName         = "rpt_street_name"
	ColLatitude           = "latitude"
	ColLongitude          = "longitude"
	ColSpeedLimit         = "crash_speed_limit"
	ColCost               = "Estimated Total Comprehensive Cost"
	ColUnitsInvolved      = "units_involved" // optional passthrough column
)

// RequiredColumns lists every column a crash export must carry to be loadable.
// ColUnitsInvolved is intentionally absent: older exports predate it.
func RequiredColumns() []string {
	return []string{
		ColID,
		ColTimestamp,
		ColSeverity,
		ColOnSystem,
		ColDeaths,
		ColSeriousInjuries,
		ColPedestrianDeaths,
		ColBicycleDeaths,
		ColMotorcycleDeaths,
		ColMotorVehicleDeaths,
		ColStreetName,
		ColLatitude,
		ColLongitude,
		ColSpeedLimit,
		ColCost,
	}
}

// Severity labels produced by the crash_sev_id code table.
const (
	SeverityNoInjury       = "No Injury"
	SeverityFatal          = "Fatal"
	SeveritySeriousInjury  = "Serious Injury"
	SeverityMinorInjury    = "Minor Injury"
	SeverityPossibleInjury = "Possible Injury"
	SeverityUnknown        = "Unknown"
)

// severityLabels is the fixed crash_sev_id code table. Codes outside it
// normalize to a nil label, never to an invented one.
var severityLabels = map[int]string{
	0: SeverityNoInjury,
	1: SeverityFatal,
	2: SeveritySeriousInjury,
	3: SeverityMinorInjury,
	4: SeverityPossibleInjury,
	5: SeverityUnknown,
}

// SeverityLabels returns every label the normalizer can produce, in severity
// code order (0 through 5).
func SeverityLabels() []string {
	labels := make([]string, 0, len(severityLabels))
	for code := 0; code < len(severityLabels); code++ {
		labels = append(labels, severityLabels[code])
	}
	return labels
}

// Road type labels derived from the onsys_fl flag.
const (
	RoadTypeOnSystem  = "Highway/On-System"
	RoadTypeOffSystem = "City Street/Off-System"
)

// RoadTypeLabels returns the two road type labels the normalizer can produce.
func RoadTypeLabels() []string {
	return []string{RoadTypeOnSystem, RoadTypeOffSystem}
}

// WeekdayNames returns the seven weekday names in canonical Monday-first
// order, the order every weekday aggregation is presented in.
func WeekdayNames() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
}

// RawTable is a parsed but untyped crash export: the header row plus data
// rows of raw cell strings, exactly as read from the source file.
type RawTable struct {
	Path   string
	Header []string
	Rows   []RawRow
}

// RawRow is one data line of a RawTable. Line is the 1-based position in the
// source file (the header is line 1); it feeds fallback ID generation and
// coercion diagnostics.
type RawRow struct {
	Line  int
	Cells []string
}

// CrashRecord is one crash row after normalization. Nullable source fields
// are pointers; nil means the cell was blank or unusable. Records are
// immutable once built — filtering and aggregation only ever read them.
type CrashRecord struct {
	ID string `json:"id"`

	// Timestamp is the parsed crash instant in local civil time. The export
	// is already US/Central wall-clock time, so no zone conversion happens.
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Hour      *int       `json:"hour,omitempty"`
	DayName   *string    `json:"day_name,omitempty"`
	MonthName *string    `json:"month_name,omitempty"`
	Date      *time.Time `json:"date,omitempty"` // Timestamp truncated to its calendar date

	SeverityCode  *int    `json:"severity_code,omitempty"`
	SeverityLabel *string `json:"severity_label,omitempty"`

	OnSystem *bool   `json:"on_system,omitempty"`
	RoadType *string `json:"road_type,omitempty"`

	DeathCount             int `json:"death_count"`
	SeriousInjuryCount     int `json:"serious_injury_count"`
	PedestrianDeathCount   int `json:"pedestrian_death_count"`
	BicycleDeathCount      int `json:"bicycle_death_count"`
	MotorcycleDeathCount   int `json:"motorcycle_death_count"`
	MotorVehicleDeathCount int `json:"motor_vehicle_death_count"`

	SpeedLimit    float64 `json:"speed_limit"`
	MapMarkerSize float64 `json:"map_marker_size"` // display sizing only, never aggregated

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	StreetName       *string `json:"street_name,omitempty"`
	StreetReportable bool    `json:"street_reportable"`

	ComprehensiveCost float64 `json:"comprehensive_cost"`
	UnitsInvolved     string  `json:"units_involved,omitempty"`

	IsHighSeverity bool `json:"is_high_severity"`
	IsVRUFatal     bool `json:"is_vru_fatal"`
}

// HasCoordinates reports whether the record carries a usable coordinate pair.
func (r *CrashRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// SourceInfo describes where a dataset came from and when it was built.
type SourceInfo struct {
	Path     string    `json:"path"`
	RowCount int       `json:"row_count"`
	LoadedAt time.Time `json:"loaded_at"`
}

// CrashDataset is the normalized, ordered record set built once per source.
// It is never mutated after construction: filters return subsequence views
// into Records, so a dataset is safe to share across concurrent sessions.
type CrashDataset struct {
	Records []CrashRecord `json:"records"`
	Source  SourceInfo    `json:"source"`
}

// Len returns the number of records in the dataset.
func (d *CrashDataset) Len() int {
	return len(d.Records)
}
