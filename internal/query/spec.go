package query

// Dimension is a grouping axis an aggregation can run over.
type Dimension string

const (
	DimHour       Dimension = "hour"
	DimDay        Dimension = "day"
	DimMonth      Dimension = "month"
	DimDate       Dimension = "date"
	DimSeverity   Dimension = "severity"
	DimRoadType   Dimension = "road_type"
	DimStreet     Dimension = "street"
	DimSpeedLimit Dimension = "speed_limit"
)

// Op is a reduction operator applied to each group.
type Op string

const (
	OpCount Op = "count"
	OpSum   Op = "sum"
	OpMean  Op = "mean"
)

// Field names a numeric record field a reduction can read. OpCount ignores
// the field.
type Field string

const (
	FieldDeathCount             Field = "death_count"
	FieldSeriousInjuryCount     Field = "serious_injury_count"
	FieldPedestrianDeathCount   Field = "pedestrian_death_count"
	FieldBicycleDeathCount      Field = "bicycle_death_count"
	FieldMotorcycleDeathCount   Field = "motorcycle_death_count"
	FieldMotorVehicleDeathCount Field = "motor_vehicle_death_count"
	FieldSpeedLimit             Field = "speed_limit"
	FieldComprehensiveCost      Field = "comprehensive_cost"
)

// FilterSpec selects the records a view keeps. Every condition must hold
// (conjunctive AND); an empty set imposes no restriction on its dimension.
// The hour range always applies, and records without a parsed hour never
// match it.
type FilterSpec struct {
	Severities []string `json:"severities" validate:"dive,severity_label"`
	RoadTypes  []string `json:"road_types" validate:"dive,road_type_label"`
	Days       []string `json:"days" validate:"dive,weekday_name"`
	HourLo     int      `json:"hour_lo" validate:"min=0,max=23"`
	HourHi     int      `json:"hour_hi" validate:"min=0,max=23,gtefield=HourLo"`
	Streets    []string `json:"streets"`

	// SelectedStreet layers a single-street deep dive on top of the set
	// filters; empty means off.
	SelectedStreet string `json:"selected_street"`
}

// DefaultFilter returns the filter that matches every record: no set
// restrictions and the full hour range.
func DefaultFilter() FilterSpec {
	return FilterSpec{HourLo: 0, HourHi: 23}
}

// Reduction is one (field, operator) pair of an aggregation. As names the
// result column; when blank the column is named after the operator ("count")
// or operator_field ("sum_death_count").
type Reduction struct {
	Field Field  `json:"field" validate:"required_unless=Op count,omitempty,oneof=death_count serious_injury_count pedestrian_death_count bicycle_death_count motorcycle_death_count motor_vehicle_death_count speed_limit comprehensive_cost"`
	Op    Op     `json:"op" validate:"required,oneof=count sum mean"`
	As    string `json:"as"`
}

// columnName returns the result column name for the reduction.
func (r Reduction) columnName() string {
	if r.As != "" {
		return r.As
	}
	if r.Op == OpCount {
		return string(OpCount)
	}
	return string(r.Op) + "_" + string(r.Field)
}

// TopN asks for the highest-ranked groups of an aggregation: stable sort by
// the named result column, descending unless Ascending is set, then truncate
// to N groups.
type TopN struct {
	By        string `json:"by" validate:"required"`
	N         int    `json:"n" validate:"required,gt=0"`
	Ascending bool   `json:"ascending"`
}

// AggregationSpec describes one groupby pass: the grouping dimension, one or
// more reductions, and an optional top-N ranking request.
type AggregationSpec struct {
	GroupBy    Dimension   `json:"group_by" validate:"required,oneof=hour day month date severity road_type street speed_limit"`
	Reductions []Reduction `json:"reductions" validate:"min=1,dive"`
	TopN       *TopN       `json:"top_n,omitempty"`
}
