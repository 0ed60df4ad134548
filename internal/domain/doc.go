// Package domain models municipal traffic-crash records.
//
// # Data Source
//
// Crash records originate from the city's open-data crash export: one CSV per
// extract with a header row and one line per crash. The export mixes
// human-readable column headers ("Crash timestamp (US/Central)", "Estimated
// Total Comprehensive Cost") with database column identifiers (crash_sev_id,
// onsys_fl, rpt_street_name); both spellings are fixed and case-sensitive.
// See [RequiredColumns] for the full set a loadable export must carry.
//
// # Export Conventions
//
// Timestamps:
//
//	Local civil time (US/Central wall clock) with no zone offset, e.g.
//	"2021-04-26 14:35:00". Several layout generations exist and are all
//	accepted; see timestampLayouts. Values are never converted between
//	zones — the wall-clock hour is exactly what the hour-of-day analyses
//	want. An unparseable timestamp nulls the timestamp and every derived
//	time field, but never drops the row.
//
// Severity codes (crash_sev_id):
//
//	0 No Injury | 1 Fatal | 2 Serious Injury | 3 Minor Injury |
//	4 Possible Injury | 5 Unknown
//
//	Codes outside the table keep their numeric value but yield a nil label.
//	The label set is closed: normalization never produces a label outside
//	the six above.
//
// On-system flag (onsys_fl):
//
//	Tri-state. Recognized true tokens {true, t, y, yes, 1} and false tokens
//	{false, f, n, no, 0}, case-insensitive — export generations disagree on
//	spelling. True derives the road type "Highway/On-System", false derives
//	"City Street/Off-System", anything else leaves both nil.
//
// Counts and amounts:
//
//	Death and injury counts are non-negative integers; speed limit and
//	comprehensive cost are non-negative numbers. Blank cells default to 0
//	silently. Non-blank cells that fail to parse, and negative values
//	(which violate the source contract), coerce to 0 and are tallied in the
//	CoercionReport.
//
// Coordinates:
//
//	Nullable. A cell that fails to parse is nil, not 0 — (0, 0) is a real
//	place in the Gulf of Guinea. A pair that parses but is not a valid
//	WGS-84 position (checked via s2.LatLng) has both coordinates nulled
//	together.
//
// Street names:
//
//	The source writes placeholder values for unknown streets. A record is
//	street-reportable only when its name is present and does not contain
//	"NOT REPORTED" or "UNKNOWN" (case-insensitive substring match, because
//	placeholders appear embedded in otherwise plausible names).
//
// # Derived Fields
//
// Hour, weekday name, month name and calendar date derive from the parsed
// timestamp. MapMarkerSize equals the speed limit when positive, else a
// fixed floor of 5 so zero-speed crashes still render on a map; it is a
// display quantity and is never aggregated. IsHighSeverity is true when the
// record has any death or suspected serious injury; IsVRUFatal when any
// pedestrian or bicyclist died.
//
// # ID Generation
//
// Record IDs come from the export's ID column. Rows with a blank ID get a
// deterministic SHA-256 fallback over timestamp|street|lat|lon|line, so
// reloading the same file yields the same identity. See fallbackID.
package domain
