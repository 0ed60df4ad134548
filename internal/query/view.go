package query

import (
	"sort"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/validation"
)

// View is an ordered subsequence of a dataset's records. Views share the
// underlying records with the dataset they came from; filtering produces a
// new View and never copies, reorders or mutates records.
type View []*domain.CrashRecord

// NewView returns a view over every record of the dataset, in dataset order.
func NewView(ds *domain.CrashDataset) View {
	view := make(View, len(ds.Records))
	for i := range ds.Records {
		view[i] = &ds.Records[i]
	}
	return view
}

// Filter returns the ordered subsequence of view matching spec. The scan is
// a single O(n) pass with no side effects; applying the same spec to its own
// output returns an equal view.
func Filter(view View, spec FilterSpec) (View, error) {
	if err := validation.ValidateStruct(spec); err != nil {
		return nil, err
	}

	pred := newPredicate(spec)
	out := make(View, 0, len(view))
	for _, rec := range view {
		if pred.matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// MapReady returns the subsequence of view whose records carry a usable
// coordinate pair. Computed on demand; never stored.
func MapReady(view View) View {
	out := make(View, 0, len(view))
	for _, rec := range view {
		if rec.HasCoordinates() {
			out = append(out, rec)
		}
	}
	return out
}

// StreetNames returns the sorted distinct reportable street names in the
// dataset, the vocabulary street filters choose from.
func StreetNames(ds *domain.CrashDataset) []string {
	seen := make(map[string]struct{})
	for i := range ds.Records {
		rec := &ds.Records[i]
		if !rec.StreetReportable {
			continue
		}
		seen[*rec.StreetName] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// predicate is a FilterSpec compiled for per-record evaluation: set lookups
// instead of slice scans.
type predicate struct {
	severities     map[string]struct{}
	roadTypes      map[string]struct{}
	days           map[string]struct{}
	streets        map[string]struct{}
	hourLo, hourHi int
	selectedStreet string
}

func newPredicate(spec FilterSpec) predicate {
	return predicate{
		severities:     toSet(spec.Severities),
		roadTypes:      toSet(spec.RoadTypes),
		days:           toSet(spec.Days),
		streets:        toSet(spec.Streets),
		hourLo:         spec.HourLo,
		hourHi:         spec.HourHi,
		selectedStreet: spec.SelectedStreet,
	}
}

func (p predicate) matches(rec *domain.CrashRecord) bool {
	if !memberOrUnrestricted(p.severities, rec.SeverityLabel) {
		return false
	}
	if !memberOrUnrestricted(p.roadTypes, rec.RoadType) {
		return false
	}
	if !memberOrUnrestricted(p.days, rec.DayName) {
		return false
	}
	// The hour range always applies; a record with no parsed hour has no
	// position in it and never matches.
	if rec.Hour == nil || *rec.Hour < p.hourLo || *rec.Hour > p.hourHi {
		return false
	}
	if !memberOrUnrestricted(p.streets, rec.StreetName) {
		return false
	}
	if p.selectedStreet != "" {
		if rec.StreetName == nil || *rec.StreetName != p.selectedStreet {
			return false
		}
	}
	return true
}

// memberOrUnrestricted applies the empty-set policy: an empty set restricts
// nothing, a populated set requires a non-nil value it contains.
func memberOrUnrestricted(set map[string]struct{}, value *string) bool {
	if len(set) == 0 {
		return true
	}
	if value == nil {
		return false
	}
	_, ok := set[*value]
	return ok
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}
