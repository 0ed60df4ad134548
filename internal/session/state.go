// Package session holds per-user engine state: the drill-down selection
// state machine and a TTL-evicting registry of live sessions. Nothing here
// is ever persisted — a session is exactly as durable as the process.
package session

import (
	"fmt"

	"github.com/couchcryptid/crash-data-engine/internal/query"
	"github.com/couchcryptid/crash-data-engine/internal/validation"
)

// EventKind discriminates drill-down events.
type EventKind string

const (
	EventSelectCategory EventKind = "select"
	EventClearSelection EventKind = "clear"
)

// Event is one user interaction with the drill-down stage: selecting a
// category from a rendered aggregation, or explicitly clearing the
// selection.
type Event struct {
	Kind      EventKind       `json:"kind" validate:"required,oneof=select clear"`
	Dimension query.Dimension `json:"dimension,omitempty" validate:"required_if=Kind select,omitempty,oneof=hour day month date severity road_type street speed_limit"`
	Value     string          `json:"value,omitempty" validate:"required_if=Kind select"`
}

// DrillDownState is the drill-down stage of a session: either nothing is
// selected (the zero value) or a single category of a single dimension is.
type DrillDownState struct {
	Dimension query.Dimension `json:"dimension,omitempty"`
	Value     string          `json:"value,omitempty"`
}

// Selected reports whether a category is currently selected.
func (s DrillDownState) Selected() bool {
	return s.Value != ""
}

// Reduce applies one event to the state and returns the new state. The
// transition is pure; a malformed event leaves the prior state in force and
// reports why.
func Reduce(state DrillDownState, ev Event) (DrillDownState, error) {
	if err := validation.ValidateStruct(ev); err != nil {
		return state, err
	}

	switch ev.Kind {
	case EventSelectCategory:
		return DrillDownState{Dimension: ev.Dimension, Value: ev.Value}, nil
	case EventClearSelection:
		return DrillDownState{}, nil
	}
	return state, fmt.Errorf("unknown event kind %q", ev.Kind)
}
