package session

import (
	"log/slog"

	"github.com/couchcryptid/crash-data-engine/internal/observability"
	"github.com/couchcryptid/crash-data-engine/internal/query"
)

// Coordinator applies a session's drill-down stage to the view the primary
// filter produced. Everything downstream — KPIs, maps, detail tables — uses
// the view it returns.
type Coordinator struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCoordinator creates a Coordinator with the given observability.
func NewCoordinator(logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{logger: logger, metrics: metrics}
}

// Apply narrows view to the selected category and returns the narrowed view
// with the state still in force. When the selection no longer occurs in the
// view — the upstream filter changed underneath it — Apply clears the
// selection and returns the whole view, never an empty narrowed one.
func (c *Coordinator) Apply(view query.View, state DrillDownState) (query.View, DrillDownState) {
	if !state.Selected() {
		return view, state
	}

	if !query.HasGroup(view, state.Dimension, state.Value) {
		c.metrics.DrillDownResets.Inc()
		c.logger.Info("drill-down selection gone from view, clearing",
			"dimension", string(state.Dimension),
			"value", state.Value,
		)
		return view, DrillDownState{}
	}

	narrowed := query.NarrowByGroup(view, state.Dimension, state.Value)
	c.logger.Debug("drill-down applied",
		"dimension", string(state.Dimension),
		"value", state.Value,
		"records_in", len(view),
		"records_out", len(narrowed),
	)
	return narrowed, state
}
