// Package query is the filtering and aggregation core: compose a FilterSpec
// into an ordered view of a crash dataset, run groupby reductions described
// by an AggregationSpec, and derive the summary shapes renderers consume
// (KPI totals, cumulative cost series, map-ready subsets, viewport bounds).
//
// Every operation is pure: views are ordered subsequences of the dataset's
// records, never copies, and nothing here mutates a record. That keeps one
// normalized dataset safely shared across concurrent sessions — each session
// only composes its own specs over it. Engine wraps the same operations with
// logging and metrics for callers that want instrumented passes.
//
// Empty results are ordinary values, not errors: a filter can match nothing,
// an aggregation of nothing has no rows, totals of nothing are zeros.
// Only malformed specs produce errors, before anything executes.
package query
