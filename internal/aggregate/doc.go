// Package aggregate is the in-memory half of the reporting pipeline: it
// buckets dated fact points by granularity, applies running and rolling
// calculations per dimension, ranks top-N breakdowns and pivots grouped
// results into wide tables for export.
//
// Every function is pure. Inputs are never mutated and identical inputs
// produce identical, deterministically ordered outputs.
package aggregate
