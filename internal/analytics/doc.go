// Package analytics serves enterprise learning reports. It validates
// request filters, builds per-table predicate sets, renders catalog
// templates, reads facts through the result cache and runs the in-memory
// aggregation pipeline over them.
//
// Every request is scoped to one enterprise customer and an inclusive date
// range. Optional filters restrict it to one enrollment type or one
// enterprise learner group.
package analytics
