// Package query builds parameterized WHERE clauses for the analytics fact
// tables.
//
// A Predicate is a single typed comparison (equality, range, set membership
// or null check) on one column. Its right-hand side is an Operand: either a
// literal rendered into the SQL text, or a named placeholder (@name) whose
// value is supplied at execution time. Literals are reserved for
// server-computed values such as the enterprise UUID; anything that came from
// a request goes through a placeholder.
//
// A Set AND-combines predicates into one filter expression that many query
// templates can share. Bind turns the @name placeholders in finished query
// text into the positional placeholders a given SQL dialect expects.
package query
