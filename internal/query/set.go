package query

import "strings"

// Set is an ordered, AND-combined collection of predicates. Render order is
// insertion order so the same Set always yields the same text.
type Set struct {
	predicates []Predicate
}

// NewSet returns a Set holding preds in order.
func NewSet(preds ...Predicate) *Set {
	return &Set{predicates: append([]Predicate(nil), preds...)}
}

// With returns a new Set with preds appended. s is not modified, so a base
// filter can be shared between templates that each add their own conditions.
func (s *Set) With(preds ...Predicate) *Set {
	out := make([]Predicate, 0, len(s.predicates)+len(preds))
	out = append(out, s.predicates...)
	out = append(out, preds...)
	return &Set{predicates: out}
}

// Len returns the number of predicates.
func (s *Set) Len() int { return len(s.predicates) }

// Predicates returns a copy of the members.
func (s *Set) Predicates() []Predicate {
	return append([]Predicate(nil), s.predicates...)
}

// SQL renders the members joined with AND. An empty set has no valid
// rendering, since every query must at least scope to a customer.
func (s *Set) SQL() (string, error) {
	if s == nil || len(s.predicates) == 0 {
		return "", ErrEmptySet
	}
	parts := make([]string, len(s.predicates))
	for i, p := range s.predicates {
		parts[i] = p.SQL()
	}
	return strings.Join(parts, " AND "), nil
}

// Params returns the distinct placeholder names referenced by the set, in
// first-use order.
func (s *Set) Params() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range s.predicates {
		for _, name := range p.Params() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Builder accumulates predicates and keeps the first construction error, so
// a filter can be written as a chain and checked once.
type Builder struct {
	predicates []Predicate
	err        error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends the result of a predicate constructor.
func (b *Builder) Add(p Predicate, err error) *Builder {
	if b.err != nil {
		return b
	}
	if err != nil {
		b.err = err
		return b
	}
	b.predicates = append(b.predicates, p)
	return b
}

func (b *Builder) Equal(column string, op Operand) *Builder {
	return b.Add(Equal(column, op))
}

func (b *Builder) Between(column string, low, high Operand) *Builder {
	return b.Add(Between(column, low, high))
}

func (b *Builder) In(column string, op Operand) *Builder {
	return b.Add(In(column, op))
}

func (b *Builder) IsNull(column string) *Builder {
	return b.Add(IsNull(column))
}

func (b *Builder) IsNotNull(column string) *Builder {
	return b.Add(IsNotNull(column))
}

// Build returns the Set, or the first error any constructor reported.
func (b *Builder) Build() (*Set, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.predicates) == 0 {
		return nil, ErrEmptySet
	}
	return NewSet(b.predicates...), nil
}
