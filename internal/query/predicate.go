package query

// Predicate is one typed comparison on a single column.
//
// This is a sealed interface: only the types in this package implement it,
// so renderers can switch over the variants exhaustively. Predicates are
// immutable once constructed.
type Predicate interface {
	// SQL renders the condition. The same predicate always renders the
	// same text.
	SQL() string
	// Column is the column the predicate constrains.
	Column() string
	// Params lists the placeholder names the predicate references.
	Params() []string

	predicateNode()
}

// EqualPredicate renders "column = value".
type EqualPredicate struct {
	column string
	rhs    string
	params []string
}

// BetweenPredicate renders "(column BETWEEN low AND high)".
type BetweenPredicate struct {
	column string
	low    string
	high   string
	params []string
}

// InPredicate renders "column IN (values)".
type InPredicate struct {
	column string
	rhs    string
	params []string
}

// IsNullPredicate renders "column IS NULL" or "column IS NOT NULL".
type IsNullPredicate struct {
	column string
	not    bool
}

func (EqualPredicate) predicateNode()   {}
func (BetweenPredicate) predicateNode() {}
func (InPredicate) predicateNode()      {}
func (IsNullPredicate) predicateNode()  {}

// Equal constrains column to a single value.
func Equal(column string, op Operand) (Predicate, error) {
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	rhs, err := op.render(column)
	if err != nil {
		return nil, err
	}
	if op.Param == "" && isList(op.Literal) {
		return nil, configErr(column, "equality needs a scalar, got %T", op.Literal)
	}
	return EqualPredicate{column: column, rhs: rhs, params: paramNames(op)}, nil
}

// Between constrains column to the inclusive range [low, high].
func Between(column string, low, high Operand) (Predicate, error) {
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	lo, err := low.render(column)
	if err != nil {
		return nil, err
	}
	hi, err := high.render(column)
	if err != nil {
		return nil, err
	}
	return BetweenPredicate{
		column: column,
		low:    lo,
		high:   hi,
		params: paramNames(low, high),
	}, nil
}

// In constrains column to a set of values. A literal operand must be a
// slice; a parameter operand is expanded by Bind.
func In(column string, op Operand) (Predicate, error) {
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	if op.Param == "" && op.Literal != nil && !isList(op.Literal) {
		return nil, configErr(column, "set membership needs a slice, got %T", op.Literal)
	}
	rhs, err := op.render(column)
	if err != nil {
		return nil, err
	}
	if op.Param != "" {
		rhs = "(" + rhs + ")"
	}
	return InPredicate{column: column, rhs: rhs, params: paramNames(op)}, nil
}

// IsNull matches rows where column has no value.
func IsNull(column string) (Predicate, error) {
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	return IsNullPredicate{column: column}, nil
}

// IsNotNull matches rows where column has a value.
func IsNotNull(column string) (Predicate, error) {
	if err := checkColumn(column); err != nil {
		return nil, err
	}
	return IsNullPredicate{column: column, not: true}, nil
}

func (p EqualPredicate) SQL() string      { return p.column + " = " + p.rhs }
func (p EqualPredicate) Column() string   { return p.column }
func (p EqualPredicate) Params() []string { return append([]string(nil), p.params...) }

func (p BetweenPredicate) SQL() string {
	return "(" + p.column + " BETWEEN " + p.low + " AND " + p.high + ")"
}
func (p BetweenPredicate) Column() string   { return p.column }
func (p BetweenPredicate) Params() []string { return append([]string(nil), p.params...) }

func (p InPredicate) SQL() string      { return p.column + " IN " + p.rhs }
func (p InPredicate) Column() string   { return p.column }
func (p InPredicate) Params() []string { return append([]string(nil), p.params...) }

func (p IsNullPredicate) SQL() string {
	if p.not {
		return p.column + " IS NOT NULL"
	}
	return p.column + " IS NULL"
}
func (p IsNullPredicate) Column() string   { return p.column }
func (p IsNullPredicate) Params() []string { return nil }

func checkColumn(column string) error {
	if !columnPattern.MatchString(column) {
		return configErr(column, "invalid column identifier")
	}
	return nil
}

func paramNames(ops ...Operand) []string {
	var names []string
	for _, op := range ops {
		if op.Param != "" {
			names = append(names, op.Param)
		}
	}
	return names
}
