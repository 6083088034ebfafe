package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Dialect selects the positional placeholder syntax of a SQL target.
type Dialect int

// Postgres numbers its placeholders ($1, $2, ...); Snowflake and SQLite use
// a bare ? for each argument.
const (
	Postgres Dialect = iota
	Snowflake
	SQLite
)

var dialectNames = map[Dialect]string{
	Postgres:  "postgres",
	Snowflake: "snowflake",
	SQLite:    "sqlite3",
}

func (d Dialect) String() string {
	if name, ok := dialectNames[d]; ok {
		return name
	}
	return "dialect(" + strconv.Itoa(int(d)) + ")"
}

// ParseDialect maps a database/sql driver name to its Dialect.
func ParseDialect(name string) (Dialect, error) {
	for d, n := range dialectNames {
		if n == name {
			return d, nil
		}
	}
	if name == "sqlite" {
		return SQLite, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Bind rewrites the @name placeholders in text into d's positional
// placeholders and returns the arguments in matching order. Slice values
// expand into a comma-separated list; an empty slice renders NULL so that
// "IN (NULL)" matches nothing. Text inside single-quoted literals is left
// alone.
func Bind(text string, params Params, d Dialect) (string, []any, error) {
	var b strings.Builder
	b.Grow(len(text))
	args := make([]any, 0, len(params))
	inQuote := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\'' {
			inQuote = !inQuote
			b.WriteByte(c)
			continue
		}
		if inQuote || c != '@' {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(text) && isNameByte(text[j], j == i+1) {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		name := text[i+1 : j]
		v, ok := params[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: @%s", ErrMissingParam, name)
		}

		if isList(v) {
			rv := reflect.ValueOf(v)
			if rv.Len() == 0 {
				b.WriteString("NULL")
			}
			for k := 0; k < rv.Len(); k++ {
				if k > 0 {
					b.WriteString(", ")
				}
				args = append(args, rv.Index(k).Interface())
				b.WriteString(d.placeholder(len(args)))
			}
		} else {
			args = append(args, v)
			b.WriteString(d.placeholder(len(args)))
		}
		i = j - 1
	}
	return b.String(), args, nil
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}
