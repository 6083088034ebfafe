package query

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operand is the right-hand side of a comparison. Exactly one of Literal or
// Param must be set.
type Operand struct {
	// Literal is rendered directly into the SQL text. Only use it for values
	// the server computed itself.
	Literal any
	// Param names a placeholder whose value is bound at execution.
	Param string
}

// Lit returns an operand rendered as an escaped SQL literal.
func Lit(v any) Operand { return Operand{Literal: v} }

// Named returns an operand rendered as the placeholder @name.
func Named(name string) Operand { return Operand{Param: name} }

// Params holds the values bound to named placeholders.
type Params map[string]any

// Merge returns a new Params holding p overlaid with other.
func (p Params) Merge(other Params) Params {
	out := make(Params, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

var (
	columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	paramPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// render validates the operand and returns its SQL text.
func (o Operand) render(column string) (string, error) {
	hasLiteral := o.Literal != nil
	hasParam := o.Param != ""
	switch {
	case hasLiteral && hasParam:
		return "", configErr(column, "both a literal value and parameter %q were supplied", o.Param)
	case !hasLiteral && !hasParam:
		return "", configErr(column, "neither a literal value nor a parameter name was supplied")
	case hasParam:
		if !paramPattern.MatchString(o.Param) {
			return "", configErr(column, "invalid parameter name %q", o.Param)
		}
		return "@" + o.Param, nil
	}
	text, err := renderLiteral(o.Literal)
	if err != nil {
		return "", configErr(column, "%v", err)
	}
	return text, nil
}

// renderLiteral renders v as SQL. Strings are single-quoted with embedded
// quotes doubled; slices render recursively as a parenthesised list.
func renderLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quote(val), nil
	case uuid.UUID:
		return quote(val.String()), nil
	case time.Time:
		return quote(val.Format(time.DateOnly)), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case []byte:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
	if rv.Len() == 0 {
		return "(NULL)", nil
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		part, err := renderLiteral(rv.Index(i).Interface())
		if err != nil {
			return "", fmt.Errorf("element %d: %w", i, err)
		}
		parts[i] = part
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// isList reports whether v expands to a list of values when bound.
func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Slice
}
