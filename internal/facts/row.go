package facts

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Row is one result row keyed by lower-cased column name. Values are
// whatever the driver scanned, with []byte already converted to string.
type Row map[string]any

// String returns the column as text; NULL becomes "".
func (r Row) String(col string) (string, error) {
	s, err := r.NullString(col)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

// NullString returns nil for a NULL column.
func (r Row) NullString(col string) (*string, error) {
	v, ok := r[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	var s string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = t
	case time.Time:
		s = t.Format(time.DateOnly)
	case int64, float64, bool:
		s = fmt.Sprint(t)
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
	}
	return &s, nil
}

// Int64 reads a count or sum. NULL reads as zero, since SUM over no rows is
// NULL in SQL. Integral floats and numeric strings are accepted.
func (r Row) Int64(col string) (int64, error) {
	v, ok := r[col]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%w: %s is fractional (%v)", ErrColumnType, col, t)
		}
		return int64(t), nil
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %s is %q", ErrColumnType, col, t)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
}

// Float64 reads a numeric column; NULL reads as zero.
func (r Row) Float64(col string) (float64, error) {
	v, ok := r[col]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is %q", ErrColumnType, col, t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
}

var dateLayouts = []string{time.DateOnly, time.RFC3339Nano, time.DateTime, "2006-01-02T15:04:05"}

// Date reads a date column as midnight UTC of its calendar day, discarding
// any time of day. NULL returns nil.
func (r Row) Date(col string) (*time.Time, error) {
	v, ok := r[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	var t time.Time
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = x
	case string:
		parsed, err := parseDate(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is %q", ErrColumnType, col, x)
		}
		t = parsed
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrColumnType, col, v)
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
