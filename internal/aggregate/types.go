package aggregate

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Point is a fact row projected onto the columns an aggregation reads.
type Point struct {
	Date  *time.Time
	Keys  map[string]string
	Value float64
}

// Measure is a numeric result that may be undefined, such as a moving
// average without enough history. Undefined measures encode as JSON null.
type Measure struct {
	Value float64
	Valid bool
}

// Valid wraps a defined measure.
func Valid(v float64) Measure { return Measure{Value: v, Valid: true} }

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(m.Value, 'f', -1, 64)), nil
}

func (m *Measure) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*m = Measure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Valid(v)
	return nil
}

// String renders the measure for CSV cells; undefined is empty.
func (m Measure) String() string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// Group is one aggregated output row: dimension values in the order they
// were requested, an optional bucket start date and the reduced measure.
type Group struct {
	Keys    []string   `json:"keys"`
	Bucket  *time.Time `json:"bucket,omitempty"`
	Measure Measure    `json:"measure"`
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// compareKeys orders key tuples element-wise.
func compareKeys(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// compareBuckets orders nil before any date.
func compareBuckets(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func tupleKey(keys []string) string {
	return strings.Join(keys, "\x00")
}

func project(p Point, dims []string) []string {
	keys := make([]string, len(dims))
	for i, d := range dims {
		keys[i] = p.Keys[d]
	}
	return keys
}
