package aggregate

import (
	"slices"
	"time"
)

// Wide is a pivoted table: one row per remaining key tuple and bucket, one
// column per distinct pivot value.
type Wide struct {
	// Columns are the distinct pivot values, sorted ascending.
	Columns []string
	Rows    []WideRow
}

// WideRow holds one Values entry per Wide.Columns entry. Combinations
// absent from the input have no value.
type WideRow struct {
	Keys   []string
	Bucket *time.Time
	Values []Measure
}

// Pivot spreads Keys[column] of each group across columns. Groups whose
// Keys are too short to hold column are ignored.
func Pivot(groups []Group, column int) Wide {
	var columns []string
	for _, g := range groups {
		if column < len(g.Keys) {
			columns = append(columns, g.Keys[column])
		}
	}
	slices.Sort(columns)
	columns = slices.Compact(columns)

	colIndex := make(map[string]int, len(columns))
	for i, c := range columns {
		colIndex[c] = i
	}

	rowIndex := make(map[string]int)
	var rows []WideRow
	for _, g := range groups {
		if column >= len(g.Keys) {
			continue
		}
		keys := slices.Delete(slices.Clone(g.Keys), column, column+1)
		id := tupleKey(keys)
		if g.Bucket != nil {
			id += "\x00" + g.Bucket.Format(time.DateOnly)
		}
		i, ok := rowIndex[id]
		if !ok {
			i = len(rows)
			rowIndex[id] = i
			rows = append(rows, WideRow{Keys: keys, Bucket: g.Bucket, Values: make([]Measure, len(columns))})
		}
		rows[i].Values[colIndex[g.Keys[column]]] = g.Measure
	}

	slices.SortStableFunc(rows, func(a, b WideRow) int {
		if c := compareKeys(a.Keys, b.Keys); c != 0 {
			return c
		}
		return compareBuckets(a.Bucket, b.Bucket)
	})
	return Wide{Columns: columns, Rows: rows}
}
