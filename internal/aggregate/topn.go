package aggregate

import (
	"slices"
	"strings"
)

// DefaultTopN is used when TopNSpec.N is not positive.
const DefaultTopN = 10

// TopNSpec configures TopN.
type TopNSpec struct {
	RankBy      string
	BreakdownBy []string
	Mode        Mode
	N           int
}

// Rank totals the measure per RankBy value across all points and returns
// the n highest, measure descending. Equal measures order by key
// ascending.
func Rank(points []Point, rankBy string, mode Mode, n int) []Group {
	if n <= 0 {
		n = DefaultTopN
	}
	totals := make(map[string]float64)
	for _, p := range points {
		totals[p.Keys[rankBy]] += reduce(p, mode)
	}

	ranked := make([]Group, 0, len(totals))
	for key, total := range totals {
		ranked = append(ranked, Group{Keys: []string{key}, Measure: Valid(total)})
	}
	slices.SortFunc(ranked, func(a, b Group) int {
		switch {
		case a.Measure.Value > b.Measure.Value:
			return -1
		case a.Measure.Value < b.Measure.Value:
			return 1
		}
		return strings.Compare(a.Keys[0], b.Keys[0])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopN keeps the top N RankBy values and re-aggregates the original points
// restricted to them, grouped by (RankBy, BreakdownBy...). Ranking on the
// coarse dimension first keeps N distinct RankBy values in the output
// rather than the N largest combinations. Output follows rank order, then
// breakdown values ascending.
func TopN(points []Point, spec TopNSpec) []Group {
	ranked := Rank(points, spec.RankBy, spec.Mode, spec.N)
	position := make(map[string]int, len(ranked))
	for i, r := range ranked {
		position[r.Keys[0]] = i
	}

	dims := append([]string{spec.RankBy}, spec.BreakdownBy...)
	index := make(map[string]int)
	var groups []Group
	for _, p := range points {
		if _, ok := position[p.Keys[spec.RankBy]]; !ok {
			continue
		}
		keys := project(p, dims)
		id := tupleKey(keys)
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{Keys: keys, Measure: Valid(0)})
		}
		groups[i].Measure.Value += reduce(p, spec.Mode)
	}

	slices.SortFunc(groups, func(a, b Group) int {
		if c := position[a.Keys[0]] - position[b.Keys[0]]; c != 0 {
			return c
		}
		return compareKeys(a.Keys[1:], b.Keys[1:])
	})
	return groups
}
