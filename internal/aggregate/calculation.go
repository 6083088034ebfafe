package aggregate

import "slices"

// Apply runs calc over groups. Groups sharing the same Keys form one
// dimension series, processed in bucket order. The result is a new slice
// in the input order; groups is left untouched.
//
// Running Total is the cumulative sum of a series. A Moving Average of
// period k is the mean of the current and previous k-1 buckets; the first
// k-1 buckets of each series have no value.
func Apply(groups []Group, calc Calculation) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Keys = slices.Clone(g.Keys)
	}
	if calc == Total {
		return out
	}

	for _, series := range seriesOf(out) {
		switch calc {
		case RunningTotal:
			runningTotal(out, series)
		case MovingAverage3, MovingAverage7:
			movingAverage(out, series, calc.Window())
		}
	}
	return out
}

// seriesOf partitions group indexes by Keys, each partition in bucket order.
func seriesOf(groups []Group) [][]int {
	index := make(map[string]int)
	var series [][]int
	for i, g := range groups {
		id := tupleKey(g.Keys)
		s, ok := index[id]
		if !ok {
			s = len(series)
			index[id] = s
			series = append(series, nil)
		}
		series[s] = append(series[s], i)
	}
	for _, idx := range series {
		slices.SortStableFunc(idx, func(a, b int) int {
			return compareBuckets(groups[a].Bucket, groups[b].Bucket)
		})
	}
	return series
}

func runningTotal(groups []Group, series []int) {
	var sum float64
	valid := true
	for _, i := range series {
		valid = valid && groups[i].Measure.Valid
		sum += groups[i].Measure.Value
		groups[i].Measure = Measure{Value: sum, Valid: valid}
	}
}

func movingAverage(groups []Group, series []int, k int) {
	values := make([]Measure, len(series))
	for n, i := range series {
		values[n] = groups[i].Measure
	}
	for n, i := range series {
		if n < k-1 {
			groups[i].Measure = Measure{}
			continue
		}
		var sum float64
		valid := true
		for _, m := range values[n-k+1 : n+1] {
			valid = valid && m.Valid
			sum += m.Value
		}
		if !valid {
			groups[i].Measure = Measure{}
			continue
		}
		groups[i].Measure = Valid(sum / float64(k))
	}
}
