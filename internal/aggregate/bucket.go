package aggregate

import (
	"slices"
	"time"
)

// Truncate maps a date to the start of its period. The time of day is
// discarded and the result is midnight UTC. Weeks start on weekStart.
func Truncate(date time.Time, g Granularity, weekStart time.Weekday) time.Time {
	day := dayOf(date)
	switch g {
	case Weekly:
		back := (int(day.Weekday()) - int(weekStart) + 7) % 7
		return day.AddDate(0, 0, -back)
	case Monthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		first := time.Month((int(day.Month())-1)/3*3 + 1)
		return time.Date(day.Year(), first, 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

// BucketSpec configures Bucket.
type BucketSpec struct {
	Granularity Granularity
	// GroupBy names the Point.Keys that, with the bucket, form a group.
	GroupBy []string
	Mode    Mode
	// WeekStart is the first day of a Weekly bucket. The zero value is
	// Sunday; callers wanting ISO weeks pass time.Monday.
	WeekStart time.Weekday
}

// Bucket groups dated points by (bucket, GroupBy dimensions) and reduces
// each group by spec.Mode. Points without a date are skipped. Groups are
// ordered by bucket ascending, then by dimension values.
func Bucket(points []Point, spec BucketSpec) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, p := range points {
		if p.Date == nil {
			continue
		}
		bucket := Truncate(*p.Date, spec.Granularity, spec.WeekStart)
		keys := project(p, spec.GroupBy)
		id := tupleKey(keys) + "\x00" + bucket.Format(time.DateOnly)

		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{Keys: keys, Bucket: &bucket, Measure: Valid(0)})
		}
		groups[i].Measure.Value += reduce(p, spec.Mode)
	}

	sortGroups(groups)
	return groups
}

func reduce(p Point, mode Mode) float64 {
	if mode == Sum {
		return p.Value
	}
	return 1
}

// sortGroups orders groups by bucket date, then by dimension keys within a
// bucket.
func sortGroups(groups []Group) {
	slices.SortStableFunc(groups, func(a, b Group) int {
		if c := compareBuckets(a.Bucket, b.Bucket); c != 0 {
			return c
		}
		return compareKeys(a.Keys, b.Keys)
	})
}
