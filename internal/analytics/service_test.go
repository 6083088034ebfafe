package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/learner-analytics/internal/aggregate"
	"github.com/ignite/learner-analytics/internal/analytics"
	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/identity"
	"github.com/ignite/learner-analytics/internal/leaderboard"
)

func keysAndValues(groups []aggregate.Group) [][]any {
	out := make([][]any, len(groups))
	for i, g := range groups {
		row := []any{}
		for _, k := range g.Keys {
			row = append(row, k)
		}
		if g.Bucket != nil {
			row = append(row, g.Bucket.Format("2006-01-02"))
		}
		if g.Measure.Valid {
			row = append(row, g.Measure.Value)
		} else {
			row = append(row, nil)
		}
		out[i] = row
	}
	return out
}

func TestAggregates(t *testing.T) {
	f := newFixture(t, nil)

	agg, err := f.svc.Aggregates(context.Background(), january())
	require.NoError(t, err)

	assert.Equal(t, int64(4), agg.EnrollmentCount)
	assert.Equal(t, int64(3), agg.CompletionCount)
	assert.Equal(t, int64(5), agg.EngagementCount)
	assert.InDelta(t, 5.0, agg.LearningTimeHours, 1e-9)
	assert.Equal(t, int64(4), agg.SessionCount)
}

func TestAggregatesCourseTypeFilter(t *testing.T) {
	f := newFixture(t, nil)
	filters := january()
	filters.CourseType = "audit"

	agg, err := f.svc.Aggregates(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.EnrollmentCount)
	assert.Equal(t, int64(0), agg.CompletionCount)
	assert.Equal(t, int64(1), agg.EngagementCount)
	assert.Equal(t, int64(0), agg.SessionCount)
}

func TestAggregatesGroupFilter(t *testing.T) {
	f := newFixture(t, nil)
	filters := january()
	filters.GroupID = &group

	agg, err := f.svc.Aggregates(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.EnrollmentCount)
	assert.Equal(t, int64(1), agg.CompletionCount)
	assert.Equal(t, int64(2), agg.EngagementCount)
	assert.InDelta(t, 3.0, agg.LearningTimeHours, 1e-9)
}

func TestUnknownGroupIsValidationError(t *testing.T) {
	f := newFixture(t, nil)
	filters := january()
	unknown := uuid.New()
	filters.GroupID = &unknown

	_, err := f.svc.Aggregates(context.Background(), filters)
	var verr *analytics.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "group_uuid", verr.Field)
	assert.ErrorIs(t, err, identity.ErrGroupNotFound)
	assert.Zero(t, f.reader.Calls())
}

func TestGroupFilterWithoutResolver(t *testing.T) {
	svc := analytics.NewService(&countingReader{}, nil, catalog.Catalog{}, nil, analytics.Options{})
	filters := january()
	filters.GroupID = &group

	_, err := svc.Aggregates(context.Background(), filters)
	assert.ErrorIs(t, err, analytics.ErrGroupsUnavailable)
}

func TestInvalidFiltersFailBeforeQuerying(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*analytics.Filters)
		field  string
	}{
		{"zero enterprise", func(f *analytics.Filters) { f.EnterpriseID = uuid.Nil }, "enterprise_customer_uuid"},
		{"start after end", func(f *analytics.Filters) { f.StartDate = day("2024-02-01") }, "start_date"},
		{"missing end", func(f *analytics.Filters) { f.EndDate = day("0001-01-01") }, "end_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			filters := january()
			tt.mutate(&filters)

			_, err := f.svc.Aggregates(context.Background(), filters)
			var verr *analytics.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, f.reader.Calls())
		})
	}
}

func TestSameDayRangeIsValid(t *testing.T) {
	f := newFixture(t, nil)
	filters := january()
	filters.StartDate = day("2024-01-02")
	filters.EndDate = day("2024-01-02")

	agg, err := f.svc.Aggregates(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.EnrollmentCount)
}

func TestResultsAreCached(t *testing.T) {
	f := newFixture(t, cache.NewMemoryCache())
	ctx := context.Background()

	first, err := f.svc.Aggregates(ctx, january())
	require.NoError(t, err)
	calls := f.reader.Calls()
	assert.Equal(t, 3, calls)

	second, err := f.svc.Aggregates(ctx, january())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, f.reader.Calls())

	filters := january()
	filters.CourseType = "verified"
	_, err = f.svc.Aggregates(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, calls+3, f.reader.Calls())
}

func TestEnrollmentTimeSeries(t *testing.T) {
	f := newFixture(t, nil)

	daily, err := f.svc.EnrollmentTimeSeries(context.Background(), january(), analytics.ChartOptions{
		Granularity: aggregate.Daily,
		Calculation: aggregate.RunningTotal,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"verified", "2024-01-02", 1.0},
		{"audit", "2024-01-03", 1.0},
		{"verified", "2024-01-09", 2.0},
		{"verified", "2024-01-15", 3.0},
	}, keysAndValues(daily))

	monthly, err := f.svc.EnrollmentTimeSeries(context.Background(), january(), analytics.ChartOptions{
		Granularity: aggregate.Monthly,
		Calculation: aggregate.Total,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"audit", "2024-01-01", 1.0},
		{"verified", "2024-01-01", 3.0},
	}, keysAndValues(monthly))
}

func TestWeeklyBucketsDefaultToMonday(t *testing.T) {
	weekly := analytics.ChartOptions{Granularity: aggregate.Weekly}

	f := newFixture(t, nil)
	groups, err := f.svc.EnrollmentTimeSeries(context.Background(), january(), weekly)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"audit", "2024-01-01", 1.0},
		{"verified", "2024-01-01", 1.0},
		{"verified", "2024-01-08", 1.0},
		{"verified", "2024-01-15", 1.0},
	}, keysAndValues(groups))

	sunday := time.Sunday
	f = newFixture(t, nil, func(o *analytics.Options) { o.WeekStart = &sunday })
	groups, err = f.svc.EnrollmentTimeSeries(context.Background(), january(), weekly)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"audit", "2023-12-31", 1.0},
		{"verified", "2023-12-31", 1.0},
		{"verified", "2024-01-07", 1.0},
		{"verified", "2024-01-14", 1.0},
	}, keysAndValues(groups))
}

func TestCompletionTimeSeriesUsesPassedDate(t *testing.T) {
	f := newFixture(t, nil)

	groups, err := f.svc.CompletionTimeSeries(context.Background(), january(), analytics.ChartOptions{
		Granularity: aggregate.Daily,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"verified", "2024-01-10", 1.0},
		{"verified", "2024-01-16", 1.0},
		{"verified", "2024-01-20", 1.0},
	}, keysAndValues(groups))
}

func TestEngagementTimeSeriesWeeklyHours(t *testing.T) {
	f := newFixture(t, nil)

	groups, err := f.svc.EngagementTimeSeries(context.Background(), january(), analytics.ChartOptions{
		Granularity: aggregate.Weekly,
		Calculation: aggregate.MovingAverage3,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"verified", "2024-01-01", nil},
		{"audit", "2024-01-08", nil},
		{"verified", "2024-01-08", nil},
		{"verified", "2024-01-15", (3.0 + 1.5 + 0.5) / 3},
	}, keysAndValues(groups))
}

func TestTopCoursesByEnrollments(t *testing.T) {
	f := newFixture(t, nil)

	groups, err := f.svc.TopCoursesByEnrollments(context.Background(), january())
	require.NoError(t, err)
	// Both courses have two enrollments; the tie breaks on course key.
	assert.Equal(t, [][]any{
		{"C1", "Course One", "audit", 1.0},
		{"C1", "Course One", "verified", 1.0},
		{"C2", "Course Two", "verified", 2.0},
	}, keysAndValues(groups))
}

func TestTopCoursesRespectsTopN(t *testing.T) {
	f := newFixture(t, nil, func(o *analytics.Options) { o.TopN = 1 })

	groups, err := f.svc.TopCoursesByEngagement(context.Background(), january())
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"C1", "Course One", "audit", 0.0},
		{"C1", "Course One", "verified", 3.0},
	}, keysAndValues(groups))
}

func TestTopSubjectsAndCompletions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	subjects, err := f.svc.TopSubjectsByEnrollments(ctx, january())
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"Business", "verified", 2.0},
		{"Data", "audit", 1.0},
		{"Data", "verified", 1.0},
	}, keysAndValues(subjects))

	completed, err := f.svc.TopCoursesByCompletions(ctx, january())
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"C2", "Course Two", "verified", 2.0},
		{"C1", "Course One", "verified", 1.0},
	}, keysAndValues(completed))
}

func TestTopSkills(t *testing.T) {
	f := newFixture(t, nil, func(o *analytics.Options) { o.TopN = 2 })

	skills, err := f.svc.TopSkills(context.Background(), january())
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"Python", "Computer Science", 3.0},
		{"Python", "Data", 5.0},
		{"SQL", "Data", 4.0},
	}, keysAndValues(skills.ByEnrollments))
	assert.Equal(t, [][]any{
		{"SQL", "Data", 4.0},
		{"Python", "Computer Science", 1.0},
		{"Python", "Data", 2.0},
	}, keysAndValues(skills.ByCompletions))
}

func TestEnrollmentDateRange(t *testing.T) {
	f := newFixture(t, nil)

	r, err := f.svc.EnrollmentDateRange(context.Background(), enterprise)
	require.NoError(t, err)
	require.NotNil(t, r.MinEnrollmentDate)
	require.NotNil(t, r.MaxEnrollmentDate)
	assert.Equal(t, day("2024-01-02"), *r.MinEnrollmentDate)
	assert.Equal(t, day("2024-02-05"), *r.MaxEnrollmentDate)

	empty, err := f.svc.EnrollmentDateRange(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, empty.MinEnrollmentDate)
}

func TestEnrollmentsPage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	page, err := f.svc.Enrollments(ctx, january(), analytics.PageRequest{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Count)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasMore)
	require.Len(t, page.Results, 2)
	assert.Nil(t, page.Results[0].Email)
	assert.Equal(t, day("2024-01-15"), *page.Results[0].EnrollmentDate)
	assert.Equal(t, "C2", page.Results[1].CourseKey)

	last, err := f.svc.Enrollments(ctx, january(), analytics.PageRequest{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.False(t, last.HasMore)
	require.Len(t, last.Results, 2)
	assert.Equal(t, "a@example.com", *last.Results[1].Email)
}

func TestPageValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Enrollments(ctx, january(), analytics.PageRequest{Number: 0})
	var verr *analytics.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "page", verr.Field)
	assert.Zero(t, f.reader.Calls())

	_, err = f.svc.Engagements(ctx, january(), analytics.PageRequest{Number: 4, Size: 2})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "page", verr.Field)
	assert.Equal(t, 1, f.reader.Calls())
}

func TestEmptyResultHasOnePage(t *testing.T) {
	f := newFixture(t, nil)
	filters := january()
	filters.EnterpriseID = uuid.New()

	page, err := f.svc.Engagements(context.Background(), filters, analytics.PageRequest{Number: 1})
	require.NoError(t, err)
	assert.Empty(t, page.Results)
	assert.NotNil(t, page.Results)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 50, page.PageSize)
}

func TestEngagementsPageCapsSize(t *testing.T) {
	f := newFixture(t, nil)

	page, err := f.svc.Engagements(context.Background(), january(), analytics.PageRequest{Number: 1, Size: 5000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
	require.Len(t, page.Results, 5)
	assert.InDelta(t, 0.5, page.Results[0].LearningTimeHours, 1e-9)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t, nil)

	page, err := f.svc.Leaderboard(context.Background(), january(), analytics.PageRequest{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)
	require.Len(t, page.Results, 3)

	a, b, sentinel := page.Results[0], page.Results[1], page.Results[2]
	assert.Equal(t, "a@example.com", a.Email)
	assert.Equal(t, 3.0, a.LearningTimeHours)
	assert.Equal(t, int64(2), a.SessionCount)
	assert.Equal(t, 1.5, a.AverageSessionLength)
	require.NotNil(t, a.CourseCompletionCount)
	assert.Equal(t, int64(1), *a.CourseCompletionCount)

	assert.Equal(t, "b@example.com", b.Email)
	assert.Equal(t, 1.5, b.LearningTimeHours)

	assert.True(t, sentinel.Sentinel)
	assert.Equal(t, leaderboard.ConsentSentinel, sentinel.Email)
	assert.Equal(t, 0.5, sentinel.LearningTimeHours)
	require.NotNil(t, sentinel.CourseCompletionCount)
	assert.Equal(t, int64(1), *sentinel.CourseCompletionCount)
}

func TestLeaderboardSentinelOnLastPageOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Leaderboard(ctx, january(), analytics.PageRequest{Number: 1, Size: 1})
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.Equal(t, "a@example.com", first.Results[0].Email)
	assert.True(t, first.HasMore)

	second, err := f.svc.Leaderboard(ctx, january(), analytics.PageRequest{Number: 2, Size: 1})
	require.NoError(t, err)
	require.Len(t, second.Results, 2)
	assert.Equal(t, "b@example.com", second.Results[0].Email)
	assert.True(t, second.Results[1].Sentinel)

	_, err = f.svc.Leaderboard(ctx, january(), analytics.PageRequest{Number: 3, Size: 1})
	var verr *analytics.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestLeaderboardSkipsNullEmailQueriesWithoutNullActivity(t *testing.T) {
	f := newFixture(t, nil)
	filters := january()
	filters.GroupID = &group

	page, err := f.svc.Leaderboard(context.Background(), filters, analytics.PageRequest{Number: 1})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "a@example.com", page.Results[0].Email)
	assert.False(t, page.Results[0].Sentinel)
	// Count, engagement page and completions only.
	assert.Equal(t, 3, f.reader.Calls())
}

func TestFullLeaderboardWalksPages(t *testing.T) {
	f := newFixture(t, nil, func(o *analytics.Options) {
		o.DefaultPageSize = 1
		o.MaxPageSize = 1
	})

	rows, err := f.svc.FullLeaderboard(context.Background(), january())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a@example.com", rows[0].Email)
	assert.Equal(t, "b@example.com", rows[1].Email)
	assert.True(t, rows[2].Sentinel)
}

func TestFullLeaderboardEmpty(t *testing.T) {
	f := newFixture(t, nil)
	filters := january()
	filters.EnterpriseID = uuid.New()

	rows, err := f.svc.FullLeaderboard(context.Background(), filters)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseChartOptions(t *testing.T) {
	opts, err := analytics.ParseChartOptions("Weekly", "Moving Average (7 Period)")
	require.NoError(t, err)
	assert.Equal(t, aggregate.Weekly, opts.Granularity)
	assert.Equal(t, aggregate.MovingAverage7, opts.Calculation)

	_, err = analytics.ParseChartOptions("Hourly", "Total")
	var verr *analytics.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "granularity", verr.Field)
	assert.ErrorIs(t, err, aggregate.ErrUnknownGranularity)

	_, err = analytics.ParseChartOptions("Daily", "total")
	assert.ErrorIs(t, err, aggregate.ErrUnknownCalculation)
}
