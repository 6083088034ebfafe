package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignite/learner-analytics/internal/aggregate"
	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/query"
)

// Filters scope a report. StartDate and EndDate are inclusive calendar
// days; EndDate has no implicit default.
type Filters struct {
	EnterpriseID uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
	GroupID      *uuid.UUID
	CourseType   string
}

// Validate checks the filters without touching the warehouse.
func (f Filters) Validate() error {
	switch {
	case f.EnterpriseID == uuid.Nil:
		return invalid("enterprise_customer_uuid", "required")
	case f.StartDate.IsZero():
		return invalid("start_date", "required")
	case f.EndDate.IsZero():
		return invalid("end_date", "required")
	case dayOf(f.StartDate).After(dayOf(f.EndDate)):
		return invalid("start_date", "%s is after end_date %s",
			f.StartDate.Format(time.DateOnly), f.EndDate.Format(time.DateOnly))
	}
	return nil
}

func (f Filters) cacheArgs(extra cache.Args) cache.Args {
	args := cache.Args{
		"enterprise":  f.EnterpriseID,
		"start_date":  f.StartDate,
		"end_date":    f.EndDate,
		"group":       f.GroupID,
		"course_type": f.CourseType,
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

// DefaultEndDate is today's date in UTC. Only entry points should call it;
// reports always take the end date explicitly.
func DefaultEndDate(now time.Time) time.Time {
	return dayOf(now.UTC())
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ChartOptions select the time-series shape.
type ChartOptions struct {
	Granularity aggregate.Granularity
	Calculation aggregate.Calculation
}

// ParseChartOptions accepts the exact granularity and calculation tokens.
func ParseChartOptions(granularity, calculation string) (ChartOptions, error) {
	g, err := aggregate.ParseGranularity(granularity)
	if err != nil {
		return ChartOptions{}, &ValidationError{Field: "granularity", Reason: err.Error(), Err: err}
	}
	c, err := aggregate.ParseCalculation(calculation)
	if err != nil {
		return ChartOptions{}, &ValidationError{Field: "calculation", Reason: err.Error(), Err: err}
	}
	return ChartOptions{Granularity: g, Calculation: c}, nil
}

// request is a validated Filters with its group membership resolved.
type request struct {
	filters  Filters
	groupIDs []int64
}

// scope builds the predicate set for a fact table whose date column is
// dateColumn. Course type and group filters apply only when dims is set;
// the skills table carries neither column.
func (r *request) scope(dateColumn string, dims bool) (*query.Set, query.Params, error) {
	b := query.NewBuilder().
		Equal(catalog.ColEnterprise, query.Lit(r.filters.EnterpriseID)).
		Between(dateColumn, query.Named("start_date"), query.Named("end_date"))
	params := query.Params{
		"start_date": r.filters.StartDate.Format(time.DateOnly),
		"end_date":   r.filters.EndDate.Format(time.DateOnly),
	}

	if dims && r.filters.CourseType != "" {
		b.Equal(catalog.ColEnrollType, query.Named("course_type"))
		params["course_type"] = r.filters.CourseType
	}
	if dims && r.filters.GroupID != nil {
		b.In(catalog.ColEnterpriseUser, query.Named("group_user_ids"))
		params["group_user_ids"] = r.groupIDs
	}

	set, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return set, params, nil
}
