package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/learner-analytics/internal/aggregate"
	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/facts"
	"github.com/ignite/learner-analytics/internal/query"
)

const secondsPerHour = 3600.0

// Aggregates are the headline totals for a filter.
type Aggregates struct {
	EnrollmentCount   int64   `json:"enrolls"`
	CompletionCount   int64   `json:"completions"`
	EngagementCount   int64   `json:"engagements"`
	LearningTimeHours float64 `json:"hours"`
	SessionCount      int64   `json:"sessions"`
}

// Aggregates totals enrollments, completions and engagement for f.
func (s *Service) Aggregates(ctx context.Context, f Filters) (Aggregates, error) {
	req, err := s.prepare(ctx, f)
	if err != nil {
		return Aggregates{}, err
	}

	enrolls, err := s.count(ctx, req, "enrollments.count", catalog.ColEnrollmentDate,
		s.catalog.Enrollments.Count, "enrollment_count")
	if err != nil {
		return Aggregates{}, err
	}
	completions, err := s.count(ctx, req, "enrollments.completion_count", catalog.ColPassedDate,
		s.catalog.Enrollments.CompletionCount, "completion_count")
	if err != nil {
		return Aggregates{}, err
	}

	summary, err := fetch(ctx, s, req, "engagements.summary", nil, func(ctx context.Context) (engagementSummary, error) {
		text, params, err := render(req, catalog.ColActivityDate, true, s.catalog.Engagements.Summary)
		if err != nil {
			return engagementSummary{}, err
		}
		row, err := s.single(ctx, text, params)
		if err != nil {
			return engagementSummary{}, fmt.Errorf("engagement summary: %w", err)
		}
		var sum engagementSummary
		if sum.Count, err = row.Int64("engagement_count"); err != nil {
			return engagementSummary{}, err
		}
		if sum.LearningSeconds, err = row.Float64("learning_time_seconds"); err != nil {
			return engagementSummary{}, err
		}
		if sum.Sessions, err = row.Int64("session_count"); err != nil {
			return engagementSummary{}, err
		}
		return sum, nil
	})
	if err != nil {
		return Aggregates{}, err
	}

	return Aggregates{
		EnrollmentCount:   enrolls,
		CompletionCount:   completions,
		EngagementCount:   summary.Count,
		LearningTimeHours: summary.LearningSeconds / secondsPerHour,
		SessionCount:      summary.Sessions,
	}, nil
}

type engagementSummary struct {
	Count           int64   `json:"engagement_count"`
	LearningSeconds float64 `json:"learning_time_seconds"`
	Sessions        int64   `json:"session_count"`
}

func (s *Service) count(ctx context.Context, req *request, op, dateColumn string, tmpl func(*query.Set) (string, error), column string) (int64, error) {
	return fetch(ctx, s, req, op, nil, func(ctx context.Context) (int64, error) {
		text, params, err := render(req, dateColumn, true, tmpl)
		if err != nil {
			return 0, err
		}
		row, err := s.single(ctx, text, params)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		return row.Int64(column)
	})
}

// EnrollmentTimeSeries counts enrollments per bucket and enroll_type.
func (s *Service) EnrollmentTimeSeries(ctx context.Context, f Filters, opts ChartOptions) ([]aggregate.Group, error) {
	return s.timeSeries(ctx, f, opts, seriesQuery{
		op:         "enrollments.time_series",
		dateColumn: catalog.ColEnrollmentDate,
		tmpl:       s.catalog.Enrollments.TimeSeries,
		mode:       aggregate.Count,
	})
}

// CompletionTimeSeries counts completions per bucket of pass date and
// enroll_type.
func (s *Service) CompletionTimeSeries(ctx context.Context, f Filters, opts ChartOptions) ([]aggregate.Group, error) {
	return s.timeSeries(ctx, f, opts, seriesQuery{
		op:         "enrollments.completion_time_series",
		dateColumn: catalog.ColPassedDate,
		tmpl:       s.catalog.Enrollments.CompletionTimeSeries,
		mode:       aggregate.Count,
	})
}

// EngagementTimeSeries sums learning hours per bucket and enroll_type.
func (s *Service) EngagementTimeSeries(ctx context.Context, f Filters, opts ChartOptions) ([]aggregate.Group, error) {
	return s.timeSeries(ctx, f, opts, seriesQuery{
		op:          "engagements.time_series",
		dateColumn:  catalog.ColActivityDate,
		tmpl:        s.catalog.Engagements.TimeSeries,
		mode:        aggregate.Sum,
		valueColumn: "learning_time_seconds",
		unit:        secondsPerHour,
	})
}

type seriesQuery struct {
	op          string
	dateColumn  string
	tmpl        func(*query.Set) (string, error)
	mode        aggregate.Mode
	valueColumn string
	unit        float64
}

func (s *Service) timeSeries(ctx context.Context, f Filters, opts ChartOptions, q seriesQuery) ([]aggregate.Group, error) {
	req, err := s.prepare(ctx, f)
	if err != nil {
		return nil, err
	}

	points, err := fetch(ctx, s, req, q.op, nil, func(ctx context.Context) ([]aggregate.Point, error) {
		text, params, err := render(req, q.dateColumn, true, q.tmpl)
		if err != nil {
			return nil, err
		}
		rows, err := s.reader.Execute(ctx, text, params)
		if err != nil {
			return nil, err
		}
		return toPoints(rows, q.dateColumn, q.valueColumn, q.unit, catalog.ColEnrollType)
	})
	if err != nil {
		return nil, err
	}

	groups := aggregate.Bucket(points, aggregate.BucketSpec{
		Granularity: opts.Granularity,
		GroupBy:     []string{catalog.ColEnrollType},
		Mode:        q.mode,
		WeekStart:   s.weekStart,
	})
	return aggregate.Apply(groups, opts.Calculation), nil
}

// toPoints projects rows onto aggregation points, dividing values by unit.
// An empty valueColumn leaves Value zero, which Count mode ignores.
func toPoints(rows []facts.Row, dateColumn, valueColumn string, unit float64, keys ...string) ([]aggregate.Point, error) {
	points := make([]aggregate.Point, 0, len(rows))
	for _, row := range rows {
		p := aggregate.Point{Keys: make(map[string]string, len(keys))}
		var err error
		if dateColumn != "" {
			if p.Date, err = row.Date(dateColumn); err != nil {
				return nil, err
			}
		}
		for _, k := range keys {
			if p.Keys[k], err = row.String(k); err != nil {
				return nil, err
			}
		}
		if valueColumn != "" {
			if p.Value, err = row.Float64(valueColumn); err != nil {
				return nil, err
			}
			p.Value /= unit
		}
		points = append(points, p)
	}
	return points, nil
}

// TopCoursesByEnrollments returns the enrollment counts of the most
// enrolled courses, keyed by (course_key, course_title, enroll_type).
func (s *Service) TopCoursesByEnrollments(ctx context.Context, f Filters) ([]aggregate.Group, error) {
	return s.topN(ctx, f, topNQuery{
		op:         "enrollments.top_courses",
		dateColumn: catalog.ColEnrollmentDate,
		tmpl:       s.catalog.Enrollments.TopCourses,
		keys:       []string{"course_key", "course_title", catalog.ColEnrollType},
		measure:    "enrollment_count",
		unit:       1,
	})
}

// TopSubjectsByEnrollments returns the enrollment counts of the most
// enrolled subjects, keyed by (course_subject, enroll_type).
func (s *Service) TopSubjectsByEnrollments(ctx context.Context, f Filters) ([]aggregate.Group, error) {
	return s.topN(ctx, f, topNQuery{
		op:         "enrollments.top_subjects",
		dateColumn: catalog.ColEnrollmentDate,
		tmpl:       s.catalog.Enrollments.TopSubjects,
		keys:       []string{"course_subject", catalog.ColEnrollType},
		measure:    "enrollment_count",
		unit:       1,
	})
}

// TopCoursesByCompletions returns the completion counts of the most
// completed courses.
func (s *Service) TopCoursesByCompletions(ctx context.Context, f Filters) ([]aggregate.Group, error) {
	return s.topN(ctx, f, topNQuery{
		op:         "enrollments.top_completed_courses",
		dateColumn: catalog.ColPassedDate,
		tmpl:       s.catalog.Enrollments.TopCompletedCourses,
		keys:       []string{"course_key", "course_title", catalog.ColEnrollType},
		measure:    "completion_count",
		unit:       1,
	})
}

// TopCoursesByEngagement returns the learning hours of the most engaged
// courses.
func (s *Service) TopCoursesByEngagement(ctx context.Context, f Filters) ([]aggregate.Group, error) {
	return s.topN(ctx, f, topNQuery{
		op:         "engagements.top_courses",
		dateColumn: catalog.ColActivityDate,
		tmpl:       s.catalog.Engagements.TopCourses,
		keys:       []string{"course_key", "course_title", catalog.ColEnrollType},
		measure:    "learning_time_seconds",
		unit:       secondsPerHour,
	})
}

type topNQuery struct {
	op         string
	dateColumn string
	tmpl       func(*query.Set) (string, error)
	keys       []string
	measure    string
	unit       float64
}

func (s *Service) topN(ctx context.Context, f Filters, q topNQuery) ([]aggregate.Group, error) {
	req, err := s.prepare(ctx, f)
	if err != nil {
		return nil, err
	}
	n := s.opts.TopN

	return fetch(ctx, s, req, q.op, cache.Args{"top_n": n}, func(ctx context.Context) ([]aggregate.Group, error) {
		text, params, err := render(req, q.dateColumn, true, q.tmpl)
		if err != nil {
			return nil, err
		}
		params[catalog.ParamRecordCount] = n
		rows, err := s.reader.Execute(ctx, text, params)
		if err != nil {
			return nil, err
		}

		groups := make([]aggregate.Group, 0, len(rows))
		for _, row := range rows {
			g := aggregate.Group{Keys: make([]string, len(q.keys))}
			for i, k := range q.keys {
				if g.Keys[i], err = row.String(k); err != nil {
					return nil, err
				}
			}
			v, err := row.Float64(q.measure)
			if err != nil {
				return nil, err
			}
			g.Measure = aggregate.Valid(v / q.unit)
			groups = append(groups, g)
		}
		return groups, nil
	})
}

// SkillRecord is one row of the skills taxonomy facts.
type SkillRecord struct {
	SkillName     string `json:"skill_name"`
	SkillType     string `json:"skill_type"`
	CourseSubject string `json:"course_subject"`
	Enrolls       int64  `json:"enrolls"`
	Completions   int64  `json:"completions"`
}

// Skills holds the top skills by enrollments and by completions, each
// keyed by (skill_name, course_subject).
type Skills struct {
	ByEnrollments []aggregate.Group `json:"top_skills"`
	ByCompletions []aggregate.Group `json:"top_skills_by_completions"`
}

// TopSkills ranks skills in memory. The skills table has no enroll_type or
// learner column, so only the enterprise and date filters apply.
func (s *Service) TopSkills(ctx context.Context, f Filters) (Skills, error) {
	req, err := s.prepare(ctx, f)
	if err != nil {
		return Skills{}, err
	}

	records, err := fetch(ctx, s, req, "skills.rows", nil, func(ctx context.Context) ([]SkillRecord, error) {
		text, params, err := render(req, catalog.ColSkillDate, false, s.catalog.Skills.Rows)
		if err != nil {
			return nil, err
		}
		rows, err := s.reader.Execute(ctx, text, params)
		if err != nil {
			return nil, err
		}
		return toSkillRecords(rows)
	})
	if err != nil {
		return Skills{}, err
	}

	enrolls := make([]aggregate.Point, len(records))
	completions := make([]aggregate.Point, len(records))
	for i, r := range records {
		keys := map[string]string{"skill_name": r.SkillName, "course_subject": r.CourseSubject}
		enrolls[i] = aggregate.Point{Keys: keys, Value: float64(r.Enrolls)}
		completions[i] = aggregate.Point{Keys: keys, Value: float64(r.Completions)}
	}
	spec := aggregate.TopNSpec{
		RankBy:      "skill_name",
		BreakdownBy: []string{"course_subject"},
		Mode:        aggregate.Sum,
		N:           s.opts.TopN,
	}
	return Skills{
		ByEnrollments: aggregate.TopN(enrolls, spec),
		ByCompletions: aggregate.TopN(completions, spec),
	}, nil
}

func toSkillRecords(rows []facts.Row) ([]SkillRecord, error) {
	records := make([]SkillRecord, 0, len(rows))
	for _, row := range rows {
		var r SkillRecord
		var err error
		if r.SkillName, err = row.String("skill_name"); err != nil {
			return nil, err
		}
		if r.SkillType, err = row.String("skill_type"); err != nil {
			return nil, err
		}
		if r.CourseSubject, err = row.String("course_subject"); err != nil {
			return nil, err
		}
		if r.Enrolls, err = row.Int64("enrolls"); err != nil {
			return nil, err
		}
		if r.Completions, err = row.Int64("completions"); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// DateRange is the span of enrollment activity for an enterprise. Both
// ends are nil when the enterprise has no enrollments.
type DateRange struct {
	MinEnrollmentDate *time.Time `json:"min_enrollment_date"`
	MaxEnrollmentDate *time.Time `json:"max_enrollment_date"`
}

// EnrollmentDateRange returns the first and last enrollment dates of an
// enterprise across all time, for picking a default report window.
func (s *Service) EnrollmentDateRange(ctx context.Context, enterpriseID uuid.UUID) (DateRange, error) {
	if enterpriseID == uuid.Nil {
		return DateRange{}, invalid("enterprise_customer_uuid", "required")
	}

	args := cache.Args{"enterprise": enterpriseID}
	return cache.Remember(ctx, s.cache, "enrollments.date_range", args, s.opts.CacheTTL, func(ctx context.Context) (DateRange, error) {
		set, err := query.NewBuilder().Equal(catalog.ColEnterprise, query.Lit(enterpriseID)).Build()
		if err != nil {
			return DateRange{}, err
		}
		text, err := s.catalog.Enrollments.DateRange(set)
		if err != nil {
			return DateRange{}, err
		}
		row, err := s.single(ctx, text, nil)
		if err != nil {
			return DateRange{}, fmt.Errorf("enrollment date range: %w", err)
		}
		var r DateRange
		if r.MinEnrollmentDate, err = row.Date("min_enrollment_date"); err != nil {
			return DateRange{}, err
		}
		if r.MaxEnrollmentDate, err = row.Date("max_enrollment_date"); err != nil {
			return DateRange{}, err
		}
		return r, nil
	})
}
