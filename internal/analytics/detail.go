package analytics

import (
	"context"
	"time"

	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/facts"
	"github.com/ignite/learner-analytics/internal/query"
)

// Enrollment is one enrollment detail row.
type Enrollment struct {
	Email          *string    `json:"email"`
	CourseKey      string     `json:"course_key"`
	CourseTitle    string     `json:"course_title"`
	CourseSubject  string     `json:"course_subject"`
	EnrollType     string     `json:"enroll_type"`
	EnrollmentDate *time.Time `json:"enterprise_enrollment_date"`
}

// Engagement is one learner-course-day engagement detail row.
type Engagement struct {
	Email             *string    `json:"email"`
	CourseKey         string     `json:"course_key"`
	CourseTitle       string     `json:"course_title"`
	CourseSubject     string     `json:"course_subject"`
	EnrollType        string     `json:"enroll_type"`
	ActivityDate      *time.Time `json:"activity_date"`
	LearningTimeHours float64    `json:"learning_time_hours"`
}

// Enrollments returns one page of enrollment detail rows, newest first.
func (s *Service) Enrollments(ctx context.Context, f Filters, p PageRequest) (Page[Enrollment], error) {
	return detailPage(ctx, s, f, p, detailQuery[Enrollment]{
		op:         "enrollments",
		dateColumn: catalog.ColEnrollmentDate,
		count:      s.catalog.Enrollments.Count,
		countCol:   "enrollment_count",
		list:       s.catalog.Enrollments.List,
		decode:     toEnrollment,
	})
}

// Engagements returns one page of engagement detail rows, newest first.
func (s *Service) Engagements(ctx context.Context, f Filters, p PageRequest) (Page[Engagement], error) {
	return detailPage(ctx, s, f, p, detailQuery[Engagement]{
		op:         "engagements",
		dateColumn: catalog.ColActivityDate,
		count:      s.catalog.Engagements.Count,
		countCol:   "engagement_count",
		list:       s.catalog.Engagements.List,
		decode:     toEngagement,
	})
}

type detailQuery[T any] struct {
	op         string
	dateColumn string
	count      func(*query.Set) (string, error)
	countCol   string
	list       func(*query.Set) (string, error)
	decode     func(facts.Row) (T, error)
}

func detailPage[T any](ctx context.Context, s *Service, f Filters, p PageRequest, q detailQuery[T]) (Page[T], error) {
	req, err := s.prepare(ctx, f)
	if err != nil {
		return Page[T]{}, err
	}
	if p, err = s.normalizePage(p); err != nil {
		return Page[T]{}, err
	}

	total, err := s.count(ctx, req, q.op+".count", q.dateColumn, q.count, q.countCol)
	if err != nil {
		return Page[T]{}, err
	}
	if err := checkPage(p, total); err != nil {
		return Page[T]{}, err
	}

	args := cache.Args{"page": p.Number, "page_size": p.Size}
	results, err := fetch(ctx, s, req, q.op+".list", args, func(ctx context.Context) ([]T, error) {
		text, params, err := render(req, q.dateColumn, true, q.list)
		if err != nil {
			return nil, err
		}
		rows, err := s.reader.Execute(ctx, text, params.Merge(query.Params{
			catalog.ParamLimit:  p.Size,
			catalog.ParamOffset: p.offset(),
		}))
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(rows))
		for _, row := range rows {
			v, err := q.decode(row)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
	if err != nil {
		return Page[T]{}, err
	}
	return newPage(results, p, total), nil
}

type courseColumns struct {
	key, title, subject, enrollType string
}

func readCourse(row facts.Row) (c courseColumns, err error) {
	if c.key, err = row.String("course_key"); err != nil {
		return c, err
	}
	if c.title, err = row.String("course_title"); err != nil {
		return c, err
	}
	if c.subject, err = row.String("course_subject"); err != nil {
		return c, err
	}
	c.enrollType, err = row.String(catalog.ColEnrollType)
	return c, err
}

func toEnrollment(row facts.Row) (Enrollment, error) {
	email, err := row.NullString(catalog.ColEmail)
	if err != nil {
		return Enrollment{}, err
	}
	c, err := readCourse(row)
	if err != nil {
		return Enrollment{}, err
	}
	date, err := row.Date(catalog.ColEnrollmentDate)
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{
		Email:          email,
		CourseKey:      c.key,
		CourseTitle:    c.title,
		CourseSubject:  c.subject,
		EnrollType:     c.enrollType,
		EnrollmentDate: date,
	}, nil
}

func toEngagement(row facts.Row) (Engagement, error) {
	email, err := row.NullString(catalog.ColEmail)
	if err != nil {
		return Engagement{}, err
	}
	c, err := readCourse(row)
	if err != nil {
		return Engagement{}, err
	}
	date, err := row.Date(catalog.ColActivityDate)
	if err != nil {
		return Engagement{}, err
	}
	seconds, err := row.Float64("learning_time_seconds")
	if err != nil {
		return Engagement{}, err
	}
	return Engagement{
		Email:             email,
		CourseKey:         c.key,
		CourseTitle:       c.title,
		CourseSubject:     c.subject,
		EnrollType:        c.enrollType,
		ActivityDate:      date,
		LearningTimeHours: seconds / secondsPerHour,
	}, nil
}
