package export

import (
	"strconv"

	"github.com/ignite/learner-analytics/internal/analytics"
)

var aggregatesHeader = []string{"enrolls", "completions", "engagements", "hours", "sessions"}

// FromAggregates renders the headline totals as a single record.
func FromAggregates(a analytics.Aggregates) Table {
	return Table{
		Header: aggregatesHeader,
		Records: []Record{{
			"enrolls":     strconv.FormatInt(a.EnrollmentCount, 10),
			"completions": strconv.FormatInt(a.CompletionCount, 10),
			"engagements": strconv.FormatInt(a.EngagementCount, 10),
			"hours":       formatFloat(a.LearningTimeHours),
			"sessions":    strconv.FormatInt(a.SessionCount, 10),
		}},
	}
}

var enrollmentHeader = []string{
	"email",
	"course_key",
	"course_title",
	"course_subject",
	"enroll_type",
	"enterprise_enrollment_date",
}

// FromEnrollments renders enrollment detail rows. A withheld email is an
// empty cell.
func FromEnrollments(rows []analytics.Enrollment) Table {
	t := Table{Header: enrollmentHeader, Records: make([]Record, 0, len(rows))}
	for _, r := range rows {
		t.Records = append(t.Records, Record{
			"email":                      deref(r.Email),
			"course_key":                 r.CourseKey,
			"course_title":               r.CourseTitle,
			"course_subject":             r.CourseSubject,
			"enroll_type":                r.EnrollType,
			"enterprise_enrollment_date": formatDate(r.EnrollmentDate),
		})
	}
	return t
}

var engagementHeader = []string{
	"email",
	"course_key",
	"course_title",
	"course_subject",
	"enroll_type",
	"activity_date",
	"learning_time_hours",
}

// FromEngagements renders engagement detail rows.
func FromEngagements(rows []analytics.Engagement) Table {
	t := Table{Header: engagementHeader, Records: make([]Record, 0, len(rows))}
	for _, r := range rows {
		t.Records = append(t.Records, Record{
			"email":               deref(r.Email),
			"course_key":          r.CourseKey,
			"course_title":        r.CourseTitle,
			"course_subject":      r.CourseSubject,
			"enroll_type":         r.EnrollType,
			"activity_date":       formatDate(r.ActivityDate),
			"learning_time_hours": formatFloat(r.LearningTimeHours),
		})
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
