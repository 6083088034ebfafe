package catalog

import (
	"fmt"

	"github.com/ignite/learner-analytics/internal/query"
)

// Enrollments builds queries against the enrollment fact table, one row per
// learner enrollment.
type Enrollments struct {
	Table string
}

func (e Enrollments) table() string { return tableOr(e.Table, EnrollmentTable) }

// Count returns the number of enrollments matching set.
func (e Enrollments) Count(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT COUNT(*) AS enrollment_count
FROM %s
WHERE %s`, e.table(), w), nil
}

// CompletionCount returns the number of passed enrollments matching set.
func (e Enrollments) CompletionCount(set *query.Set) (string, error) {
	w, err := where(set, passedOnly)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT COUNT(*) AS completion_count
FROM %s
WHERE %s`, e.table(), w), nil
}

// List returns one page of enrollment detail rows. The ORDER BY is a total
// order so consecutive pages neither repeat nor skip rows.
func (e Enrollments) List(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT email, course_key, course_title, course_subject, enroll_type, enterprise_enrollment_date
FROM %s
WHERE %s
ORDER BY enterprise_enrollment_date DESC, email ASC, course_key ASC
LIMIT @limit OFFSET @offset`, e.table(), w), nil
}

// TopCourses returns the enrollment counts of the top @record_count
// courses, broken down by enroll_type.
func (e Enrollments) TopCourses(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return topN{
		table:     e.table(),
		rank:      "course_key",
		label:     "course_title",
		breakdown: ColEnrollType,
		alias:     "enrollment_count",
	}.render(w), nil
}

// TopSubjects returns the enrollment counts of the top @record_count
// subjects, broken down by enroll_type.
func (e Enrollments) TopSubjects(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return topN{
		table:     e.table(),
		rank:      "course_subject",
		breakdown: ColEnrollType,
		alias:     "enrollment_count",
	}.render(w), nil
}

// TopCompletedCourses returns the completion counts of the top
// @record_count courses, broken down by enroll_type.
func (e Enrollments) TopCompletedCourses(set *query.Set) (string, error) {
	w, err := where(set, passedOnly)
	if err != nil {
		return "", err
	}
	return topN{
		table:     e.table(),
		rank:      "course_key",
		label:     "course_title",
		breakdown: ColEnrollType,
		alias:     "completion_count",
	}.render(w), nil
}

// TimeSeries projects the enrollment date and type of every matching
// enrollment for in-memory bucketing.
func (e Enrollments) TimeSeries(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT enterprise_enrollment_date, enroll_type
FROM %s
WHERE %s
ORDER BY enterprise_enrollment_date ASC, enroll_type ASC`, e.table(), w), nil
}

// CompletionTimeSeries projects the pass date and type of every matching
// completion.
func (e Enrollments) CompletionTimeSeries(set *query.Set) (string, error) {
	w, err := where(set, passedOnly)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT passed_date, enroll_type
FROM %s
WHERE %s
ORDER BY passed_date ASC, enroll_type ASC`, e.table(), w), nil
}

// CompletionsByEmail counts completions for the learners bound to @emails.
func (e Enrollments) CompletionsByEmail(set *query.Set) (string, error) {
	w, err := where(set, passedOnly, emailInPage)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT email, COUNT(course_key) AS course_completion_count
FROM %s
WHERE %s
GROUP BY email`, e.table(), w), nil
}

// NullEmailCompletions counts completions of learners whose email is
// withheld.
func (e Enrollments) NullEmailCompletions(set *query.Set) (string, error) {
	w, err := where(set, passedOnly, emailNull)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT COUNT(course_key) AS course_completion_count
FROM %s
WHERE %s`, e.table(), w), nil
}

// DateRange returns the earliest and latest enrollment dates matching set.
func (e Enrollments) DateRange(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT MIN(enterprise_enrollment_date) AS min_enrollment_date,
	MAX(enterprise_enrollment_date) AS max_enrollment_date
FROM %s
WHERE %s`, e.table(), w), nil
}
