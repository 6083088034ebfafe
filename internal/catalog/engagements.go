package catalog

import (
	"fmt"

	"github.com/ignite/learner-analytics/internal/query"
)

// Engagements builds queries against the daily engagement fact table, one
// row per learner, course and activity day.
type Engagements struct {
	Table string
}

func (e Engagements) table() string { return tableOr(e.Table, EngagementTable) }

// Summary totals engagement rows, learning seconds and sessions.
func (e Engagements) Summary(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT COUNT(*) AS engagement_count,
	COALESCE(SUM(learning_time_seconds), 0) AS learning_time_seconds,
	COALESCE(SUM(is_engaged), 0) AS session_count
FROM %s
WHERE %s`, e.table(), w), nil
}

// Count returns the number of engagement rows matching set.
func (e Engagements) Count(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT COUNT(*) AS engagement_count
FROM %s
WHERE %s`, e.table(), w), nil
}

// List returns one page of engagement detail rows in a total order.
func (e Engagements) List(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT email, course_key, course_title, course_subject, enroll_type, activity_date, learning_time_seconds
FROM %s
WHERE %s
ORDER BY activity_date DESC, email ASC, course_key ASC
LIMIT @limit OFFSET @offset`, e.table(), w), nil
}

// TopCourses returns the learning seconds of the top @record_count courses,
// broken down by enroll_type.
func (e Engagements) TopCourses(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return topN{
		table:     e.table(),
		rank:      "course_key",
		label:     "course_title",
		breakdown: ColEnrollType,
		value:     "learning_time_seconds",
		alias:     "learning_time_seconds",
	}.render(w), nil
}

// TimeSeries projects activity date, type and learning seconds of every
// matching engagement row.
func (e Engagements) TimeSeries(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT activity_date, enroll_type, learning_time_seconds
FROM %s
WHERE %s
ORDER BY activity_date ASC, enroll_type ASC`, e.table(), w), nil
}

// LeaderboardPage aggregates engagement per known email and returns one
// page ordered by rounded learning hours, then email.
func (e Engagements) LeaderboardPage(set *query.Set) (string, error) {
	w, err := where(set, emailKnown)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT email,
	SUM(learning_time_seconds) AS learning_time_seconds,
	SUM(is_engaged) AS session_count
FROM %s
WHERE %s
GROUP BY email
ORDER BY ROUND(SUM(learning_time_seconds) / 3600.0, 1) DESC, email ASC
LIMIT @limit OFFSET @offset`, e.table(), w), nil
}

// NullEmailLeaderboard aggregates all engagement whose email is withheld
// into a single row. record_count is zero when there is no such activity.
func (e Engagements) NullEmailLeaderboard(set *query.Set) (string, error) {
	w, err := where(set, emailNull)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT COUNT(*) AS record_count,
	COALESCE(SUM(learning_time_seconds), 0) AS learning_time_seconds,
	COALESCE(SUM(is_engaged), 0) AS session_count
FROM %s
WHERE %s`, e.table(), w), nil
}

// LeaderboardCount returns the number of distinct known emails and the
// number of rows without an email.
func (e Engagements) LeaderboardCount(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT COUNT(DISTINCT email) AS email_count,
	COUNT(*) - COUNT(email) AS null_email_count
FROM %s
WHERE %s`, e.table(), w), nil
}
