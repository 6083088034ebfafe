package catalog

import (
	"fmt"

	"github.com/ignite/learner-analytics/internal/query"
)

// Skills builds queries against the skills taxonomy fact table, which maps
// enrollments and completions onto the skills each course teaches.
type Skills struct {
	Table string
}

func (s Skills) table() string { return tableOr(s.Table, SkillsTable) }

// Rows projects skill, subject and the enrollment and completion counts of
// every matching row for in-memory top-N ranking.
func (s Skills) Rows(set *query.Set) (string, error) {
	w, err := where(set)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT skill_name, skill_type, course_subject, enrolls, completions
FROM %s
WHERE %s
ORDER BY skill_name ASC, course_subject ASC`, s.table(), w), nil
}
