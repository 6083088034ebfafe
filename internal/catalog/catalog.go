// Package catalog holds the SQL skeletons for each analytics fact table.
//
// Templates are pure text builders: they take a query.Set for the WHERE
// clause and return query text containing @name placeholders. The caller
// binds the Set's parameters together with the template's own (limit,
// offset, record_count, emails). Nothing in this package touches a database.
package catalog

import (
	"fmt"
	"strings"

	"github.com/ignite/learner-analytics/internal/query"
)

// Default fact table names.
const (
	EnrollmentTable = "fact_enrollment_admin_dash"
	EngagementTable = "fact_enrollment_engagement_day_admin_dash"
	SkillsTable     = "skills_taxonomy_admin_dash"
)

// Columns that callers filter on.
const (
	ColEnterprise     = "enterprise_customer_uuid"
	ColEnrollmentDate = "enterprise_enrollment_date"
	ColPassedDate     = "passed_date"
	ColActivityDate   = "activity_date"
	ColSkillDate      = "date"
	ColEnrollType     = "enroll_type"
	ColEnterpriseUser = "enterprise_user_id"
	ColEmail          = "email"
)

// Placeholders owned by the templates rather than by filters.
const (
	ParamLimit       = "limit"
	ParamOffset      = "offset"
	ParamRecordCount = "record_count"
	ParamEmails      = "emails"
)

// Catalog groups the per-table templates. The zero value uses the default
// table names.
type Catalog struct {
	Enrollments Enrollments
	Engagements Engagements
	Skills      Skills
}

// New returns a Catalog whose tables are qualified with schema. An empty
// schema leaves the names unqualified.
func New(schema string) Catalog {
	return Catalog{
		Enrollments: Enrollments{Table: qualify(schema, EnrollmentTable)},
		Engagements: Engagements{Table: qualify(schema, EngagementTable)},
		Skills:      Skills{Table: qualify(schema, SkillsTable)},
	}
}

func qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

func tableOr(table, fallback string) string {
	if table == "" {
		return fallback
	}
	return table
}

func where(set *query.Set, extra ...query.Predicate) (string, error) {
	if set == nil {
		return "", fmt.Errorf("catalog: %w", query.ErrEmptySet)
	}
	sql, err := set.With(extra...).SQL()
	if err != nil {
		return "", fmt.Errorf("catalog: %w", err)
	}
	return sql, nil
}

// Fixed predicates the templates add on top of caller filters. The
// constructors cannot fail for these arguments.
var (
	passedOnly, _  = query.Equal("has_passed", query.Lit(1))
	emailKnown, _  = query.IsNotNull(ColEmail)
	emailNull, _   = query.IsNull(ColEmail)
	emailInPage, _ = query.In(ColEmail, query.Named(ParamEmails))
)

const topNTemplate = `
WITH filtered AS (
	SELECT %[1]s
	FROM %[2]s
	WHERE %[3]s
), ranked AS (
	SELECT %[4]s, %[5]s AS rank_measure
	FROM filtered
	GROUP BY %[4]s
	ORDER BY rank_measure DESC, %[4]s ASC
	LIMIT @record_count
)
SELECT %[6]s
FROM filtered f
JOIN ranked r ON r.%[4]s = f.%[4]s
GROUP BY %[7]s, r.rank_measure
ORDER BY r.rank_measure DESC, %[7]s`

// topN ranks the values of one dimension by a measure across the whole
// filtered set, keeps the top @record_count, then re-expands those values by
// a breakdown dimension. Ranking on the coarse dimension first means the
// result holds the top courses, not the top (course, breakdown) pairs.
type topN struct {
	table     string
	rank      string
	label     string
	breakdown string
	value     string
	alias     string
}

func (t topN) render(where string) string {
	cols := []string{t.rank}
	outer := []string{"f." + t.rank}
	if t.label != "" {
		cols = append(cols, t.label)
		outer = append(outer, fmt.Sprintf("MAX(f.%s) AS %s", t.label, t.label))
	}
	cols = append(cols, t.breakdown)
	outer = append(outer, "f."+t.breakdown)

	measure := "COUNT(*)"
	if t.value != "" {
		cols = append(cols, t.value)
		measure = "SUM(" + t.value + ")"
	}
	outer = append(outer, measure+" AS "+t.alias)

	return fmt.Sprintf(topNTemplate,
		strings.Join(cols, ", "),
		t.table,
		where,
		t.rank,
		measure,
		strings.Join(outer, ", "),
		"f."+t.rank+", f."+t.breakdown,
	)
}
