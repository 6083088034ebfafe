package catalog

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/learner-analytics/internal/query"
)

var testEnterprise = uuid.MustParse("33ce6562-95e0-4ecf-a2a7-7d407eb96f69")

func filterSet(t *testing.T, dateColumn string) *query.Set {
	t.Helper()
	set, err := query.NewBuilder().
		Equal(ColEnterprise, query.Lit(testEnterprise)).
		Between(dateColumn, query.Named("start_date"), query.Named("end_date")).
		Build()
	require.NoError(t, err)
	return set
}

// normalize collapses whitespace so golden files hold one line per query.
func normalize(sql string) []byte {
	return []byte(strings.Join(strings.Fields(sql), " "))
}

func TestTemplatesGolden(t *testing.T) {
	enrollments := filterSet(t, ColEnrollmentDate)
	engagements := filterSet(t, ColActivityDate)
	c := Catalog{}

	tests := []struct {
		name   string
		render func() (string, error)
	}{
		{"enrollments_count", func() (string, error) { return c.Enrollments.Count(enrollments) }},
		{"enrollments_list", func() (string, error) { return c.Enrollments.List(enrollments) }},
		{"enrollments_top_courses", func() (string, error) { return c.Enrollments.TopCourses(enrollments) }},
		{"enrollments_completions_by_email", func() (string, error) { return c.Enrollments.CompletionsByEmail(enrollments) }},
		{"engagements_top_courses", func() (string, error) {
			return New("analytics").Engagements.TopCourses(engagements)
		}},
		{"engagements_leaderboard_page", func() (string, error) { return c.Engagements.LeaderboardPage(engagements) }},
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := tt.render()
			require.NoError(t, err)
			g.Assert(t, tt.name, normalize(sql))
		})
	}
}

func TestTemplatesRejectEmptyFilter(t *testing.T) {
	c := Catalog{}
	renders := map[string]func(*query.Set) (string, error){
		"enrollments.Count":            c.Enrollments.Count,
		"enrollments.TimeSeries":       c.Enrollments.TimeSeries,
		"engagements.Summary":          c.Engagements.Summary,
		"engagements.LeaderboardCount": c.Engagements.LeaderboardCount,
		"skills.Rows":                  c.Skills.Rows,
		"enrollments.DateRange":        c.Enrollments.DateRange,
	}
	for name, render := range renders {
		t.Run(name, func(t *testing.T) {
			_, err := render(query.NewSet())
			assert.ErrorIs(t, err, query.ErrEmptySet)

			_, err = render(nil)
			assert.ErrorIs(t, err, query.ErrEmptySet)
		})
	}
}

func TestTemplatesAreDeterministic(t *testing.T) {
	set := filterSet(t, ColActivityDate)
	c := New("")

	first, err := c.Engagements.TopCourses(set)
	require.NoError(t, err)
	second, err := c.Engagements.TopCourses(set)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTemplatesDoNotMutateFilter(t *testing.T) {
	set := filterSet(t, ColPassedDate)
	c := Catalog{}

	_, err := c.Enrollments.NullEmailCompletions(set)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	sql, err := c.Enrollments.CompletionTimeSeries(set)
	require.NoError(t, err)
	assert.Contains(t, sql, "has_passed = 1")
	assert.NotContains(t, sql, "email IS NULL")
}

func TestNullEmailTemplates(t *testing.T) {
	set := filterSet(t, ColActivityDate)
	c := Catalog{}

	page, err := c.Engagements.LeaderboardPage(set)
	require.NoError(t, err)
	assert.Contains(t, page, "email IS NOT NULL")
	assert.Contains(t, page, "LIMIT @limit OFFSET @offset")

	null, err := c.Engagements.NullEmailLeaderboard(set)
	require.NoError(t, err)
	assert.Contains(t, null, "email IS NULL")
	assert.NotContains(t, null, "LIMIT")
	assert.NotContains(t, null, "GROUP BY")
}

func TestNewQualifiesTables(t *testing.T) {
	c := New("analytics")
	assert.Equal(t, "analytics.fact_enrollment_admin_dash", c.Enrollments.Table)
	assert.Equal(t, "analytics.skills_taxonomy_admin_dash", c.Skills.Table)

	sql, err := c.Skills.Rows(filterSet(t, ColSkillDate))
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM analytics.skills_taxonomy_admin_dash")
}
