package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/learner-analytics/internal/analytics"
)

func TestFromAggregates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FromAggregates(analytics.Aggregates{
		EnrollmentCount:   4,
		CompletionCount:   3,
		EngagementCount:   5,
		LearningTimeHours: 5.25,
		SessionCount:      4,
	})))
	assert.Equal(t, "enrolls,completions,engagements,hours,sessions\n4,3,5,5.25,4\n", buf.String())
}

func TestFromDetailRowsBlankWithheldEmail(t *testing.T) {
	email := "a@example.com"
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FromEnrollments([]analytics.Enrollment{
		{Email: &email, CourseKey: "C1", CourseTitle: "Course, One", CourseSubject: "Data", EnrollType: "verified", EnrollmentDate: &date},
		{CourseKey: "C2", CourseTitle: "Course Two", CourseSubject: "Business", EnrollType: "audit"},
	})))
	assert.Equal(t,
		"email,course_key,course_title,course_subject,enroll_type,enterprise_enrollment_date\n"+
			"a@example.com,C1,\"Course, One\",Data,verified,2024-01-15\n"+
			",C2,Course Two,Business,audit,\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, FromEngagements([]analytics.Engagement{
		{CourseKey: "C2", CourseTitle: "Course Two", CourseSubject: "Business", EnrollType: "verified", ActivityDate: &date, LearningTimeHours: 0.5},
	})))
	assert.Equal(t,
		"email,course_key,course_title,course_subject,enroll_type,activity_date,learning_time_hours\n"+
			",C2,Course Two,Business,verified,2024-01-15,0.5\n",
		buf.String())
}
