package analytics_test

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/ignite/learner-analytics/internal/analytics"
	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/facts"
	"github.com/ignite/learner-analytics/internal/identity"
	"github.com/ignite/learner-analytics/internal/query"
)

var (
	enterprise = uuid.MustParse("33ce6562-95e0-4ecf-a2a7-7d407eb96f69")
	other      = uuid.MustParse("0b4f1bd4-5a55-4b5b-9a9b-6d4f10a1c1d2")
	group      = uuid.MustParse("9c1f6d2e-8a3b-4c5d-9e7f-1a2b3c4d5e6f")
)

const schema = `
CREATE TABLE fact_enrollment_admin_dash (
	enterprise_customer_uuid TEXT, enterprise_user_id INTEGER, email TEXT,
	course_key TEXT, course_title TEXT, course_subject TEXT, enroll_type TEXT,
	enterprise_enrollment_date TEXT, has_passed INTEGER, passed_date TEXT);
CREATE TABLE fact_enrollment_engagement_day_admin_dash (
	enterprise_customer_uuid TEXT, enterprise_user_id INTEGER, email TEXT,
	course_key TEXT, course_title TEXT, course_subject TEXT, enroll_type TEXT,
	activity_date TEXT, learning_time_seconds INTEGER, is_engaged INTEGER);
CREATE TABLE skills_taxonomy_admin_dash (
	enterprise_customer_uuid TEXT, date TEXT, skill_name TEXT, skill_type TEXT,
	course_subject TEXT, enrolls INTEGER, completions INTEGER);
`

// Learner 3 has not shared an email. The other enterprise and the February
// rows fall outside the standard filters.
const seed = `
INSERT INTO fact_enrollment_admin_dash VALUES
	('E', 1, 'a@example.com', 'C1', 'Course One', 'Data', 'verified', '2024-01-02', 1, '2024-01-10'),
	('E', 2, 'b@example.com', 'C1', 'Course One', 'Data', 'audit', '2024-01-03', 0, NULL),
	('E', 2, 'b@example.com', 'C2', 'Course Two', 'Business', 'verified', '2024-01-09', 1, '2024-01-20'),
	('E', 3, NULL, 'C2', 'Course Two', 'Business', 'verified', '2024-01-15', 1, '2024-01-16'),
	('O', 9, 'z@example.com', 'C9', 'Course Nine', 'Data', 'verified', '2024-01-05', 1, '2024-01-06'),
	('E', 1, 'a@example.com', 'C3', 'Course Three', 'Data', 'verified', '2024-02-05', 0, NULL);
INSERT INTO fact_enrollment_engagement_day_admin_dash VALUES
	('E', 1, 'a@example.com', 'C1', 'Course One', 'Data', 'verified', '2024-01-02', 7200, 1),
	('E', 1, 'a@example.com', 'C1', 'Course One', 'Data', 'verified', '2024-01-03', 3600, 1),
	('E', 2, 'b@example.com', 'C2', 'Course Two', 'Business', 'verified', '2024-01-09', 5400, 1),
	('E', 2, 'b@example.com', 'C1', 'Course One', 'Data', 'audit', '2024-01-10', 0, 0),
	('E', 3, NULL, 'C2', 'Course Two', 'Business', 'verified', '2024-01-15', 1800, 1),
	('O', 9, 'z@example.com', 'C9', 'Course Nine', 'Data', 'verified', '2024-01-05', 99999, 1);
INSERT INTO skills_taxonomy_admin_dash VALUES
	('E', '2024-01-05', 'Python', 'tech', 'Data', 5, 2),
	('E', '2024-01-06', 'Python', 'tech', 'Computer Science', 3, 1),
	('E', '2024-01-07', 'SQL', 'tech', 'Data', 4, 4),
	('E', '2024-01-08', 'Excel', 'tech', 'Business', 1, 0),
	('O', '2024-01-05', 'Rust', 'tech', 'Data', 50, 50);
`

// countingReader records how many queries reach the warehouse.
type countingReader struct {
	facts.Reader
	mu    sync.Mutex
	calls int
}

func (r *countingReader) Execute(ctx context.Context, text string, params query.Params) ([]facts.Row, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.Reader.Execute(ctx, text, params)
}

func (r *countingReader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeGroups struct {
	members map[uuid.UUID][]int64
}

func (f fakeGroups) GroupLearners(_ context.Context, enterpriseID, groupID uuid.UUID) ([]int64, error) {
	ids, ok := f.members[groupID]
	if !ok || enterpriseID != enterprise {
		return nil, identity.ErrGroupNotFound
	}
	return ids, nil
}

type fixture struct {
	svc    *analytics.Service
	reader *countingReader
}

func newFixture(t *testing.T, c cache.Cache, mutate ...func(*analytics.Options)) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	_, err = db.Exec(replaceIDs(seed))
	require.NoError(t, err)

	reader := &countingReader{Reader: facts.NewSQLReader(db, query.SQLite, time.Second)}
	groups := fakeGroups{members: map[uuid.UUID][]int64{group: {1}}}
	opts := analytics.Options{
		TopN:            10,
		DefaultPageSize: 50,
		MaxPageSize:     100,
	}
	for _, m := range mutate {
		m(&opts)
	}
	svc := analytics.NewService(reader, c, catalog.Catalog{}, groups, opts)
	return &fixture{svc: svc, reader: reader}
}

func replaceIDs(s string) string {
	return strings.NewReplacer("'E'", "'"+enterprise.String()+"'", "'O'", "'"+other.String()+"'").Replace(s)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func january() analytics.Filters {
	return analytics.Filters{
		EnterpriseID: enterprise,
		StartDate:    day("2024-01-01"),
		EndDate:      day("2024-01-31"),
	}
}
