// Package export renders report results as CSV and delivers them to S3.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ignite/learner-analytics/internal/aggregate"
	"github.com/ignite/learner-analytics/internal/leaderboard"
)

var (
	ErrEmptyHeader   = errors.New("export table has no header")
	ErrFieldMismatch = errors.New("record fields do not match header")
)

// Record maps header names to cell text.
type Record map[string]string

// Table is a CSV document: a fixed header and records keyed by it.
type Table struct {
	Header  []string
	Records []Record
}

// WriteCSV writes t to w. Every record must carry exactly the header's
// fields; the first record that does not aborts the write before any
// output.
func WriteCSV(w io.Writer, t Table) error {
	if len(t.Header) == 0 {
		return ErrEmptyHeader
	}
	for i, r := range t.Records {
		if err := checkFields(t.Header, r); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(t.Header))
	for _, r := range t.Records {
		for i, h := range t.Header {
			line[i] = r[h]
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func checkFields(header []string, r Record) error {
	if len(r) != len(header) {
		return fmt.Errorf("%w: %d fields for %d columns", ErrFieldMismatch, len(r), len(header))
	}
	for _, h := range header {
		if _, ok := r[h]; !ok {
			return fmt.Errorf("%w: missing %q", ErrFieldMismatch, h)
		}
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// Leaderboard header order.
var leaderboardHeader = []string{
	"email",
	"learning_time_hours",
	"session_count",
	"average_session_length",
	"course_completion_count",
}

// FromLeaderboard renders leaderboard rows in their given order. A missing
// completion count is an empty cell.
func FromLeaderboard(rows []leaderboard.Row) Table {
	t := Table{Header: leaderboardHeader, Records: make([]Record, 0, len(rows))}
	for _, r := range rows {
		completions := ""
		if r.CourseCompletionCount != nil {
			completions = strconv.FormatInt(*r.CourseCompletionCount, 10)
		}
		t.Records = append(t.Records, Record{
			"email":                   r.Email,
			"learning_time_hours":     formatFloat(r.LearningTimeHours),
			"session_count":           strconv.FormatInt(r.SessionCount, 10),
			"average_session_length":  formatFloat(r.AverageSessionLength),
			"course_completion_count": completions,
		})
	}
	return t
}

// FromGroups renders one record per group. keyNames label Group.Keys by
// position; bucketName, when non-empty, adds the bucket date column.
func FromGroups(groups []aggregate.Group, keyNames []string, bucketName, measureName string) Table {
	header := append([]string(nil), keyNames...)
	if bucketName != "" {
		header = append(header, bucketName)
	}
	header = append(header, measureName)

	t := Table{Header: header, Records: make([]Record, 0, len(groups))}
	for _, g := range groups {
		r := make(Record, len(header))
		for i, name := range keyNames {
			if i < len(g.Keys) {
				r[name] = g.Keys[i]
			} else {
				r[name] = ""
			}
		}
		if bucketName != "" {
			r[bucketName] = formatDate(g.Bucket)
		}
		r[measureName] = g.Measure.String()
		t.Records = append(t.Records, r)
	}
	return t
}

// FromWide renders a pivot table: key columns, the optional bucket column,
// then one column per pivot value.
func FromWide(w aggregate.Wide, keyNames []string, bucketName string) Table {
	header := append([]string(nil), keyNames...)
	if bucketName != "" {
		header = append(header, bucketName)
	}
	header = append(header, w.Columns...)

	t := Table{Header: header, Records: make([]Record, 0, len(w.Rows))}
	for _, row := range w.Rows {
		r := make(Record, len(header))
		for i, name := range keyNames {
			if i < len(row.Keys) {
				r[name] = row.Keys[i]
			} else {
				r[name] = ""
			}
		}
		if bucketName != "" {
			r[bucketName] = formatDate(row.Bucket)
		}
		for i, col := range w.Columns {
			r[col] = row.Values[i].String()
		}
		t.Records = append(t.Records, r)
	}
	return t
}
