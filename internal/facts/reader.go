// Package facts executes rendered query templates against the fact
// warehouse and returns generic rows.
package facts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/learner-analytics/internal/pkg/logger"
	"github.com/ignite/learner-analytics/internal/query"
)

// Reader runs a query template with named parameters.
type Reader interface {
	Execute(ctx context.Context, text string, params query.Params) ([]Row, error)
}

// SQLReader is a Reader over a database/sql pool.
type SQLReader struct {
	db      *sql.DB
	dialect query.Dialect
	timeout time.Duration
}

// NewSQLReader wraps db. A positive timeout bounds every Execute call.
func NewSQLReader(db *sql.DB, dialect query.Dialect, timeout time.Duration) *SQLReader {
	return &SQLReader{db: db, dialect: dialect, timeout: timeout}
}

// Dialect reports the placeholder dialect queries are bound for.
func (r *SQLReader) Dialect() query.Dialect { return r.dialect }

// Close closes the underlying pool.
func (r *SQLReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping tests the warehouse connection.
func (r *SQLReader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Execute binds params into text, runs it and scans every row. Warehouse
// failures are logged and returned as *StorageError; nothing is retried.
func (r *SQLReader) Execute(ctx context.Context, text string, params query.Params) ([]Row, error) {
	bound, args, err := query.Bind(text, params, r.dialect)
	if err != nil {
		return nil, fmt.Errorf("bind query: %w", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		queryDuration.WithLabelValues(r.dialect.String()).Observe(time.Since(start).Seconds())
	}()

	rows, err := r.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, r.fail(text, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, r.fail(text, err)
	}
	logger.Debug("fact query", "dialect", r.dialect.String(), "rows", len(out), "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (r *SQLReader) fail(text string, err error) error {
	queryErrors.WithLabelValues(r.dialect.String()).Inc()
	logger.Error("fact query failed", "dialect", r.dialect.String(), "query", text, "error", err)
	return &StorageError{Query: text, Err: err}
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	for i, c := range cols {
		cols[i] = strings.ToLower(c)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
