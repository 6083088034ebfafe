package facts

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"                  // Postgres driver
	_ "github.com/mattn/go-sqlite3"        // SQLite driver
	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/learner-analytics/internal/config"
	"github.com/ignite/learner-analytics/internal/query"
)

// Open connects to the warehouse named by cfg.Driver.
func Open(cfg config.WarehouseConfig) (*SQLReader, error) {
	dialect, err := query.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if dialect == query.Snowflake {
		dsn = snowflakeDSN(cfg)
	}

	db, err := sql.Open(dialect.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	return NewSQLReader(db, dialect, cfg.QueryTimeout()), nil
}

// snowflakeDSN formats user:password@account/database/schema?warehouse=xxx
func snowflakeDSN(cfg config.WarehouseConfig) string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}
	return dsn
}
