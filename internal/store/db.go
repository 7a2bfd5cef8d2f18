package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB is a connection pool that knows which SQL dialect it speaks. Queries are
// written with $N placeholders and rebound for SQLite.
type DB struct {
	*sql.DB
	dialect Dialect
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// Open connects to Postgres (postgres:// or postgresql://) or to a SQLite
// file (sqlite://path, file:..., :memory:).
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	driver, dsn, dialect := parseDatabaseURL(databaseURL)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dialect == DialectSQLite {
		// every connection to :memory: would otherwise be a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxIdleConns(10)
		db.SetMaxOpenConns(20)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, dialect: dialect}, nil
}

func parseDatabaseURL(databaseURL string) (driver, dsn string, dialect Dialect) {
	value := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(value, "sqlite://"):
		return "sqlite", strings.TrimPrefix(value, "sqlite://"), DialectSQLite
	case strings.HasPrefix(value, "file:"), value == ":memory:":
		return "sqlite", value, DialectSQLite
	default:
		return "pgx", value, DialectPostgres
	}
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind rewrites $N placeholders into the form the driver expects.
func (db *DB) Rebind(query string) string {
	if db.dialect != DialectSQLite {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?")
}
