// Package store is the single source of truth for roles, courses, and
// enrollments. It runs over PostgreSQL in production (pgx stdlib driver)
// and in-memory SQLite in tests; queries use ? bindvars and are rebound
// per driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write hits a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// Store wraps the relational database. No role or enrollment state is ever
// cached across requests; every check reads through to the database.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database. Driver is either "pgx" or "sqlite"; for
// sqlite an empty DSN means in-memory. Callers own schema setup and run
// Migrate before first use.
func Open(driver, dsn string) (*Store, error) {
	if driver == "sqlite" && dsn == "" {
		dsn = ":memory:"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	return &Store{db: db, driver: driver}, nil
}

// DB exposes the underlying handle for the gateway's parameterized
// execution path.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind converts ? bindvars to the driver's placeholder style.
func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}

// isUniqueViolation detects uniqueness-constraint errors across drivers.
// The enrollments (student_id, course_id) unique index is the canonical
// duplicate signal; the pre-insert check is only a fast path.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
