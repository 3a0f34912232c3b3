// Package store persists battlelog records in SQLite.
//
// Two drivers are supported: the pure-Go modernc.org/sqlite ("sqlite", the
// default) and the cgo github.com/mattn/go-sqlite3 ("sqlite3"). Both are
// opened with foreign keys enforced so that trainers require an existing
// class, locations an existing region, and battles every record they name.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"battlelog/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
)

var (
	// ErrNotFound is returned when a delete or lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert violates a uniqueness constraint.
	ErrAlreadyExists = errors.New("already exists")
	// ErrMissingReference is returned when an insert names a record that does not exist.
	ErrMissingReference = errors.New("missing referenced record")
)

// Store is a SQLite-backed record store.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	driver string
}

// Open opens (creating if needed) the database at path and brings its schema
// up to date.
func Open(driver, path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if driver == "" {
		driver = DriverSQLite
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn, err := buildDSN(driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// DSN pragmas apply per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, dbPath: path, driver: driver}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Opened %s database at %s", driver, path)
	return s, nil
}

func buildDSN(driver, path string) (string, error) {
	switch driver {
	case DriverSQLite:
		return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	case DriverSQLite3:
		return path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", driver)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// GetStats returns the row count of every record table.
func (s *Store) GetStats(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64, len(recordTables))
	for _, table := range recordTables {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

// classify maps driver constraint errors onto the package sentinels.
// Both drivers surface SQLite's message text verbatim.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrMissingReference, err)
	}
	return err
}

// filter accumulates exact-match conditions for nil-able parameters.
// A nil value matches anything; a set value must match exactly.
type filter struct {
	conds []string
	args  []interface{}
}

func (f *filter) eq(column string, value *string) {
	if value == nil {
		return
	}
	f.conds = append(f.conds, column+" = ?")
	f.args = append(f.args, *value)
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}
