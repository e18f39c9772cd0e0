// Package state persists user graphs in SQLite or PostgreSQL.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver (pure Go)
)

// Driver names a supported database.
type Driver string

// Supported drivers.
const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ErrNotFound is returned when a user has no stored graph.
var ErrNotFound = errors.New("graph not found")

// Config selects and locates the database.
type Config struct {
	Driver Driver
	// Path is the SQLite file, ":memory:" for an in-memory database.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
}

// Store reads and writes user graphs.
type Store struct {
	db     *sql.DB
	driver Driver
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to the configured database.
// If logger is nil, a discard logger is used.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		db, err = sql.Open("sqlite", sqliteDSN(cfg.Path))
		if err == nil {
			// One connection: in-memory databases live per connection and writes serialize anyway.
			db.SetMaxOpenConns(1)
		}
		cfg.Driver = DriverSQLite
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
		db, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	s := New(db, cfg.Driver, logger)
	s.logger.Debug("store opened", "driver", string(cfg.Driver), "path", cfg.Path)
	return s, nil
}

// New wraps an open database handle.
func New(db *sql.DB, driver Driver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, driver: driver, logger: logger, now: time.Now}
}

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Driver returns the database the store talks to.
func (s *Store) Driver() Driver {
	return s.driver
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
