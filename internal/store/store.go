package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed schema.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Schema version tracking:
// 0 - initial schema
// 1 - index on invocations(action, seq) for trace filtering
const currentSchemaVersion = 1

// sqlOpen is swapped in tests.
var sqlOpen = sql.Open

// Store is the durable transition log.
type Store struct {
	db     *sql.DB
	driver string
}

// Open creates or opens a SQLite database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
//
// Open is idempotent.
func Open(path string) (*Store, error) {
	return OpenDriver(DriverSQLite, path)
}

// OpenDriver opens the log on the named driver. dsn is a file path for
// sqlite3 and a connection URL for pgx.
func OpenDriver(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if driver == DriverSQLite {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string { return s.driver }

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
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

func (s *Store) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) applySchema() error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	for _, stmt := range splitStatements(schema) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}
	return s.runMigrations()
}

// splitStatements splits a DDL script on semicolons, dropping comments and
// blank statements. The schema files contain no string literals.
func splitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}
	var out []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	if s.driver == DriverSQLite {
		err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
		return version, err
	}
	err := s.db.QueryRow("SELECT version FROM schema_meta").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

func (s *Store) setSchemaVersion(version int) error {
	if s.driver == DriverSQLite {
		_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO schema_meta (singleton, version) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET version = EXCLUDED.version
	`, version)
	return err
}

// runMigrations applies incremental migrations based on the recorded version.
func (s *Store) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	if version < 1 {
		if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_invocations_action ON invocations(action, seq)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if err := s.setSchemaVersion(currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// verifyPragma checks a SQLite pragma value. Used in tests.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
