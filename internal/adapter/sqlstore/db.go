package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq" // postgres driver
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to the database named by driver and dsn and verifies the
// connection. SQLite statements are logged at debug level through logger.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*sql.DB, error) {
	var db *sql.DB
	switch driver {
	case DriverSQLite:
		full, err := buildSQLiteDSN(dsn)
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(newLoggingConnector(full, logger))
		// One writer at a time; the sync appends in a single transaction anyway.
		db.SetMaxOpenConns(1)
	case DriverPostgres:
		var err error
		db, err = sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// buildSQLiteDSN turns a file path into a sqlite3 DSN with busy timeout and
// WAL enabled, creating the parent directory. DSNs that already carry a
// "file:" prefix or ":memory:" are passed through with the params appended.
func buildSQLiteDSN(path string) (string, error) {
	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
