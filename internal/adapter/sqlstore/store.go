// Package sqlstore persists observations in a SQL table through database/sql.
// SQLite is the default backend; PostgreSQL is supported for shared setups.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/metobs-sync/internal/domain"
)

// Defaults matching the historical table layout.
const (
	DefaultTable       = "data"
	DefaultValueColumn = "Lufttemperatur"
)

// rowsPerInsert keeps a single INSERT under both SQLite's and PostgreSQL's
// bound parameter limits.
const rowsPerInsert = 500

// Store appends observations to one table and reports the latest stored date
// per station.
type Store struct {
	db          *sql.DB
	driver      string
	table       string
	valueColumn string
}

// New wraps an open database. Empty table or valueColumn fall back to the defaults.
func New(db *sql.DB, driver, table, valueColumn string) *Store {
	if table == "" {
		table = DefaultTable
	}
	if valueColumn == "" {
		valueColumn = DefaultValueColumn
	}
	return &Store{db: db, driver: driver, table: table, valueColumn: valueColumn}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) columns() []string {
	return []string{
		"station_id",
		"station_active",
		"station_municipality",
		"Datum",
		"Tid_UTC",
		s.valueColumn,
		"Kvalitet",
		"Tidsutsnitt",
	}
}

// EnsureSchema creates the observation table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	cols := s.columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		typ := "TEXT"
		if c == s.valueColumn {
			typ = "REAL"
		}
		defs[i] = quoteIdent(c) + " " + typ
	}
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(s.table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// MaxDates returns the latest stored Datum per station. Stations with no rows
// are absent from the map.
func (s *Store) MaxDates(ctx context.Context) (map[string]string, error) {
	q := fmt.Sprintf("SELECT %s, MAX(%s) FROM %s GROUP BY %s",
		quoteIdent("station_id"), quoteIdent("Datum"), quoteIdent(s.table), quoteIdent("station_id"))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query max dates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var (
			station sql.NullString
			maxDate sql.NullString
		)
		if err := rows.Scan(&station, &maxDate); err != nil {
			return nil, fmt.Errorf("scan max date: %w", err)
		}
		if station.Valid && maxDate.Valid {
			out[station.String] = maxDate.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate max dates: %w", err)
	}
	return out, nil
}

// Append inserts rows in a single transaction. Either every row is stored or none.
func (s *Store) Append(ctx context.Context, rows []domain.Observation) (err error) {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for start := 0; start < len(rows); start += rowsPerInsert {
		end := min(start+rowsPerInsert, len(rows))
		q, args := s.insertStatement(rows[start:end])
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert observations: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *Store) insertStatement(rows []domain.Observation) (string, []any) {
	cols := s.columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdent(s.table), strings.Join(quoted, ", "))

	args := make([]any, 0, len(rows)*len(cols))
	n := 0
	for i, o := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(s.placeholder(n))
		}
		b.WriteByte(')')
		args = append(args,
			o.StationID,
			strconv.FormatBool(o.StationActive),
			o.StationMunicipality,
			o.Date,
			o.TimeUTC,
			o.Value,
			o.Quality,
			o.Resolution,
		)
	}
	return b.String(), args
}

func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Stats summarises the stored table for integrity checks.
type Stats struct {
	Rows          int64
	Stations      int64
	MinDate       string
	MaxDate       string
	DuplicateKeys int64 // (station, date, time) keys stored more than once
	NullValues    int64
}

// Stats computes row counts and duplicate keys. A missing table is an error.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	table := quoteIdent(s.table)

	q := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT %s), COALESCE(MIN(%s), ''), COALESCE(MAX(%s), ''), COUNT(*) - COUNT(%s) FROM %s",
		quoteIdent("station_id"), quoteIdent("Datum"), quoteIdent("Datum"), quoteIdent(s.valueColumn), table)
	if err := s.db.QueryRowContext(ctx, q).Scan(&st.Rows, &st.Stations, &st.MinDate, &st.MaxDate, &st.NullValues); err != nil {
		return Stats{}, fmt.Errorf("query table stats: %w", err)
	}

	q = fmt.Sprintf("SELECT COUNT(*) FROM (SELECT 1 FROM %s GROUP BY %s, %s, %s HAVING COUNT(*) > 1) dup",
		table, quoteIdent("station_id"), quoteIdent("Datum"), quoteIdent("Tid_UTC"))
	if err := s.db.QueryRowContext(ctx, q).Scan(&st.DuplicateKeys); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("query duplicate keys: %w", err)
	}
	return st, nil
}

// quoteIdent quotes an SQL identifier. Both SQLite and PostgreSQL accept
// double quotes and preserve case inside them.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
