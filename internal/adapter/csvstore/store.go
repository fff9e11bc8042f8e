// Package csvstore keeps observations in a single comma separated file, for
// setups that want a flat export instead of a database.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/couchcryptid/metobs-sync/internal/domain"
)

// DefaultValueColumn names the value column when none is configured.
const DefaultValueColumn = "Lufttemperatur"

const (
	colStationID = iota
	colActive
	colMunicipality
	colDate
	colTime
	colValue
	colQuality
	colResolution
	numColumns
)

// Store appends observations to a CSV file with a header row.
type Store struct {
	path        string
	valueColumn string
	mu          sync.Mutex
}

// New creates a store backed by path. The file is created on first append.
func New(path, valueColumn string) *Store {
	if valueColumn == "" {
		valueColumn = DefaultValueColumn
	}
	return &Store{path: path, valueColumn: valueColumn}
}

func (s *Store) header() []string {
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

// EnsureSchema creates the parent directory. The header is written with the
// first rows.
func (s *Store) EnsureSchema(_ context.Context) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	return nil
}

// MaxDates scans the file for the latest Datum per station. A missing file
// yields an empty map.
func (s *Store) MaxDates(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	err := s.scan(ctx, func(rec []string) {
		id, date := rec[colStationID], rec[colDate]
		if date > out[id] {
			out[id] = date
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	err := s.scan(ctx, func([]string) { n++ })
	return n, err
}

func (s *Store) scan(ctx context.Context, fn func(rec []string)) error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open csv store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = numColumns
	r.ReuseRecord = true
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read csv store header: %w", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv store: %w", err)
		}
		fn(rec)
	}
}

// Append writes rows to the end of the file, adding the header when the file
// is new or empty.
func (s *Store) Append(ctx context.Context, rows []domain.Observation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv store: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat csv store: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(s.header()); err != nil {
			f.Close()
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	rec := make([]string, numColumns)
	for _, o := range rows {
		rec[colStationID] = o.StationID
		rec[colActive] = strconv.FormatBool(o.StationActive)
		rec[colMunicipality] = o.StationMunicipality
		rec[colDate] = o.Date
		rec[colTime] = o.TimeUTC
		rec[colValue] = strconv.FormatFloat(o.Value, 'f', -1, 64)
		rec[colQuality] = o.Quality
		rec[colResolution] = o.Resolution
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv store: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv store: %w", err)
	}
	return nil
}
