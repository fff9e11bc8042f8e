// Package registry reads and writes the semicolon separated reference tables:
// the station registry and the canonical municipality list.
package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/metobs-sync/internal/domain"
)

const separator = ';'

// Station table columns. Any other column in the file is ignored.
const (
	colKey          = "key"
	colName         = "name"
	colActive       = "active"
	colFrom         = "from"
	colTo           = "to"
	colLatitude     = "latitude"
	colLongitude    = "longitude"
	colMunicipality = "municipality"
)

var requiredStationColumns = []string{colKey, colName, colActive, colFrom, colTo, colMunicipality}

var stationHeader = []string{colKey, colName, colActive, colFrom, colTo, colLatitude, colLongitude, colMunicipality}

// LoadStations reads the station registry. Rows repeating an earlier key are
// dropped; the first occurrence wins.
func LoadStations(path string) ([]domain.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station registry: %w", err)
	}
	defer f.Close()
	return ReadStations(f)
}

// ReadStations parses a station table from r.
func ReadStations(r io.Reader) ([]domain.Station, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("station registry is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read station header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredStationColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("station registry: missing column %q", c)
		}
	}

	seen := make(map[string]struct{})
	var out []domain.Station
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read station row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		s, err := parseStation(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("station registry line %d: %w", line, err)
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

func parseStation(rec []string, idx map[string]int) (domain.Station, error) {
	field := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	s := domain.Station{
		ID:           field(colKey),
		Name:         field(colName),
		Municipality: field(colMunicipality),
	}
	if s.ID == "" {
		return s, errors.New("empty station key")
	}

	var err error
	if s.Active, err = strconv.ParseBool(field(colActive)); err != nil {
		return s, fmt.Errorf("parse active %q: %w", field(colActive), err)
	}
	if s.From, err = parseTime(field(colFrom)); err != nil {
		return s, fmt.Errorf("parse from: %w", err)
	}
	if s.To, err = parseTime(field(colTo)); err != nil {
		return s, fmt.Errorf("parse to: %w", err)
	}
	if s.Lat, err = parseCoord(field(colLatitude)); err != nil {
		return s, fmt.Errorf("parse latitude: %w", err)
	}
	if s.Lon, err = parseCoord(field(colLongitude)); err != nil {
		return s, fmt.Errorf("parse longitude: %w", err)
	}
	return s, nil
}

// parseTime accepts the epoch milliseconds the metobs API publishes, or an
// RFC 3339 / date-only value for hand-edited registries.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised time %q", v)
	}
	return t, nil
}

func parseCoord(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

// WriteStations replaces the registry at path with stations, creating the
// parent directory if needed.
func WriteStations(path string, stations []domain.Station) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create station registry: %w", err)
	}
	if err := writeStations(f, stations); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close station registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace station registry: %w", err)
	}
	return nil
}

func writeStations(w io.Writer, stations []domain.Station) error {
	cw := csv.NewWriter(w)
	cw.Comma = separator

	if err := cw.Write(stationHeader); err != nil {
		return fmt.Errorf("write station header: %w", err)
	}
	for _, s := range stations {
		rec := []string{
			s.ID,
			s.Name,
			strconv.FormatBool(s.Active),
			formatTime(s.From),
			formatTime(s.To),
			strconv.FormatFloat(s.Lat, 'f', -1, 64),
			strconv.FormatFloat(s.Lon, 'f', -1, 64),
			s.Municipality,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write station %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush station registry: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}
