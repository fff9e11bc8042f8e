package smhi

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/metobs-sync/internal/domain"
)

// PreambleLines is the number of metadata lines the API emits before the data rows.
const PreambleLines = 11

// Columns of a data row: date, time (UTC), value, quality, unused, resolution.
const (
	colDate = iota
	colTime
	colValue
	colQuality
	colUnused
	colResolution
	numColumns
)

// ErrNoRows is returned when a body holds a preamble but no data rows.
var ErrNoRows = errors.New("no observation rows")

// ParseObservations parses a data.csv body into observations. Station fields
// are left empty for the caller to tag. Any malformed row fails the whole body.
func ParseObservations(body []byte) ([]domain.Observation, error) {
	br := bufio.NewReader(bytes.NewReader(body))
	for i := 0; i < PreambleLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("read preamble line %d: %w", i+1, err)
		}
	}

	r := csv.NewReader(br)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []domain.Observation
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		o, err := parseRow(rec)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("row at line %d: %w", line+PreambleLines, err)
		}
		out = append(out, o)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

func parseRow(rec []string) (domain.Observation, error) {
	if len(rec) <= colQuality {
		return domain.Observation{}, fmt.Errorf("expected at least %d fields, got %d", colQuality+1, len(rec))
	}
	fields := make([]string, numColumns)
	copy(fields, rec)

	value, err := strconv.ParseFloat(strings.TrimSpace(fields[colValue]), 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse value %q: %w", fields[colValue], err)
	}
	return domain.Observation{
		Date:       strings.TrimSpace(fields[colDate]),
		TimeUTC:    strings.TrimSpace(fields[colTime]),
		Value:      value,
		Quality:    strings.TrimSpace(fields[colQuality]),
		Resolution: strings.TrimSpace(fields[colResolution]),
	}, nil
}
