package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadMunicipalities reads the canonical municipality names from a
// "code;name" table. The header row is skipped.
func LoadMunicipalities(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open municipality list: %w", err)
	}
	defer f.Close()
	return ReadMunicipalities(f)
}

// ReadMunicipalities parses a municipality table from r. Every data row must
// have exactly two fields.
func ReadMunicipalities(r io.Reader) ([]string, error) {
	cr := newReader(r)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("municipality list is empty")
		}
		return nil, fmt.Errorf("read municipality header: %w", err)
	}

	var names []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read municipality row: %w", err)
		}
		if len(rec) != 2 {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("municipality list line %d: expected 2 fields, got %d", line, len(rec))
		}
		names = append(names, strings.TrimSpace(rec[1]))
	}
	return names, nil
}
