// Command validate checks the configured parameter, the station registry and
// the observation store: registry rows are well formed, every stored station is
// known, no (station, date, time) key is stored twice and no stored date lies
// in the future.
//
// Usage:
//
//	go run ./cmd/validate -config .env
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/metobs-sync/internal/adapter/csvstore"
	"github.com/couchcryptid/metobs-sync/internal/adapter/registry"
	"github.com/couchcryptid/metobs-sync/internal/adapter/sqlstore"
	"github.com/couchcryptid/metobs-sync/internal/config"
	"github.com/couchcryptid/metobs-sync/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// storeReport is what the store phases need, independent of the backend.
type storeReport struct {
	rows          int64
	duplicateKeys int64
	nullValues    int64
	maxDates      map[string]string
}

func main() {
	configPath := flag.String("config", os.Getenv("METOBS_CONFIG"), "optional .env or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	if code := run(context.Background(), cfg, clockwork.NewRealClock(), os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, clk clockwork.Clock, out io.Writer) int {
	fmt.Fprintln(out, "=== Observation Store Validation ===")
	fmt.Fprintln(out)

	stations, err := registry.LoadStations(cfg.StationsFile)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load station registry: %v\n", err)
		return 1
	}

	var municipalities []string
	if _, err := os.Stat(cfg.MunicipalitiesFile); err == nil {
		municipalities, err = registry.LoadMunicipalities(cfg.MunicipalitiesFile)
		if err != nil {
			fmt.Fprintf(out, "FATAL: load municipalities: %v\n", err)
			return 1
		}
	}

	report, err := loadStoreReport(ctx, cfg)
	if err != nil {
		fmt.Fprintf(out, "FATAL: read store: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateParameter(cfg.ParameterID),
		validateRegistry(stations, municipalities),
		validateStoreKeys(report),
		validateCoverage(stations, report),
		validateDates(report, clk.Now().UTC()),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Registry: %d stations. Store (%s): %d rows across %d stations, %d null values\n",
		len(stations), cfg.StoreDriver, report.rows, len(report.maxDates), report.nullValues)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadStoreReport(ctx context.Context, cfg *config.Config) (storeReport, error) {
	if cfg.StoreDriver == "csv" {
		return csvReport(ctx, csvstore.New(cfg.StoreDSN, cfg.ValueColumn))
	}

	db, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, slog.New(slog.DiscardHandler))
	if err != nil {
		return storeReport{}, err
	}
	s := sqlstore.New(db, cfg.StoreDriver, cfg.StoreTable, cfg.ValueColumn)
	defer s.Close()

	st, err := s.Stats(ctx)
	if err != nil {
		return storeReport{}, err
	}
	maxDates, err := s.MaxDates(ctx)
	if err != nil {
		return storeReport{}, err
	}
	return storeReport{
		rows:          st.Rows,
		duplicateKeys: st.DuplicateKeys,
		nullValues:    st.NullValues,
		maxDates:      maxDates,
	}, nil
}

// csvReport derives the report from a CSV store. Duplicate and null counts
// are not tracked for CSV and stay zero.
func csvReport(ctx context.Context, s *csvstore.Store) (storeReport, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return storeReport{}, err
	}
	maxDates, err := s.MaxDates(ctx)
	if err != nil {
		return storeReport{}, err
	}
	return storeReport{rows: int64(n), maxDates: maxDates}, nil
}

// ── Phase 1: Parameter ──

func validateParameter(id string) *phase {
	p := &phase{name: "Phase 1: Parameter"}
	if _, err := domain.LookupParameter(id); err != nil {
		known := make([]string, 0, len(domain.Parameters()))
		for _, param := range domain.Parameters() {
			known = append(known, param.ID)
		}
		p.errorf("PARAMETER_ID %q is not in the catalog (known: %s)", id, strings.Join(known, ", "))
	}
	return p
}

// ── Phase 2: Registry ──

func validateRegistry(stations []domain.Station, municipalities []string) *phase {
	p := &phase{name: "Phase 2: Station Registry"}
	if len(stations) == 0 {
		p.errorf("registry is empty")
		return p
	}

	known := make(map[string]bool, len(municipalities))
	for _, m := range municipalities {
		known[m] = true
	}

	unmatched := 0
	for _, st := range stations {
		if !st.From.IsZero() && !st.To.IsZero() && st.To.Before(st.From) {
			p.errorf("station %s: to (%s) is before from (%s)", st.ID, st.To.Format(time.DateOnly), st.From.Format(time.DateOnly))
		}
		if st.Municipality == "" {
			unmatched++
			continue
		}
		if len(known) > 0 && !known[st.Municipality] {
			p.errorf("station %s: municipality %q is not in the municipality list", st.ID, st.Municipality)
		}
	}
	if unmatched > 0 {
		fmt.Printf("  Note: %d station(s) without a municipality\n", unmatched)
	}
	return p
}

// ── Phase 3: Store keys ──

func validateStoreKeys(r storeReport) *phase {
	p := &phase{name: "Phase 3: Store Keys (no duplicates)"}
	if r.duplicateKeys > 0 {
		p.errorf("%d (station, date, time) key(s) stored more than once", r.duplicateKeys)
	}
	return p
}

// ── Phase 4: Coverage ──

func validateCoverage(stations []domain.Station, r storeReport) *phase {
	p := &phase{name: "Phase 4: Coverage (store vs registry)"}

	inRegistry := make(map[string]bool, len(stations))
	for _, st := range stations {
		inRegistry[st.ID] = true
	}

	ids := make([]string, 0, len(r.maxDates))
	for id := range r.maxDates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !inRegistry[id] {
			p.errorf("station %s has stored rows but is not in the registry", id)
		}
	}
	return p
}

// ── Phase 5: Dates ──

func validateDates(r storeReport, now time.Time) *phase {
	p := &phase{name: "Phase 5: Dates (none in the future)"}
	today := now.Format(time.DateOnly)

	ids := make([]string, 0, len(r.maxDates))
	for id := range r.maxDates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := r.maxDates[id]
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			p.errorf("station %s: latest date %q is not YYYY-MM-DD", id, d)
			continue
		}
		if d > today {
			p.errorf("station %s: latest date %s is after today (%s)", id, d, today)
		}
	}
	return p
}
