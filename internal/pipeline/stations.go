package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/metobs-sync/internal/domain"
	"github.com/couchcryptid/metobs-sync/internal/observability"
)

// StationLister lists every station reporting a parameter.
type StationLister interface {
	FetchStations(ctx context.Context, parameterID string) ([]domain.Station, error)
}

// MunicipalityFinder resolves coordinates to a canonical municipality name.
type MunicipalityFinder interface {
	FindMunicipality(ctx context.Context, lat, lon float64) (string, bool)
}

// StationWriter persists an enriched station list.
type StationWriter func(path string, stations []domain.Station) error

// StationEnricher builds the station registry: it lists the stations for a
// parameter, looks up each station's municipality, and writes the result.
type StationEnricher struct {
	lister  StationLister
	finder  MunicipalityFinder
	write   StationWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewStationEnricher creates a StationEnricher.
func NewStationEnricher(lister StationLister, finder MunicipalityFinder, write StationWriter, metrics *observability.Metrics, logger *slog.Logger) *StationEnricher {
	return &StationEnricher{
		lister:  lister,
		finder:  finder,
		write:   write,
		metrics: metrics,
		logger:  logger,
	}
}

// Run enriches the station list for parameterID and writes it to path.
// Lookups run one at a time and are paced by the finder. Stations without a
// match keep an empty municipality. Cancelling ctx stops before the file is
// written.
func (e *StationEnricher) Run(ctx context.Context, parameterID, path string) ([]domain.Station, error) {
	stations, err := e.lister.FetchStations(ctx, parameterID)
	if err != nil {
		e.logger.Error("fetch station list failed", "parameter_id", parameterID, "error", err)
		return nil, fmt.Errorf("fetch stations: %w", err)
	}
	e.logger.Info("station list fetched", "parameter_id", parameterID, "stations", len(stations))

	matched := 0
	for i := range stations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st := &stations[i]
		if !st.HasCoordinates() {
			e.logger.Warn("station has no coordinates", "station_id", st.ID)
			e.metrics.MunicipalityMisses.Inc()
			continue
		}
		name, ok := e.finder.FindMunicipality(ctx, st.Lat, st.Lon)
		if !ok {
			e.metrics.MunicipalityMisses.Inc()
			continue
		}
		st.Municipality = name
		matched++
		e.logger.Debug("station matched", "station_id", st.ID, "municipality", name)
	}

	if err := e.write(path, stations); err != nil {
		return nil, fmt.Errorf("write station registry: %w", err)
	}
	e.logger.Info("station registry written", "path", path, "stations", len(stations), "matched", matched)
	return stations, nil
}
