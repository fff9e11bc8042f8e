package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/metobs-sync/internal/adapter/smhi"
	"github.com/couchcryptid/metobs-sync/internal/domain"
	"github.com/couchcryptid/metobs-sync/internal/observability"
)

// DefaultPeriod is the archive of quality controlled observations.
const DefaultPeriod = "corrected-archive"

// ObservationSource fetches the raw data.csv body for one station.
type ObservationSource interface {
	FetchObservationCSV(ctx context.Context, parameterID, stationID, period string) ([]byte, error)
}

// DownloaderConfig selects what a Downloader fetches.
type DownloaderConfig struct {
	Parameter string // metobs parameter id, e.g. "1" for hourly air temperature
	Period    string // latest-hour, latest-day, latest-months or corrected-archive
}

// Downloader fetches and parses observations for one station at a time.
type Downloader struct {
	source    ObservationSource
	parameter domain.Parameter
	period    string
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewDownloader validates cfg against the parameter catalog.
func NewDownloader(source ObservationSource, cfg DownloaderConfig, metrics *observability.Metrics, logger *slog.Logger) (*Downloader, error) {
	p, err := domain.LookupParameter(cfg.Parameter)
	if err != nil {
		return nil, fmt.Errorf("downloader: %w", err)
	}
	period := cfg.Period
	if period == "" {
		period = DefaultPeriod
	}
	return &Downloader{
		source:    source,
		parameter: p,
		period:    period,
		metrics:   metrics,
		logger:    logger.With("parameter_id", p.ID, "period", period),
	}, nil
}

// Parameter returns the catalog entry being downloaded.
func (d *Downloader) Parameter() domain.Parameter {
	return d.parameter
}

// Download returns the station's observations tagged with its metadata. Any
// fetch or parse failure is logged and reported as absent.
func (d *Downloader) Download(ctx context.Context, station domain.Station) ([]domain.Observation, bool) {
	start := time.Now()
	defer func() {
		d.metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := d.source.FetchObservationCSV(ctx, d.parameter.ID, station.ID, d.period)
	if err != nil {
		d.metrics.Downloads.WithLabelValues("failed").Inc()
		d.logger.Warn("download failed", "station_id", station.ID, "station", station.Name, "error", err)
		return nil, false
	}

	rows, err := smhi.ParseObservations(body)
	if err != nil {
		d.metrics.Downloads.WithLabelValues("failed").Inc()
		d.logger.Warn("parse failed", "station_id", station.ID, "station", station.Name, "error", err)
		return nil, false
	}

	d.metrics.Downloads.WithLabelValues("success").Inc()
	d.metrics.RowsDownloaded.Add(float64(len(rows)))
	d.logger.Debug("station downloaded", "station_id", station.ID, "rows", len(rows))
	return domain.TagStation(rows, station), true
}
