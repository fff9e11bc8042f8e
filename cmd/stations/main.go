// Command stations builds the station registry: it lists every station that
// reports the configured parameter, resolves each station's municipality via
// OpenCage and writes the result to STATIONS_FILE.
//
// Usage:
//
//	OPENCAGE_API_KEY=... stations -config .env
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/metobs-sync/internal/adapter/opencage"
	"github.com/couchcryptid/metobs-sync/internal/adapter/registry"
	"github.com/couchcryptid/metobs-sync/internal/adapter/smhi"
	"github.com/couchcryptid/metobs-sync/internal/config"
	"github.com/couchcryptid/metobs-sync/internal/domain"
	"github.com/couchcryptid/metobs-sync/internal/observability"
	"github.com/couchcryptid/metobs-sync/internal/pipeline"
)

var errNoAPIKey = errors.New("OPENCAGE_API_KEY is not set")

func main() {
	configPath := flag.String("config", os.Getenv("METOBS_CONFIG"), "optional .env or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, "stations")
	if err := run(cfg, logger); err != nil {
		logger.Error("station registry build failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.OpenCageAPIKey == "" {
		return errNoAPIKey
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	names, err := registry.LoadMunicipalities(cfg.MunicipalitiesFile)
	if err != nil {
		return err
	}
	logger.Info("municipalities loaded", "path", cfg.MunicipalitiesFile, "count", len(names))

	var geocoder domain.Geocoder = opencage.NewClient(opencage.Settings{
		BaseURL:     cfg.OpenCageBaseURL,
		APIKey:      cfg.OpenCageAPIKey,
		Timeout:     cfg.GeocodeTimeout,
		MaxFailures: cfg.GeocodeMaxFailure,
	}, metrics, logger)
	if cfg.GeocodeCacheSize > 0 {
		geocoder = opencage.NewCachedGeocoder(geocoder, cfg.GeocodeCacheSize, metrics)
	}
	matcher := domain.NewMunicipalityMatcher(geocoder, names, cfg.GeocodePause, logger)

	client := smhi.NewClient(cfg.BaseURL, cfg.HTTPTimeout, logger)
	enricher := pipeline.NewStationEnricher(client, matcher, registry.WriteStations, metrics, logger)
	_, err = enricher.Run(ctx, cfg.ParameterID, cfg.StationsFile)

	if cfg.PushgatewayURL != "" {
		if perr := metrics.Push(cfg.PushgatewayURL, "metobs_stations"); perr != nil {
			logger.Warn("metrics push failed", "error", perr)
		}
	}
	return err
}
