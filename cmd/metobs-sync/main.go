// Command metobs-sync downloads observations for every station in the
// registry and appends the rows newer than what the store already holds.
//
// Usage:
//
//	metobs-sync -config .env
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/metobs-sync/internal/adapter/csvstore"
	httpadapter "github.com/couchcryptid/metobs-sync/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/metobs-sync/internal/adapter/kafka"
	"github.com/couchcryptid/metobs-sync/internal/adapter/smhi"
	"github.com/couchcryptid/metobs-sync/internal/adapter/sqlstore"
	"github.com/couchcryptid/metobs-sync/internal/config"
	"github.com/couchcryptid/metobs-sync/internal/observability"
	"github.com/couchcryptid/metobs-sync/internal/pipeline"
)

func main() {
	configPath := flag.String("config", os.Getenv("METOBS_CONFIG"), "optional .env or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, "metobs-sync")
	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	client := smhi.NewClient(cfg.BaseURL, cfg.HTTPTimeout, logger)
	downloader, err := pipeline.NewDownloader(client, pipeline.DownloaderConfig{
		Parameter: cfg.ParameterID,
		Period:    cfg.DefaultPeriod,
	}, metrics, logger)
	if err != nil {
		return err
	}

	var publisher pipeline.Publisher
	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ParameterID, logger)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = w
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(
		pipeline.RegistryFile(cfg.StationsFile),
		downloader,
		pipeline.NewSyncer(store, metrics, logger),
		publisher,
		cfg.StationLimit,
		logger,
		metrics,
	)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, metrics.Gatherer(), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(cfg.PushgatewayURL, "metobs_sync"); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}
	return runErr
}

// openStore returns the configured store and a func that releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Store, func() error, error) {
	if cfg.StoreDriver == "csv" {
		s := csvstore.New(cfg.StoreDSN, cfg.ValueColumn)
		return s, func() error { return nil }, nil
	}
	db, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	s := sqlstore.New(db, cfg.StoreDriver, cfg.StoreTable, cfg.ValueColumn)
	return s, s.Close, nil
}
