package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/metobs-sync/internal/adapter/registry"
	"github.com/couchcryptid/metobs-sync/internal/domain"
	"github.com/couchcryptid/metobs-sync/internal/observability"
)

// StationSource provides the stations to download.
type StationSource interface {
	Stations(ctx context.Context) ([]domain.Station, error)
}

// RegistryFile reads stations from a registry file on every call.
type RegistryFile string

func (f RegistryFile) Stations(_ context.Context) ([]domain.Station, error) {
	return registry.LoadStations(string(f))
}

// Publisher forwards appended observations downstream.
type Publisher interface {
	Publish(ctx context.Context, rows []domain.Observation) error
}

// Run states reported by Status.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateFinished = "finished"
	StateFailed   = "failed"
)

// RunSummary describes the progress or outcome of a run.
type RunSummary struct {
	State          string    `json:"state"`
	StartedAt      time.Time `json:"started_at,omitzero"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	Stations       int       `json:"stations"`
	StationsDone   int       `json:"stations_done"`
	DownloadFailed int       `json:"download_failed"`
	Received       int       `json:"rows_received"`
	Appended       int       `json:"rows_appended"`
	Rejected       int       `json:"rows_rejected"`
	Published      int       `json:"rows_published"`
	Error          string    `json:"error,omitempty"`
}

// Pipeline downloads every registered station, then syncs the combined batch
// into the store once.
type Pipeline struct {
	stations     StationSource
	downloader   *Downloader
	syncer       *Syncer
	publisher    Publisher // optional
	stationLimit int
	logger       *slog.Logger
	metrics      *observability.Metrics

	ready   atomic.Bool
	mu      sync.Mutex
	summary RunSummary
}

// New creates a Pipeline. publisher may be nil. stationLimit > 0 restricts a
// run to the first stationLimit stations of the registry.
func New(stations StationSource, d *Downloader, s *Syncer, publisher Publisher, stationLimit int, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		stations:     stations,
		downloader:   d,
		syncer:       s,
		publisher:    publisher,
		stationLimit: stationLimit,
		logger:       logger,
		metrics:      metrics,
		summary:      RunSummary{State: StateIdle},
	}
}

// CheckReadiness returns nil once the station registry has been loaded and
// the store answers a ping.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if !p.ready.Load() {
		return errors.New("station registry not loaded yet")
	}
	if err := p.syncer.Ping(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	return nil
}

// Status returns a snapshot of the current run.
func (p *Pipeline) Status() any {
	return p.Summary()
}

// Summary returns a copy of the current run summary.
func (p *Pipeline) Summary() RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

func (p *Pipeline) update(fn func(*RunSummary)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.summary)
}

// Run performs one sync. Stations are downloaded sequentially; a station
// whose download fails is skipped. Storage errors abort the run. Cancelling
// ctx stops the download loop before the next station and returns ctx.Err().
func (p *Pipeline) Run(ctx context.Context) (err error) {
	p.metrics.RunRunning.Set(1)
	defer p.metrics.RunRunning.Set(0)

	p.update(func(s *RunSummary) {
		*s = RunSummary{State: StateRunning, StartedAt: time.Now().UTC()}
	})
	defer func() {
		p.update(func(s *RunSummary) {
			s.FinishedAt = time.Now().UTC()
			s.State = StateFinished
			if err != nil {
				s.State = StateFailed
				s.Error = err.Error()
			}
		})
	}()

	stations, err := p.stations.Stations(ctx)
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}
	if p.stationLimit > 0 && len(stations) > p.stationLimit {
		stations = stations[:p.stationLimit]
	}
	p.ready.Store(true)
	p.update(func(s *RunSummary) { s.Stations = len(stations) })

	param := p.downloader.Parameter()
	p.logger.Info("run started", "stations", len(stations), "parameter", param.Title, "unit", param.Unit)

	batch, err := p.downloadAll(ctx, stations)
	if err != nil {
		return err
	}

	res, err := p.syncer.Sync(ctx, batch)
	p.update(func(s *RunSummary) {
		s.Received = res.Received
		s.Appended = res.Appended
		s.Rejected = res.Rejected
	})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	p.publish(ctx, res.Rows)

	p.logger.Info("run finished",
		"stations", len(stations),
		"received", res.Received,
		"appended", res.Appended,
		"rejected", res.Rejected,
	)
	return nil
}

func (p *Pipeline) downloadAll(ctx context.Context, stations []domain.Station) ([]domain.Observation, error) {
	var batch []domain.Observation
	for i, st := range stations {
		if err := ctx.Err(); err != nil {
			p.logger.Info("run cancelled", "stations_done", i, "reason", err)
			return nil, err
		}

		rows, ok := p.downloader.Download(ctx, st)
		p.metrics.StationsProcessed.Inc()
		p.update(func(s *RunSummary) {
			s.StationsDone = i + 1
			if !ok {
				s.DownloadFailed++
			}
		})
		if !ok {
			continue
		}
		batch = append(batch, rows...)
	}
	return batch, nil
}

// publish forwards appended rows. Failures are logged; the rows are already stored.
func (p *Pipeline) publish(ctx context.Context, rows []domain.Observation) {
	if p.publisher == nil || len(rows) == 0 {
		return
	}
	if err := p.publisher.Publish(ctx, rows); err != nil {
		p.logger.Error("publish failed", "rows", len(rows), "error", err)
		return
	}
	p.update(func(s *RunSummary) { s.Published = len(rows) })
}
