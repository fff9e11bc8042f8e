package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/metobs-sync/internal/domain"
	"github.com/couchcryptid/metobs-sync/internal/observability"
)

// Store persists observations and reports the latest stored date per station.
type Store interface {
	EnsureSchema(ctx context.Context) error
	MaxDates(ctx context.Context) (map[string]string, error)
	Append(ctx context.Context, rows []domain.Observation) error
}

// SyncResult summarises one Sync call.
type SyncResult struct {
	Received int
	Appended int
	Rejected int
	Rows     []domain.Observation // the rows that were appended
}

// Syncer appends only rows newer than what the store already holds.
type Syncer struct {
	store   Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSyncer creates a Syncer over store.
func NewSyncer(store Store, metrics *observability.Metrics, logger *slog.Logger) *Syncer {
	return &Syncer{store: store, metrics: metrics, logger: logger}
}

// Ping checks the store connection when the store supports it. File-backed
// stores have nothing to check.
func (s *Syncer) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Sync filters batch against the stored maximum date per station and appends
// the remainder in one call. Storage errors are returned wrapped.
func (s *Syncer) Sync(ctx context.Context, batch []domain.Observation) (SyncResult, error) {
	res := SyncResult{Received: len(batch)}
	if len(batch) == 0 {
		s.logger.Info("nothing to sync")
		return res, nil
	}

	start := time.Now()
	defer func() {
		s.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.store.EnsureSchema(ctx); err != nil {
		return res, fmt.Errorf("ensure schema: %w", err)
	}
	maxDates, err := s.store.MaxDates(ctx)
	if err != nil {
		return res, fmt.Errorf("read max dates: %w", err)
	}

	// Freshness is decided on the date alone; later readings from a day that
	// is already stored are dropped with it.
	s.logger.Debug("filtering on date only", "stations_stored", len(maxDates))
	fresh := domain.FilterNewer(batch, maxDates)
	res.Rejected = len(batch) - len(fresh)
	s.metrics.RowsRejected.Add(float64(res.Rejected))

	if len(fresh) == 0 {
		s.logger.Info("no new observations", "received", res.Received)
		return res, nil
	}

	if err := s.store.Append(ctx, fresh); err != nil {
		return res, fmt.Errorf("append observations: %w", err)
	}
	res.Appended = len(fresh)
	res.Rows = fresh
	s.metrics.RowsAppended.Add(float64(res.Appended))

	s.logger.Info("store updated", "received", res.Received, "appended", res.Appended, "rejected", res.Rejected)
	return res, nil
}
