package domain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// DefaultGeocodePause is the wait after each geocoding call. The free OpenCage
// tier allows one request per second.
const DefaultGeocodePause = time.Second

// NormalizeMunicipality strips the "s kommun" and " kommun" suffixes a
// geocoder appends to Swedish municipality names.
func NormalizeMunicipality(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(name, "s kommun") {
		name = strings.TrimSuffix(name, "s kommun")
	}
	if strings.HasSuffix(name, " kommun") {
		name = strings.TrimSuffix(name, " kommun")
	}
	return name
}

// MunicipalityMatcher resolves coordinates to one of a fixed list of
// municipality names. Calls are sequential and paced; there is no batching.
type MunicipalityMatcher struct {
	geocoder Geocoder
	known    map[string]struct{}
	pause    time.Duration
	logger   *slog.Logger
}

// NewMunicipalityMatcher creates a matcher over the canonical names. The list
// is copied and never changes afterwards.
func NewMunicipalityMatcher(geocoder Geocoder, municipalities []string, pause time.Duration, logger *slog.Logger) *MunicipalityMatcher {
	known := make(map[string]struct{}, len(municipalities))
	for _, m := range municipalities {
		known[m] = struct{}{}
	}
	return &MunicipalityMatcher{
		geocoder: geocoder,
		known:    known,
		pause:    pause,
		logger:   logger,
	}
}

// Known reports whether name is one of the canonical municipalities.
func (m *MunicipalityMatcher) Known(name string) bool {
	_, ok := m.known[name]
	return ok
}

// FindMunicipality returns the canonical municipality at the coordinates, or
// false when none could be determined. Geocoding failures are logged and never
// returned to the caller.
func (m *MunicipalityMatcher) FindMunicipality(ctx context.Context, lat, lon float64) (string, bool) {
	result, err := m.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		m.logFailure(err, lat, lon)
		return "", false
	}
	if result.Municipality == "" {
		m.logger.Warn("unexpected geocoding failure",
			"lat", lat,
			"lon", lon,
			"error", "no municipality component in result",
		)
		return "", false
	}

	m.logger.Info("geocoded municipality", "municipality", result.Municipality, "pause", m.pause)
	sleep(ctx, m.pause)

	name := NormalizeMunicipality(result.Municipality)
	if !m.Known(name) {
		m.logger.Debug("municipality not in reference list", "municipality", name, "lat", lat, "lon", lon)
		return "", false
	}
	return name, true
}

func (m *MunicipalityMatcher) logFailure(err error, lat, lon float64) {
	switch {
	case errors.Is(err, ErrRateLimited):
		m.logger.Warn("rate limit exceeded", "lat", lat, "lon", lon, "error", err)
	case errors.Is(err, ErrInvalidInput):
		m.logger.Warn("invalid input", "lat", lat, "lon", lon, "error", err)
	case errors.Is(err, ErrUnknownGeocoder):
		m.logger.Warn("unknown geocoding error", "lat", lat, "lon", lon, "error", err)
	default:
		m.logger.Warn("unexpected geocoding failure", "lat", lat, "lon", lon, "error", err)
	}
}
