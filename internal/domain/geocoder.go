package domain

import (
	"context"
	"errors"
)

// Geocoding failure kinds. Providers wrap one of these so callers can tell
// them apart with errors.Is.
var (
	ErrRateLimited     = errors.New("geocoding rate limit exceeded")
	ErrInvalidInput    = errors.New("invalid geocoding input")
	ErrUnknownGeocoder = errors.New("unknown geocoding provider error")
)

// GeocodingResult contains the first match returned by a geocoding provider.
type GeocodingResult struct {
	Municipality     string // administrative component, e.g. "Stockholms kommun"
	FormattedAddress string
	Confidence       float64 // provider specific, higher is better
}

// Geocoder resolves coordinates to administrative places.
type Geocoder interface {
	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
