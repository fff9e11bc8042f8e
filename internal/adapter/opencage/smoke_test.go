//go:build opencage

package opencage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/metobs-sync/internal/domain"
	"github.com/couchcryptid/metobs-sync/internal/observability"
)

// These tests hit the real OpenCage API and require OPENCAGE_API_KEY.
// Run with: go test -tags=opencage ./internal/adapter/opencage/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("OPENCAGE_API_KEY")
	if key == "" {
		t.Fatal("OPENCAGE_API_KEY must be set to run smoke tests")
	}
	return NewClient(Settings{APIKey: key, Timeout: 10 * time.Second},
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ReverseGeocode_Stockholm(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ReverseGeocode(context.Background(), 59.3293, 18.0686)
	require.NoError(t, err)

	assert.Equal(t, "Stockholm", domain.NormalizeMunicipality(result.Municipality))
	assert.NotEmpty(t, result.FormattedAddress)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestSmoke_ReverseGeocode_OutOfRange(t *testing.T) {
	c := smokeClient(t)

	_, err := c.ReverseGeocode(context.Background(), 200, 200)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedGeocoder(c, 10, observability.NewMetricsForTesting())

	r1, err := cached.ReverseGeocode(context.Background(), 67.8557, 20.2253)
	require.NoError(t, err)
	time.Sleep(domain.DefaultGeocodePause)

	r2, err := cached.ReverseGeocode(context.Background(), 67.8557, 20.2253)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
