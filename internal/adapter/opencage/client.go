package opencage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/metobs-sync/internal/domain"
	"github.com/couchcryptid/metobs-sync/internal/observability"
)

// DefaultBaseURL is the OpenCage forward/reverse geocoding endpoint.
const DefaultBaseURL = "https://api.opencagedata.com/geocode/v1"

// Settings configures a Client.
type Settings struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxFailures uint32 // consecutive failures before the breaker opens
	Language    string
}

// Client implements domain.Geocoder using the OpenCage reverse geocoding API.
type Client struct {
	http     *resty.Client
	apiKey   string
	language string
	breaker  *gobreaker.CircuitBreaker
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates an OpenCage client guarded by a circuit breaker.
func NewClient(s Settings, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.Language == "" {
		s.Language = "sv"
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}

	maxFailures := s.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "opencage",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A rejected coordinate says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrInvalidInput)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		http: resty.New().
			SetBaseURL(s.BaseURL).
			SetTimeout(s.Timeout).
			SetHeader("Accept", "application/json"),
		apiKey:   s.APIKey,
		language: s.Language,
		breaker:  breaker,
		metrics:  metrics,
		logger:   logger,
	}
}

// ReverseGeocode converts coordinates to the first matching place. A response
// without results yields an empty GeocodingResult and no error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.reverse(ctx, lat, lon)
	})
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.GeocodingResult{}, fmt.Errorf("opencage: %w", err)
		}
		return domain.GeocodingResult{}, err
	}

	result, _ := out.(domain.GeocodingResult)
	if result.Municipality == "" {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return result, nil
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	var body response
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":              fmt.Sprintf("%f,%f", lat, lon),
			"key":            c.apiKey,
			"no_annotations": "1",
			"limit":          "1",
			"language":       c.language,
		}).
		SetResult(&body).
		Get("/json")
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	c.logger.Debug("opencage request", "lat", lat, "lon", lon, "status", resp.StatusCode(), "duration", resp.Time())

	if err := statusError(resp.StatusCode(), resp.String()); err != nil {
		return domain.GeocodingResult{}, err
	}

	if len(body.Results) == 0 {
		return domain.GeocodingResult{}, nil
	}
	r := body.Results[0]
	return domain.GeocodingResult{
		Municipality:     r.Components.Municipality,
		FormattedAddress: r.Formatted,
		Confidence:       float64(r.Confidence),
	}, nil
}

// statusError maps OpenCage's documented status codes onto the domain's
// geocoding failure kinds.
func statusError(code int, body string) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return fmt.Errorf("%w: status %d: %s", domain.ErrInvalidInput, code, body)
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", domain.ErrRateLimited, code, body)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrUnknownGeocoder, code, body)
	}
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
	Status  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

type result struct {
	Components struct {
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		Country      string `json:"country"`
	} `json:"components"`
	Formatted  string `json:"formatted"`
	Confidence int    `json:"confidence"`
}
