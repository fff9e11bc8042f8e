package smhi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/metobs-sync/internal/domain"
)

// ErrEmptyBody is returned when the API answers 200 with no content.
var ErrEmptyBody = errors.New("no data received from the API")

// StatusError reports a non-200 answer from the metobs API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("metobs API error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the SMHI metobs open data API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a metobs client rooted at baseURL, e.g.
// https://opendata-download-metobs.smhi.se/api/version/1.0.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// FetchObservationCSV downloads the data.csv body for one station, parameter and period.
func (c *Client) FetchObservationCSV(ctx context.Context, parameterID, stationID, period string) ([]byte, error) {
	u := fmt.Sprintf("%s/parameter/%s/station/%s/period/%s/data.csv",
		c.baseURL,
		url.PathEscape(parameterID),
		url.PathEscape(stationID),
		url.PathEscape(period),
	)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}

// FetchStations lists every station that has ever reported parameterID.
// Municipality is left empty.
func (c *Client) FetchStations(ctx context.Context, parameterID string) ([]domain.Station, error) {
	u := fmt.Sprintf("%s/parameter/%s.json", c.baseURL, url.PathEscape(parameterID))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp parameterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode station list: %w", err)
	}

	out := make([]domain.Station, 0, len(resp.Stations))
	for _, s := range resp.Stations {
		out = append(out, domain.Station{
			ID:     s.Key,
			Name:   s.Name,
			Active: s.Active,
			From:   time.UnixMilli(s.From).UTC(),
			To:     time.UnixMilli(s.To).UTC(),
			Lat:    s.Latitude,
			Lon:    s.Longitude,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metobs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("metobs request", "url", fullURL, "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// metobs API response types.

type parameterResponse struct {
	Key      string            `json:"key"`
	Title    string            `json:"title"`
	Unit     string            `json:"unit"`
	Stations []stationResponse `json:"station"`
}

type stationResponse struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Owner     string  `json:"owner"`
	Active    bool    `json:"active"`
	From      int64   `json:"from"` // epoch milliseconds
	To        int64   `json:"to"`
	Height    float64 `json:"height"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
