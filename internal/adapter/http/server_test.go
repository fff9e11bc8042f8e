package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/metobs-sync/internal/adapter/http"
	"github.com/couchcryptid/metobs-sync/internal/observability"
	"github.com/couchcryptid/metobs-sync/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockStatus struct {
	v any
}

func (m *mockStatus) Status() any { return m.v }

func newTestServer(readyErr error) (*httpadapter.Server, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer(":0",
		&mockReadiness{err: readyErr},
		&mockStatus{v: map[string]any{"state": "running", "stations_done": 3}},
		m.Gatherer(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return srv, m
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := get(t, srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(errors.New("stations not loaded"))
	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "stations not loaded", body["error"])
}

func TestStatusReturnsRunSummary(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := get(t, srv, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"state":"running","stations_done":3}`, rec.Body.String())
}

func TestMetricsEndpointServesRunMetrics(t *testing.T) {
	srv, m := newTestServer(nil)
	m.RowsAppended.Add(7)

	rec := get(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "metobs_sync_rows_appended_total 7")
}

func TestPostNotAllowed(t *testing.T) {
	srv, _ := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadyzReportsIdlePipeline(t *testing.T) {
	m := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(pipeline.RegistryFile("stations.csv"), nil, nil, nil, 0, logger, m)
	srv := httpadapter.NewServer(":0", p, p, m.Gatherer(), logger)

	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "station registry not loaded yet", body["error"])

	rec = get(t, srv, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"idle"`)
}
