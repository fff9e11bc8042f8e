package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "oc-test-key"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://opendata-download-metobs.smhi.se/api/version/1.0", cfg.BaseURL)
	assert.Equal(t, "corrected-archive", cfg.DefaultPeriod)
	assert.Equal(t, "1", cfg.ParameterID)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "data/stations.csv", cfg.StationsFile)
	assert.Equal(t, "data/swedish_municipalities.csv", cfg.MunicipalitiesFile)
	assert.Equal(t, 0, cfg.StationLimit)
	assert.Equal(t, "sqlite3", cfg.StoreDriver)
	assert.Equal(t, "data/observations.db", cfg.StoreDSN)
	assert.Equal(t, "data", cfg.StoreTable)
	assert.Equal(t, "Lufttemperatur", cfg.ValueColumn)
	assert.Empty(t, cfg.OpenCageAPIKey)
	assert.Equal(t, "https://api.opencagedata.com/geocode/v1", cfg.OpenCageBaseURL)
	assert.Equal(t, time.Second, cfg.GeocodePause)
	assert.Equal(t, 10*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 0, cfg.GeocodeCacheSize)
	assert.Equal(t, uint32(5), cfg.GeocodeMaxFailure)
	assert.False(t, cfg.KafkaEnabled())
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("BASE_URL", "http://localhost:9000/api/")
	t.Setenv("DEFAULT_PERIOD", "latest-months")
	t.Setenv("PARAMETER_ID", "4")
	t.Setenv("STATION_LIMIT", "10")
	t.Setenv("STORE_DRIVER", "csv")
	t.Setenv("OPENCAGE_API_KEY", testAPIKey)
	t.Setenv("GEOCODE_PAUSE", "250ms")
	t.Setenv("GEOCODE_CACHE_SIZE", "500")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "observations")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "pretty")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api", cfg.BaseURL)
	assert.Equal(t, "latest-months", cfg.DefaultPeriod)
	assert.Equal(t, "4", cfg.ParameterID)
	assert.Equal(t, 10, cfg.StationLimit)
	assert.Equal(t, "csv", cfg.StoreDriver)
	assert.Equal(t, "data/observations.csv", cfg.StoreDSN)
	assert.Equal(t, testAPIKey, cfg.OpenCageAPIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.GeocodePause)
	assert.Equal(t, 500, cfg.GeocodeCacheSize)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := writeFile(t, "config.env", `opencage_api_key="from-dotenv"
PARAMETER_ID=21
STORE_TABLE=gusts
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.OpenCageAPIKey)
	assert.Equal(t, "21", cfg.ParameterID)
	assert.Equal(t, "gusts", cfg.StoreTable)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "config-ver.yml", `
base_url_unused: ignored
PARAMETER_ID: 6
STATION_LIMIT: 3
GEOCODE_PAUSE: 2s
VALUE_COLUMN: Relativ_Luftfuktighet
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "6", cfg.ParameterID)
	assert.Equal(t, 3, cfg.StationLimit)
	assert.Equal(t, 2*time.Second, cfg.GeocodePause)
	assert.Equal(t, "Relativ_Luftfuktighet", cfg.ValueColumn)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.env", "PARAMETER_ID=21\n")
	t.Setenv("PARAMETER_ID", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.ParameterID)
}

func TestLoad_FileDoesNotLeakIntoEnvironment(t *testing.T) {
	path := writeFile(t, "config.env", "METOBS_TEST_ONLY_KEY=value\n")

	_, err := Load(path)
	require.NoError(t, err)

	_, set := os.LookupEnv("METOBS_TEST_ONLY_KEY")
	assert.False(t, set)
}

func TestLoad_UnsupportedFileType(t *testing.T) {
	path := writeFile(t, "config.toml", "PARAMETER_ID = 1\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file type")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}

func TestLoad_InvalidPeriod(t *testing.T) {
	t.Setenv("DEFAULT_PERIOD", "yesterday")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_PERIOD")
}

func TestLoad_InvalidHTTPTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
}

func TestLoad_NegativeStationLimit(t *testing.T) {
	t.Setenv("STATION_LIMIT", "-1")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATION_LIMIT")
}

func TestLoad_InvalidStoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	t.Setenv("BASE_URL", "not a url")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASE_URL")
}

func TestLoad_KafkaBrokersWithoutTopic(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_TOPIC")
}

func TestLoad_InvalidMaxFailures(t *testing.T) {
	t.Setenv("GEOCODE_MAX_FAILURES", "0")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEOCODE_MAX_FAILURES")
}

func TestLoad_LowerCaseFileKeys(t *testing.T) {
	path := writeFile(t, "config.yml", `
base_url: https://example.test/api/version/1.0
default_period: latest-months
parameter_id: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/api/version/1.0", cfg.BaseURL)
	assert.Equal(t, "latest-months", cfg.DefaultPeriod)
	assert.Equal(t, "4", cfg.ParameterID)
}

func TestLoad_UpperCaseFileKeyWinsOverLowerCase(t *testing.T) {
	path := writeFile(t, "config.env", "default_period=latest-day\nDEFAULT_PERIOD=latest-hour\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "latest-hour", cfg.DefaultPeriod)
}

func TestLoad_ShutdownTimeout(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "never")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}
