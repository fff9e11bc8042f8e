package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all run settings. It is built once at startup from an optional
// config file overlaid by the process environment, then passed explicitly.
type Config struct {
	BaseURL       string        `validate:"required,url"`
	DefaultPeriod string        `validate:"oneof=latest-hour latest-day latest-months corrected-archive"`
	ParameterID   string        `validate:"required,numeric"`
	HTTPTimeout   time.Duration `validate:"gt=0"`

	StationsFile       string `validate:"required"`
	MunicipalitiesFile string `validate:"required"`
	StationLimit       int    `validate:"min=0"`

	StoreDriver string `validate:"oneof=sqlite3 postgres csv"`
	StoreDSN    string `validate:"required"`
	StoreTable  string `validate:"required"`
	ValueColumn string `validate:"required"`

	// OpenCage geocoding configuration.
	OpenCageAPIKey    string
	OpenCageBaseURL   string        `validate:"required,url"`
	GeocodePause      time.Duration `validate:"min=0"`
	GeocodeTimeout    time.Duration `validate:"gt=0"`
	GeocodeCacheSize  int           `validate:"min=0"`
	GeocodeMaxFailure uint32        `validate:"gt=0"`

	KafkaBrokers []string
	KafkaTopic   string

	PushgatewayURL string `validate:"omitempty,url"`
	HTTPAddr       string
	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=json text pretty"`

	// ShutdownTimeout bounds the HTTP server drain. Read from SHUTDOWN_TIMEOUT
	// in the process environment only.
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether appended observations should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

// source resolves keys against the environment first, then the config file.
// File keys are matched case-insensitively, so base_url and BASE_URL are the
// same setting.
type source struct {
	file map[string]string
}

func newSource(file map[string]string) source {
	upper := make(map[string]string, len(file))
	for k, v := range file {
		uk := strings.ToUpper(strings.TrimSpace(k))
		if _, exact := file[uk]; exact && uk != k {
			continue
		}
		upper[uk] = v
	}
	return source{file: upper}
}

func (s source) get(key string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return s.file[key]
}

func (s source) orDefault(key, def string) string {
	if v := s.get(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (s source) duration(key, def string) (time.Duration, error) {
	v := s.orDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func (s source) integer(key string, def int) (int, error) {
	v := s.get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

// Load reads configuration from path (a .env or YAML file; empty means none)
// and the environment, applying defaults where unset.
func Load(path string) (*Config, error) {
	file, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	src := newSource(file)

	httpTimeout, err := src.duration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	geocodePause, err := src.duration("GEOCODE_PAUSE", "1s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := src.duration("GEOCODE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	stationLimit, err := src.integer("STATION_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := src.integer("GEOCODE_CACHE_SIZE", 0)
	if err != nil {
		return nil, err
	}
	maxFailures, err := src.integer("GEOCODE_MAX_FAILURES", 5)
	if err != nil {
		return nil, err
	}
	if maxFailures <= 0 {
		return nil, errors.New("GEOCODE_MAX_FAILURES must be positive")
	}

	apiKey := src.get("OPENCAGE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("opencage_api_key")
	}
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	driver := src.orDefault("STORE_DRIVER", "sqlite3")
	defaultDSN := "data/observations.db"
	if driver == "csv" {
		defaultDSN = "data/observations.csv"
	}

	cfg := &Config{
		BaseURL:       strings.TrimRight(src.orDefault("BASE_URL", "https://opendata-download-metobs.smhi.se/api/version/1.0"), "/"),
		DefaultPeriod: src.orDefault("DEFAULT_PERIOD", "corrected-archive"),
		ParameterID:   src.orDefault("PARAMETER_ID", "1"),
		HTTPTimeout:   httpTimeout,

		StationsFile:       src.orDefault("STATIONS_FILE", "data/stations.csv"),
		MunicipalitiesFile: src.orDefault("MUNICIPALITIES_FILE", "data/swedish_municipalities.csv"),
		StationLimit:       stationLimit,

		StoreDriver: driver,
		StoreDSN:    src.orDefault("STORE_DSN", defaultDSN),
		StoreTable:  src.orDefault("STORE_TABLE", "data"),
		ValueColumn: src.orDefault("VALUE_COLUMN", "Lufttemperatur"),

		OpenCageAPIKey:    apiKey,
		OpenCageBaseURL:   strings.TrimRight(src.orDefault("OPENCAGE_BASE_URL", "https://api.opencagedata.com/geocode/v1"), "/"),
		GeocodePause:      geocodePause,
		GeocodeTimeout:    geocodeTimeout,
		GeocodeCacheSize:  cacheSize,
		GeocodeMaxFailure: uint32(maxFailures),

		KafkaBrokers: sharedcfg.ParseBrokers(src.get("KAFKA_BROKERS")),
		KafkaTopic:   src.orDefault("KAFKA_TOPIC", ""),

		PushgatewayURL:  src.orDefault("PUSHGATEWAY_URL", ""),
		HTTPAddr:        src.orDefault("HTTP_ADDR", ""),
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        strings.ToLower(src.orDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(src.orDefault("LOG_FORMAT", "json")),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is not")
	}
	return cfg, nil
}

// ReadFile parses a .env or YAML config file into a flat key/value map. An
// empty path yields an empty map.
func ReadFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".env":
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return values, nil
	case ".yml", ".yaml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		values := make(map[string]string, len(raw))
		for k, v := range raw {
			if v == nil {
				continue
			}
			values[k] = fmt.Sprint(v)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported config file type: %s", path)
	}
}

// fieldKeys maps struct fields to the keys users set, for error messages.
var fieldKeys = map[string]string{
	"BaseURL":            "BASE_URL",
	"DefaultPeriod":      "DEFAULT_PERIOD",
	"ParameterID":        "PARAMETER_ID",
	"HTTPTimeout":        "HTTP_TIMEOUT",
	"StationsFile":       "STATIONS_FILE",
	"MunicipalitiesFile": "MUNICIPALITIES_FILE",
	"StationLimit":       "STATION_LIMIT",
	"StoreDriver":        "STORE_DRIVER",
	"StoreDSN":           "STORE_DSN",
	"StoreTable":         "STORE_TABLE",
	"ValueColumn":        "VALUE_COLUMN",
	"OpenCageBaseURL":    "OPENCAGE_BASE_URL",
	"GeocodePause":       "GEOCODE_PAUSE",
	"GeocodeTimeout":     "GEOCODE_TIMEOUT",
	"GeocodeCacheSize":   "GEOCODE_CACHE_SIZE",
	"GeocodeMaxFailure":  "GEOCODE_MAX_FAILURES",
	"PushgatewayURL":     "PUSHGATEWAY_URL",
	"LogLevel":           "LOG_LEVEL",
	"LogFormat":          "LOG_FORMAT",
}

var validate = func() func(*Config) error {
	v := validator.New()
	return func(cfg *Config) error {
		err := v.Struct(cfg)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			key := fieldKeys[fe.Field()]
			if key == "" {
				key = fe.Field()
			}
			msgs = append(msgs, fmt.Sprintf("invalid %s %q (%s)", key, fmt.Sprint(fe.Value()), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}()
