package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSocketAddr = "127.0.0.1:8002"
	DefaultGeocodeURL = "http://api.openweathermap.org/geo/1.0/direct"
	DefaultWeatherURL = "http://api.openweathermap.org/data/2.5/weather"
)

var validate = validator.New()

type AppConfig struct {
	// OpenWeatherAPIKey may be empty; queries then fail with a configuration error.
	OpenWeatherAPIKey string `yaml:"openweathermap_api_key"`

	SocketAddr string `yaml:"socket_addr" validate:"required,hostname_port"`
	MCPPath    string `yaml:"mcp_path" validate:"required,startswith=/"`

	GeocodeURL  string        `yaml:"geocode_url" validate:"required,url"`
	WeatherURL  string        `yaml:"weather_url" validate:"required,url"`
	HTTPTimeout time.Duration `yaml:"http_timeout" validate:"gt=0"`

	// Outbound rate limit shared by both upstream calls.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" validate:"gte=1"`

	BreakerMaxRequests         uint32        `yaml:"breaker_max_requests"`
	BreakerInterval            time.Duration `yaml:"breaker_interval" validate:"gte=0"`
	BreakerTimeout             time.Duration `yaml:"breaker_timeout" validate:"gte=0"`
	BreakerConsecutiveFailures uint32        `yaml:"breaker_consecutive_failures"`

	// Invocation history retention.
	HistoryMaxEntries int           `yaml:"history_max_entries" validate:"gte=0"` // 0 = unlimited
	HistoryMaxAge     time.Duration `yaml:"history_max_age" validate:"gte=0"`     // 0 = unlimited

	// Upstream probe, disabled unless both are set.
	ProbeLocation string        `yaml:"probe_location"`
	ProbeInterval time.Duration `yaml:"probe_interval" validate:"gte=0"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *AppConfig {
	return &AppConfig{
		SocketAddr:                 DefaultSocketAddr,
		MCPPath:                    "/mcp",
		GeocodeURL:                 DefaultGeocodeURL,
		WeatherURL:                 DefaultWeatherURL,
		HTTPTimeout:                10 * time.Second,
		RateLimitRPS:               10,
		RateLimitBurst:             5,
		BreakerMaxRequests:         5,
		BreakerInterval:            time.Minute,
		BreakerTimeout:             2 * time.Minute,
		BreakerConsecutiveFailures: 5,
		HistoryMaxEntries:          500,
		HistoryMaxAge:              24 * time.Hour,
		LogLevel:                   "debug",
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. path may be empty; when
// it is, CONFIG_FILE is consulted.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHERMAP_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.SocketAddr = getenvDefault("SOCKET_ADDR", cfg.SocketAddr)
	cfg.MCPPath = getenvDefault("MCP_PATH", cfg.MCPPath)
	cfg.GeocodeURL = getenvDefault("GEOCODE_URL", cfg.GeocodeURL)
	cfg.WeatherURL = getenvDefault("WEATHER_URL", cfg.WeatherURL)
	cfg.ProbeLocation = getenvDefault("PROBE_LOCATION", cfg.ProbeLocation)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.HistoryMaxEntries = getenvInt("HISTORY_MAX_ENTRIES", cfg.HistoryMaxEntries)
	cfg.BreakerMaxRequests = uint32(getenvInt("BREAKER_MAX_REQUESTS", int(cfg.BreakerMaxRequests)))
	cfg.BreakerConsecutiveFailures = uint32(getenvInt("BREAKER_CONSECUTIVE_FAILURES", int(cfg.BreakerConsecutiveFailures)))

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = rps
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"BREAKER_INTERVAL", &cfg.BreakerInterval},
		{"BREAKER_TIMEOUT", &cfg.BreakerTimeout},
		{"HISTORY_MAX_AGE", &cfg.HistoryMaxAge},
		{"PROBE_INTERVAL", &cfg.ProbeInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
