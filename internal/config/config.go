package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Backend names accepted in the backend field.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Config is the resolved pandals configuration.
type Config struct {
	Backend           string
	SupabaseURL       string
	AnonKey           string
	AccessToken       string
	DatabaseURL       string
	RequestsPerSecond float64
	FreshnessWindow   time.Duration
	LocationInterval  time.Duration
	ImageCacheTTL     time.Duration
	Latitude          *float64
	Longitude         *float64
	LogFile           string
	LogLevel          string
}

const (
	defaultConfigPath       = "~/.config/pandals/config.toml"
	defaultLogFile          = "~/.local/state/pandals/pandals.log"
	defaultLogLevel         = "info"
	defaultFreshnessWindow  = 5 * time.Minute
	defaultLocationInterval = 2 * time.Minute
	defaultImageCacheTTL    = 30 * time.Minute
)

type fileConfig struct {
	Backend           string   `toml:"backend"`
	SupabaseURL       string   `toml:"supabase_url"`
	AnonKey           string   `toml:"anon_key"`
	AccessToken       string   `toml:"access_token"`
	DatabaseURL       string   `toml:"database_url"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	FreshnessWindow   string   `toml:"freshness_window"`
	LocationInterval  string   `toml:"location_interval"`
	ImageCacheTTL     string   `toml:"image_cache_ttl"`
	Latitude          *float64 `toml:"latitude"`
	Longitude         *float64 `toml:"longitude"`
	LogFile           string   `toml:"log_file"`
	LogLevel          string   `toml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Backend:          BackendREST,
		FreshnessWindow:  defaultFreshnessWindow,
		LocationInterval: defaultLocationInterval,
		ImageCacheTTL:    defaultImageCacheTTL,
		LogFile:          mustExpand(defaultLogFile),
		LogLevel:         defaultLogLevel,
	}
}

// Load reads the TOML file at path (or the default location), then a .env
// file in the working directory, then PANDALS_* environment variables. Later
// sources win. A missing file or .env is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	raw, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.apply(raw); err != nil {
		return Config{}, err
	}

	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func readFile(resolved string) (fileConfig, error) {
	var raw fileConfig
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, nil
		}
		return raw, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return raw, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return raw, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

func (c *Config) apply(raw fileConfig) error {
	if v := strings.TrimSpace(raw.Backend); v != "" {
		c.Backend = strings.ToLower(v)
	}
	c.SupabaseURL = strings.TrimSpace(raw.SupabaseURL)
	c.AnonKey = strings.TrimSpace(raw.AnonKey)
	c.AccessToken = strings.TrimSpace(raw.AccessToken)
	c.DatabaseURL = strings.TrimSpace(raw.DatabaseURL)
	if raw.RequestsPerSecond > 0 {
		c.RequestsPerSecond = raw.RequestsPerSecond
	}
	c.Latitude = raw.Latitude
	c.Longitude = raw.Longitude

	var err error
	if c.FreshnessWindow, err = parseDuration("freshness_window", raw.FreshnessWindow, c.FreshnessWindow); err != nil {
		return err
	}
	if c.LocationInterval, err = parseDuration("location_interval", raw.LocationInterval, c.LocationInterval); err != nil {
		return err
	}
	if c.ImageCacheTTL, err = parseDuration("image_cache_ttl", raw.ImageCacheTTL, c.ImageCacheTTL); err != nil {
		return err
	}

	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = v
		if v != "-" {
			c.LogFile = mustExpand(v)
		}
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

func (c *Config) applyEnv() error {
	overrides := []struct {
		key string
		dst *string
	}{
		{"PANDALS_SUPABASE_URL", &c.SupabaseURL},
		{"PANDALS_SUPABASE_ANON_KEY", &c.AnonKey},
		{"PANDALS_ACCESS_TOKEN", &c.AccessToken},
		{"PANDALS_DATABASE_URL", &c.DatabaseURL},
		{"PANDALS_BACKEND", &c.Backend},
		{"PANDALS_LOG_LEVEL", &c.LogLevel},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			*o.dst = v
		}
	}
	c.Backend = strings.ToLower(c.Backend)
	c.LogLevel = strings.ToLower(c.LogLevel)

	if v := strings.TrimSpace(os.Getenv("PANDALS_REQUESTS_PER_SECOND")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse PANDALS_REQUESTS_PER_SECOND: %w", err)
		}
		c.RequestsPerSecond = rps
	}
	return nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendREST:
		if c.SupabaseURL == "" {
			return errors.New("supabase_url is required for the rest backend")
		}
		if c.AnonKey == "" {
			return errors.New("anon_key is required for the rest backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendREST, BackendPostgres)
	}
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return errors.New("latitude and longitude must be set together")
	}
	return nil
}

// FixedPosition returns the configured device position, if any.
func (c Config) FixedPosition() (lat, lon float64, ok bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return 0, 0, false
	}
	return *c.Latitude, *c.Longitude, true
}

func parseDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
