// Package config loads runtime settings from .env files and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Defaults applied before .env files and environment overrides.
const (
	DefaultBackendURL     = "http://localhost:5000"
	DefaultRequestTimeout = 15 * time.Second
	DefaultCaptureTimeout = 5 * time.Second
	DefaultDNSCacheTTL    = 5 * time.Minute
	DefaultListenAddr     = "127.0.0.1:5000"
)

// Config holds the settings shared by every command.
type Config struct {
	BackendURL      string
	DataDir         string
	OutputDir       string
	RequestTimeout  time.Duration
	CaptureTimeout  time.Duration
	DNSCacheTTL     time.Duration
	DisableFallback bool
	MetricsAddr     string // empty disables the metrics server
	ListenAddr      string // development API address

	LogLevel  string
	LogFormat string
	LogFile   string

	// EnvOverrides records which settings came from the environment.
	EnvOverrides map[string]bool
}

// Load reads .env files and applies environment overrides on top of the
// defaults. $ENERGY_DATA_DIR/.env is loaded first, then ./.env; neither
// replaces a variable that is already set.
func Load() (*Config, error) {
	dataDir := defaultDataDir()
	if dir := os.Getenv("ENERGY_DATA_DIR"); dir != "" {
		dataDir = dir
	}

	envFile := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("Failed to load .env file")
		} else {
			log.Debug().Str("file", envFile).Msg("Loaded .env file")
		}
	}
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded configuration from .env in current directory")
	}

	cfg := &Config{
		BackendURL:     DefaultBackendURL,
		DataDir:        dataDir,
		OutputDir:      ".",
		RequestTimeout: DefaultRequestTimeout,
		CaptureTimeout: DefaultCaptureTimeout,
		DNSCacheTTL:    DefaultDNSCacheTTL,
		ListenAddr:     DefaultListenAddr,
		LogLevel:       "info",
		LogFormat:      "auto",
		EnvOverrides:   make(map[string]bool),
	}
	if os.Getenv("ENERGY_DATA_DIR") != "" {
		cfg.EnvOverrides["dataDir"] = true
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		env, key string
		dst      *string
	}{
		{"ENERGY_BACKEND_URL", "backendURL", &c.BackendURL},
		{"ENERGY_OUTPUT_DIR", "outputDir", &c.OutputDir},
		{"ENERGY_METRICS_ADDR", "metricsAddr", &c.MetricsAddr},
		{"ENERGY_LISTEN_ADDR", "listenAddr", &c.ListenAddr},
		{"LOG_LEVEL", "logLevel", &c.LogLevel},
		{"LOG_FORMAT", "logFormat", &c.LogFormat},
		{"LOG_FILE", "logFile", &c.LogFile},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(os.Getenv(s.env)); v != "" {
			*s.dst = v
			c.EnvOverrides[s.key] = true
		}
	}

	durations := []struct {
		env, key string
		dst      *time.Duration
	}{
		{"ENERGY_REQUEST_TIMEOUT", "requestTimeout", &c.RequestTimeout},
		{"ENERGY_CAPTURE_TIMEOUT", "captureTimeout", &c.CaptureTimeout},
		{"ENERGY_DNS_CACHE_TTL", "dnsCacheTTL", &c.DNSCacheTTL},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(os.Getenv(d.env))
		if raw == "" {
			continue
		}
		v, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = v
		c.EnvOverrides[d.key] = true
	}

	if raw := strings.TrimSpace(os.Getenv("ENERGY_DISABLE_FALLBACK")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid ENERGY_DISABLE_FALLBACK: %w", err)
		}
		c.DisableFallback = v
		c.EnvOverrides["disableFallback"] = true
	}
	return nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend URL must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("backend URL has no host")
	}

	if c.RequestTimeout < time.Second {
		return fmt.Errorf("request timeout must be at least 1 second")
	}
	if c.CaptureTimeout <= 0 {
		return fmt.Errorf("capture timeout must be positive")
	}
	if c.DNSCacheTTL < 0 {
		return fmt.Errorf("DNS cache TTL cannot be negative")
	}

	switch c.LogFormat {
	case "json", "console", "auto":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return nil
}

// DatabasePath is where the development API keeps its records.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "records.db")
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "energy-reports")
	}
	return ".energy-reports"
}
