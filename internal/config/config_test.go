package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENERGY_BACKEND_URL", "ENERGY_OUTPUT_DIR", "ENERGY_REQUEST_TIMEOUT",
		"ENERGY_CAPTURE_TIMEOUT", "ENERGY_DNS_CACHE_TTL", "ENERGY_DISABLE_FALLBACK",
		"ENERGY_METRICS_ADDR", "ENERGY_LISTEN_ADDR", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Keep ./.env of the working directory out of the picture.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("ENERGY_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultCaptureTimeout, cfg.CaptureTimeout)
	assert.False(t, cfg.DisableFallback)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, filepath.Join(dir, "records.db"), cfg.DatabasePath())
	assert.True(t, cfg.EnvOverrides["dataDir"])
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENERGY_DATA_DIR", t.TempDir())
	envVars := map[string]string{
		"ENERGY_BACKEND_URL":      "https://predictions.example.com",
		"ENERGY_OUTPUT_DIR":       "/tmp/reports",
		"ENERGY_REQUEST_TIMEOUT":  "30",
		"ENERGY_CAPTURE_TIMEOUT":  "2500ms",
		"ENERGY_DNS_CACHE_TTL":    "1m",
		"ENERGY_DISABLE_FALLBACK": "true",
		"ENERGY_METRICS_ADDR":     ":9091",
		"LOG_LEVEL":               "debug",
		"LOG_FORMAT":              "json",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://predictions.example.com", cfg.BackendURL)
	assert.Equal(t, "/tmp/reports", cfg.OutputDir)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2500*time.Millisecond, cfg.CaptureTimeout)
	assert.Equal(t, time.Minute, cfg.DNSCacheTTL)
	assert.True(t, cfg.DisableFallback)
	assert.Equal(t, ":9091", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.EnvOverrides["backendURL"])
	assert.True(t, cfg.EnvOverrides["disableFallback"])
	assert.False(t, cfg.EnvOverrides["listenAddr"])
}

func TestLoadReadsDataDirEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("ENERGY_DATA_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ENERGY_BACKEND_URL=http://from-file:8080\nLOG_LEVEL=warn\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("ENERGY_BACKEND_URL")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:8080", cfg.BackendURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for env, value := range map[string]string{
		"ENERGY_REQUEST_TIMEOUT":  "soon",
		"ENERGY_DISABLE_FALLBACK": "maybe",
	} {
		t.Run(env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ENERGY_DATA_DIR", t.TempDir())
			t.Setenv(env, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), env)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BackendURL:     "http://localhost:5000",
			RequestTimeout: DefaultRequestTimeout,
			CaptureTimeout: DefaultCaptureTimeout,
			LogFormat:      "json",
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"no scheme":      func(c *Config) { c.BackendURL = "localhost:5000" },
		"no host":        func(c *Config) { c.BackendURL = "http://" },
		"short timeout":  func(c *Config) { c.RequestTimeout = 10 * time.Millisecond },
		"zero capture":   func(c *Config) { c.CaptureTimeout = 0 },
		"negative ttl":   func(c *Config) { c.DNSCacheTTL = -time.Second },
		"unknown format": func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
