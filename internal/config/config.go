// Package config loads the collector's YAML configuration: browser launch
// options, the TLS-fingerprint endpoint contract, and logger settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fpcore/internal/logger"
)

// BrowserOptions controls how internal/browser launches and pools tabs.
type BrowserOptions struct {
	Headless       bool   `yaml:"headless"`
	ProxyURL       string `yaml:"proxy_url"`
	WindowWidth    int    `yaml:"window_width"`
	WindowHeight   int    `yaml:"window_height"`
	PoolSize       int    `yaml:"pool_size"`
	AcquireTimeout int    `yaml:"acquire_timeout_seconds"`
}

// TLSFingerprintOptions is the process-wide, replaceable configuration for
// the TLS-fingerprint trivial source (spec §4.5/§6). Its lifecycle is "set
// by caller before first use; overwritten on each reconfiguration" — this
// struct is that configuration entity, never mutated from inside the
// source itself.
type TLSFingerprintOptions struct {
	Endpoint       string            `yaml:"endpoint"`
	TimeoutMS      int               `yaml:"timeout_ms"`
	Headers        map[string]string `yaml:"headers"`
	RequestsPerSec float64           `yaml:"requests_per_sec"`
}

// DefaultTLSFingerprintOptions returns the zero-configuration defaults:
// no endpoint (the source resolves with success=false until one is set),
// a 3000ms timeout per spec §4.5.
func DefaultTLSFingerprintOptions() TLSFingerprintOptions {
	return TLSFingerprintOptions{
		Endpoint:       "",
		TimeoutMS:      3000,
		Headers:        map[string]string{},
		RequestsPerSec: 5,
	}
}

// Config is the top-level collector configuration.
type Config struct {
	Browser BrowserOptions        `yaml:"browser"`
	TLS     TLSFingerprintOptions `yaml:"tls_fingerprint"`
	Logger  logger.Config         `yaml:"logger"`
}

// Default returns a Config with every section at its documented default.
func Default() Config {
	return Config{
		Browser: BrowserOptions{
			Headless:       true,
			WindowWidth:    1366,
			WindowHeight:   900,
			PoolSize:       4,
			AcquireTimeout: 30,
		},
		TLS:    DefaultTLSFingerprintOptions(),
		Logger: logger.DefaultConfig(),
	}
}

// LoadFromFile reads a YAML config file on top of Default, so fields absent
// from the file keep their defaults, then restores defaults for zero or
// empty window size, pool size, timeouts, request rate, headers and logger
// level/format/output. Other fields set to zero in the file stay zero.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv applies FPCORE_* environment variable overrides on top of an
// already-loaded Config, the same override pattern the teacher's bot config
// used for its EROSHIT_* variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("FPCORE_TLS_ENDPOINT"); v != "" {
		c.TLS.Endpoint = v
	}
	if v := os.Getenv("FPCORE_TLS_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TLS.TimeoutMS = n
		}
	}
	if v := os.Getenv("FPCORE_HEADLESS"); v != "" {
		c.Browser.Headless = v != "0" && v != "false"
	}
	if v := os.Getenv("FPCORE_LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = 1366
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = 900
	}
	if c.Browser.PoolSize <= 0 {
		c.Browser.PoolSize = 4
	}
	if c.Browser.AcquireTimeout <= 0 {
		c.Browser.AcquireTimeout = 30
	}
	if c.TLS.TimeoutMS <= 0 {
		c.TLS.TimeoutMS = 3000
	}
	if c.TLS.RequestsPerSec <= 0 {
		c.TLS.RequestsPerSec = 5
	}
	if c.TLS.Headers == nil {
		c.TLS.Headers = map[string]string{}
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
}

// Timeout returns the TLS-endpoint timeout as a time.Duration.
func (o TLSFingerprintOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutMS) * time.Millisecond
}
