// Package config loads vibeguard settings.
//
// Values come from three layers, highest precedence first:
//
//  1. VIBEGUARD_* environment variables
//  2. an optional YAML file (see LoadWithFile)
//  3. the defaults returned by Default
//
// Every section is flat so that each key has exactly one environment
// spelling: VIBEGUARD_<SECTION>_<KEY>, e.g. VIBEGUARD_INGEST_MAX_ZIP_BYTES
// sets ingest.max_zip_bytes.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
)

// Config holds the complete vibeguard configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Scanner   ScannerConfig   `koanf:"scanner"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// BodyLimit uses echo's size syntax ("64K", "1M").
	BodyLimit       string   `koanf:"body_limit"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IngestConfig holds archive download and extraction settings.
type IngestConfig struct {
	MaxZipBytes     int64    `koanf:"max_zip_bytes"`
	MaxFileBytes    int64    `koanf:"max_file_bytes"`
	MaxFiles        int      `koanf:"max_files"`
	DownloadTimeout Duration `koanf:"download_timeout"`
	// FallbackBranches replaces the built-in list when set.
	FallbackBranches []string `koanf:"fallback_branches"`
	// IgnoredDirs is added to the built-in list.
	IgnoredDirs  []string `koanf:"ignored_dirs"`
	GitHubAPIURL string   `koanf:"github_api_url"`
	GitHubToken  Secret   `koanf:"github_token"`
	UserAgent    string   `koanf:"user_agent"`
}

// Limits converts the section into the ingest package's Config.
func (c IngestConfig) Limits() ingest.Config {
	return ingest.Config{
		MaxZipBytes:      c.MaxZipBytes,
		MaxFileBytes:     c.MaxFileBytes,
		MaxFiles:         c.MaxFiles,
		DownloadTimeout:  c.DownloadTimeout.Duration(),
		FallbackBranches: c.FallbackBranches,
		IgnoredDirs:      c.IgnoredDirs,
	}
}

// ScannerConfig holds engine limits and operator-supplied rules.
type ScannerConfig struct {
	MaxFileChars int `koanf:"max_file_chars"`
	SnippetLimit int `koanf:"snippet_limit"`
	Workers      int `koanf:"workers"`
	// ExtraRules are appended after the built-in rules.
	ExtraRules []scanner.Rule `koanf:"extra_rules"`
}

// Engine converts the section into the scanner package's Config.
func (c ScannerConfig) Engine() scanner.Config {
	return scanner.Config{
		MaxFileChars: c.MaxFileChars,
		SnippetLimit: c.SnippetLimit,
		Workers:      c.Workers,
	}
}

// RateLimitConfig controls per-client request limiting on the scan endpoint.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// LoggingConfig holds the operator-facing logging knobs. The logging
// package owns the full configuration; these fields are mapped onto it.
type LoggingConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	OTEL      bool   `koanf:"otel"`
	Sampling  bool   `koanf:"sampling"`
	Redaction bool   `koanf:"redaction"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	TLSSkipVerify   bool     `koanf:"tls_skip_verify"`
	ServiceName     string   `koanf:"service_name"`
	ServiceVersion  string   `koanf:"service_version"`
	SamplingRate    float64  `koanf:"sampling_rate"`
	MetricsEnabled  bool     `koanf:"metrics_enabled"`
	ExportInterval  Duration `koanf:"export_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			BodyLimit:       "64K",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Ingest: IngestConfig{
			MaxZipBytes:     ingest.DefaultMaxZipBytes,
			MaxFileBytes:    ingest.DefaultMaxFileBytes,
			MaxFiles:        ingest.DefaultMaxFiles,
			DownloadTimeout: Duration(ingest.DefaultDownloadTimeout),
			GitHubAPIURL:    "https://api.github.com/",
			UserAgent:       "vibeguard",
		},
		Scanner: ScannerConfig{
			MaxFileChars: scanner.DefaultMaxFileChars,
			SnippetLimit: scanner.DefaultSnippetLimit,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   5,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Sampling:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Telemetry: TelemetryConfig{
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
			ServiceName:     "vibeguard",
			ServiceVersion:  "dev",
			SamplingRate:    1.0,
			MetricsEnabled:  true,
			ExportInterval:  Duration(15 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	in := c.Ingest
	if in.MaxZipBytes <= 0 {
		errs = append(errs, errors.New("ingest.max_zip_bytes must be positive"))
	}
	if in.MaxFileBytes <= 0 {
		errs = append(errs, errors.New("ingest.max_file_bytes must be positive"))
	}
	if in.MaxFileBytes > in.MaxZipBytes {
		errs = append(errs, fmt.Errorf("ingest.max_file_bytes (%d) exceeds ingest.max_zip_bytes (%d)", in.MaxFileBytes, in.MaxZipBytes))
	}
	if in.MaxFiles <= 0 {
		errs = append(errs, errors.New("ingest.max_files must be positive"))
	}
	if in.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("ingest.download_timeout must be positive"))
	}
	if u, err := url.Parse(in.GitHubAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("ingest.github_api_url: invalid URL %q", in.GitHubAPIURL))
	}
	for _, b := range in.FallbackBranches {
		if strings.TrimSpace(b) == "" {
			errs = append(errs, errors.New("ingest.fallback_branches: empty branch name"))
			break
		}
	}

	if c.Scanner.MaxFileChars <= 0 {
		errs = append(errs, errors.New("scanner.max_file_chars must be positive"))
	}
	if c.Scanner.SnippetLimit <= 0 {
		errs = append(errs, errors.New("scanner.snippet_limit must be positive"))
	}
	if c.Scanner.Workers < 0 {
		errs = append(errs, errors.New("scanner.workers cannot be negative"))
	}
	for _, r := range c.Scanner.ExtraRules {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("scanner.extra_rules: %w", err))
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("ratelimit.rps and ratelimit.burst must be positive when enabled"))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			errs = append(errs, fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol))
		}
	}

	return errors.Join(errs...)
}
