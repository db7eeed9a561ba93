package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"zip cap", func(c *Config) { c.Ingest.MaxZipBytes = 0 }, "max_zip_bytes"},
		{"file cap above zip cap", func(c *Config) { c.Ingest.MaxFileBytes = c.Ingest.MaxZipBytes + 1 }, "exceeds"},
		{"max files", func(c *Config) { c.Ingest.MaxFiles = -1 }, "max_files"},
		{"download timeout", func(c *Config) { c.Ingest.DownloadTimeout = 0 }, "download_timeout"},
		{"api url", func(c *Config) { c.Ingest.GitHubAPIURL = "ftp://x" }, "github_api_url"},
		{"blank fallback", func(c *Config) { c.Ingest.FallbackBranches = []string{" "} }, "fallback_branches"},
		{"max chars", func(c *Config) { c.Scanner.MaxFileChars = 0 }, "max_file_chars"},
		{"snippet limit", func(c *Config) { c.Scanner.SnippetLimit = -5 }, "snippet_limit"},
		{"workers", func(c *Config) { c.Scanner.Workers = -1 }, "workers"},
		{"bad extra rule", func(c *Config) {
			c.Scanner.ExtraRules = []scanner.Rule{{ID: "X", Severity: "urgent", Message: "m", Pattern: "x"}}
		}, "extra_rules"},
		{"rate limit", func(c *Config) { c.RateLimit.RPS = 0 }, "ratelimit"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"telemetry protocol", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Protocol = "thrift"
		}, "telemetry.protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Scanner.SnippetLimit = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"server.port", "scanner.snippet_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() = %v, missing %q", err, want)
		}
	}
}

func TestValidate_DisabledSectionsSkipChecks(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.RPS = 0
	cfg.Metrics.Enabled = false
	cfg.Metrics.Path = ""
	cfg.Telemetry.Protocol = "unknown"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestSectionConversions(t *testing.T) {
	cfg := Default()
	cfg.Ingest.DownloadTimeout = Duration(12 * time.Second)
	cfg.Ingest.IgnoredDirs = []string{"fixtures"}
	cfg.Scanner.Workers = 4

	limits := cfg.Ingest.Limits()
	if limits.DownloadTimeout != 12*time.Second {
		t.Errorf("Limits().DownloadTimeout = %v, want 12s", limits.DownloadTimeout)
	}
	if limits.MaxZipBytes != cfg.Ingest.MaxZipBytes || limits.MaxFiles != cfg.Ingest.MaxFiles {
		t.Errorf("Limits() = %+v, does not mirror section", limits)
	}
	if len(limits.IgnoredDirs) != 1 {
		t.Errorf("Limits().IgnoredDirs = %v", limits.IgnoredDirs)
	}

	engine := cfg.Scanner.Engine()
	if engine.Workers != 4 || engine.SnippetLimit != scanner.DefaultSnippetLimit {
		t.Errorf("Engine() = %+v", engine)
	}

	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8080", got)
	}
}

func TestSecret_NeverPrintsValue(t *testing.T) {
	s := Secret("ghp_supersecret")

	outputs := []string{
		s.String(),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%s", s),
		fmt.Sprintf("%#v", s),
		fmt.Sprintf("%+v", struct{ Token Secret }{s}),
	}
	b, err := json.Marshal(struct{ Token Secret }{s})
	if err != nil {
		t.Fatal(err)
	}
	outputs = append(outputs, string(b))

	for _, out := range outputs {
		if strings.Contains(out, "supersecret") {
			t.Errorf("secret leaked in %q", out)
		}
	}
	if s.Value() != "ghp_supersecret" {
		t.Errorf("Value() = %q", s.Value())
	}
	if !s.IsSet() || Secret("").IsSet() {
		t.Error("IsSet() mismatch")
	}
	if Secret("").String() != "" {
		t.Error("empty secret should print empty")
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", d.Duration())
	}

	if err := d.UnmarshalText([]byte("-1s")); err == nil {
		t.Error("UnmarshalText(-1s) = nil, want error")
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("UnmarshalText(soon) = nil, want error")
	}

	b, err := json.Marshal(Duration(2 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2s"` {
		t.Errorf("MarshalJSON() = %s, want \"2s\"", b)
	}
}
