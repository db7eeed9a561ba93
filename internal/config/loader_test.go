package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome points HOME at a temp dir and returns the allowed config dir
// inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(ConfigDirEnv, "")
	t.Setenv("GITHUB_TOKEN", "")

	dir := filepath.Join(home, ".config", "vibeguard")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	// WriteFile is subject to umask; force the mode under test.
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("failed to chmod config: %v", err)
	}
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `
server:
  port: 9191
  shutdown_timeout: 3s
ingest:
  max_zip_bytes: 4096
  max_file_bytes: 1024
  download_timeout: 45s
  fallback_branches: [develop]
  ignored_dirs:
    - fixtures
scanner:
  snippet_limit: 80
  extra_rules:
    - id: GO_UNSAFE
      severity: low
      message: unsafe package imported
      pattern: '"unsafe"'
      extensions: [".go"]
telemetry:
  service_name: vibeguard-test
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 3*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Ingest.MaxZipBytes != 4096 || cfg.Ingest.MaxFileBytes != 1024 {
		t.Errorf("Ingest limits = %d/%d, want 4096/1024", cfg.Ingest.MaxZipBytes, cfg.Ingest.MaxFileBytes)
	}
	if cfg.Ingest.DownloadTimeout.Duration() != 45*time.Second {
		t.Errorf("Ingest.DownloadTimeout = %v, want 45s", cfg.Ingest.DownloadTimeout)
	}
	if len(cfg.Ingest.FallbackBranches) != 1 || cfg.Ingest.FallbackBranches[0] != "develop" {
		t.Errorf("Ingest.FallbackBranches = %v, want [develop]", cfg.Ingest.FallbackBranches)
	}
	if len(cfg.Ingest.IgnoredDirs) != 1 || cfg.Ingest.IgnoredDirs[0] != "fixtures" {
		t.Errorf("Ingest.IgnoredDirs = %v, want [fixtures]", cfg.Ingest.IgnoredDirs)
	}
	if cfg.Scanner.SnippetLimit != 80 {
		t.Errorf("Scanner.SnippetLimit = %d, want 80", cfg.Scanner.SnippetLimit)
	}
	if len(cfg.Scanner.ExtraRules) != 1 {
		t.Fatalf("Scanner.ExtraRules = %v, want one rule", cfg.Scanner.ExtraRules)
	}
	if r := cfg.Scanner.ExtraRules[0]; r.ID != "GO_UNSAFE" || r.Severity != "low" || r.Extensions[0] != ".go" {
		t.Errorf("ExtraRules[0] = %+v", r)
	}
	if cfg.Telemetry.ServiceName != "vibeguard-test" {
		t.Errorf("Telemetry.ServiceName = %q, want vibeguard-test", cfg.Telemetry.ServiceName)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Scanner.MaxFileChars != 200_000 {
		t.Errorf("Scanner.MaxFileChars = %d, want default 200000", cfg.Scanner.MaxFileChars)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Metrics)
	}
}

func TestLoadWithFile_TOML(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
port = 9292
shutdown_timeout = "4s"

[ingest]
fallback_branches = ["trunk"]

[[scanner.extra_rules]]
id = "GO_UNSAFE"
severity = "low"
message = "unsafe package imported"
pattern = '"unsafe"'
extensions = [".go"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatalf("failed to chmod config: %v", err)
	}

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 9292 {
		t.Errorf("Server.Port = %d, want 9292", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 4*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 4s", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Ingest.FallbackBranches) != 1 || cfg.Ingest.FallbackBranches[0] != "trunk" {
		t.Errorf("Ingest.FallbackBranches = %v, want [trunk]", cfg.Ingest.FallbackBranches)
	}
	if len(cfg.Scanner.ExtraRules) != 1 || cfg.Scanner.ExtraRules[0].ID != "GO_UNSAFE" {
		t.Errorf("Scanner.ExtraRules = %+v, want GO_UNSAFE", cfg.Scanner.ExtraRules)
	}
}

func TestParserFor(t *testing.T) {
	if _, ok := parserFor("/etc/vibeguard/config.TOML").(tomlParser); !ok {
		t.Error("parserFor(.TOML) should select the TOML parser")
	}
	if _, ok := parserFor("/etc/vibeguard/config.yml").(tomlParser); ok {
		t.Error("parserFor(.yml) should select the YAML parser")
	}
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Ingest.GitHubAPIURL != "https://api.github.com/" {
		t.Errorf("Ingest.GitHubAPIURL = %q", cfg.Ingest.GitHubAPIURL)
	}
}

func TestLoadWithFile_DefaultPath(t *testing.T) {
	dir := setupTestHome(t)
	writeConfig(t, dir, "server:\n  port: 7000\n", 0600)

	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 7000\ningest:\n  max_files: 10\n", 0600)

	t.Setenv("VIBEGUARD_SERVER_PORT", "7100")
	t.Setenv("VIBEGUARD_INGEST_MAX_FILES", "20")
	t.Setenv("VIBEGUARD_INGEST_DOWNLOAD_TIMEOUT", "5s")
	t.Setenv("VIBEGUARD_INGEST_FALLBACK_BRANCHES", "master,develop")
	t.Setenv("VIBEGUARD_TELEMETRY_SAMPLING_RATE", "0.25")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Server.Port = %d, want 7100", cfg.Server.Port)
	}
	if cfg.Ingest.MaxFiles != 20 {
		t.Errorf("Ingest.MaxFiles = %d, want 20", cfg.Ingest.MaxFiles)
	}
	if cfg.Ingest.DownloadTimeout.Duration() != 5*time.Second {
		t.Errorf("Ingest.DownloadTimeout = %v, want 5s", cfg.Ingest.DownloadTimeout)
	}
	if strings.Join(cfg.Ingest.FallbackBranches, ",") != "master,develop" {
		t.Errorf("Ingest.FallbackBranches = %v", cfg.Ingest.FallbackBranches)
	}
	if cfg.Telemetry.SamplingRate != 0.25 {
		t.Errorf("Telemetry.SamplingRate = %v, want 0.25", cfg.Telemetry.SamplingRate)
	}
}

func TestLoadWithFile_GitHubToken(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "absent.yaml")

	t.Run("falls back to GITHUB_TOKEN", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "ghp_fromenv")
		cfg, err := LoadWithFile(path)
		if err != nil {
			t.Fatalf("LoadWithFile() error = %v", err)
		}
		if cfg.Ingest.GitHubToken.Value() != "ghp_fromenv" {
			t.Errorf("GitHubToken = %q, want ghp_fromenv", cfg.Ingest.GitHubToken.Value())
		}
	})

	t.Run("prefixed variable wins", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "ghp_fromenv")
		t.Setenv("VIBEGUARD_INGEST_GITHUB_TOKEN", "ghp_prefixed")
		cfg, err := LoadWithFile(path)
		if err != nil {
			t.Fatalf("LoadWithFile() error = %v", err)
		}
		if cfg.Ingest.GitHubToken.Value() != "ghp_prefixed" {
			t.Errorf("GitHubToken = %q, want ghp_prefixed", cfg.Ingest.GitHubToken.Value())
		}
	})
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	dir := setupTestHome(t)

	for _, perm := range []os.FileMode{0644, 0640, 0604} {
		t.Run(perm.String(), func(t *testing.T) {
			path := writeConfig(t, dir, "server:\n  port: 7000\n", perm)
			_, err := LoadWithFile(path)
			if err == nil || !strings.Contains(err.Error(), "insecure config file permissions") {
				t.Errorf("LoadWithFile() error = %v, want permissions error", err)
			}
		})
	}

	t.Run("read-only is accepted", func(t *testing.T) {
		path := writeConfig(t, dir, "server:\n  port: 7000\n", 0400)
		if _, err := LoadWithFile(path); err != nil {
			t.Errorf("LoadWithFile() error = %v", err)
		}
	})
}

func TestLoadWithFile_TooLarge(t *testing.T) {
	dir := setupTestHome(t)
	content := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	path := writeConfig(t, dir, content, 0600)

	_, err := LoadWithFile(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("LoadWithFile() error = %v, want size error", err)
	}
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server: [unclosed\n", 0600)

	if _, err := LoadWithFile(path); err == nil {
		t.Error("LoadWithFile() error = nil, want parse error")
	}
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "ingest:\n  max_zip_bytes: 100\n  max_file_bytes: 200\n", 0600)

	_, err := LoadWithFile(path)
	if err == nil || !strings.Contains(err.Error(), "exceeds ingest.max_zip_bytes") {
		t.Errorf("LoadWithFile() error = %v, want limit validation error", err)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	setupTestHome(t)
	t.Setenv("VIBEGUARD_SCANNER_WORKERS", "3")
	t.Setenv("VIBEGUARD_RATELIMIT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scanner.Workers != 3 {
		t.Errorf("Scanner.Workers = %d, want 3", cfg.Scanner.Workers)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = true, want false")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"VIBEGUARD_SERVER_PORT":               "server.port",
		"VIBEGUARD_INGEST_MAX_ZIP_BYTES":      "ingest.max_zip_bytes",
		"VIBEGUARD_TELEMETRY_TLS_SKIP_VERIFY": "telemetry.tls_skip_verify",
		"VIBEGUARD_DEBUG":                     "debug",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateConfigPath(t *testing.T) {
	dir := setupTestHome(t)
	extra := t.TempDir()
	t.Setenv(ConfigDirEnv, extra)

	valid := []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "nested", "config.yaml"),
		"/etc/vibeguard/config.yaml",
		filepath.Join(extra, "config.yaml"),
	}
	for _, p := range valid {
		if err := validateConfigPath(p); err != nil {
			t.Errorf("validateConfigPath(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{
		"/etc/passwd",
		"/tmp/config.yaml",
		"/etc/vibeguard../etc/passwd",
		filepath.Join(dir, "..", "..", "config.yaml"),
		"/etc/vibeguard",
	}
	for _, p := range invalid {
		if err := validateConfigPath(p); err == nil {
			t.Errorf("validateConfigPath(%q) = nil, want error", p)
		}
	}
}

func TestValidateConfigPath_SymlinkEscape(t *testing.T) {
	dir := setupTestHome(t)
	outside := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(outside, []byte("server:\n  port: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.yaml")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if err := validateConfigPath(link); err == nil {
		t.Error("validateConfigPath() accepted a symlink leaving the config dir")
	}
}
