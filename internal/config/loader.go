package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "VIBEGUARD_"

	// ConfigDirEnv names an extra directory config files may be loaded from.
	ConfigDirEnv = EnvPrefix + "CONFIG_DIR"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load returns the defaults overridden by VIBEGUARD_* environment variables.
func Load() (*Config, error) {
	return load(koanf.New("."))
}

// LoadWithFile loads configPath, then applies environment overrides on
// top. Files ending in .toml are parsed as TOML, everything else as YAML.
//
// An empty configPath means DefaultPath(). A missing file is not an error.
//
// # Security Considerations
//
// The file must live under ~/.config/vibeguard/, /etc/vibeguard/ or the
// directory named by VIBEGUARD_CONFIG_DIR, after symlinks are resolved.
// It must not be readable by group or others, and is limited to 1MB.
//
// # Environment Variable Mapping
//
// The prefix is stripped and the first underscore separates section from
// key:
//
//	VIBEGUARD_SERVER_PORT           -> server.port
//	VIBEGUARD_INGEST_MAX_ZIP_BYTES  -> ingest.max_zip_bytes
//	VIBEGUARD_TELEMETRY_SAMPLING_RATE -> telemetry.sampling_rate
//
// GITHUB_TOKEN is honored when ingest.github_token is otherwise unset.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Validate the opened descriptor, not the path, to avoid a TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(content) > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large (max %d bytes)", maxConfigFileSize)
		}

		if err := k.Load(rawbytes.Provider(content), parserFor(configPath)); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	return load(k)
}

// parserFor picks the file format from the extension. Anything other than
// .toml is read as YAML.
func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return tomlParser{}
	}
	return yaml.Parser()
}

func load(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal over the defaults so absent keys keep their default.
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps VIBEGUARD_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// applyDefaults fills values that come from outside the koanf layers.
func applyDefaults(cfg *Config) {
	if !cfg.Ingest.GitHubToken.IsSet() {
		cfg.Ingest.GitHubToken = Secret(os.Getenv("GITHUB_TOKEN"))
	}
	if !strings.HasSuffix(cfg.Ingest.GitHubAPIURL, "/") {
		cfg.Ingest.GitHubAPIURL += "/"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "vibeguard"
	}
}

// DefaultPath returns the config file used when none is given:
// $VIBEGUARD_CONFIG_DIR/config.yaml if set, else ~/.config/vibeguard/config.yaml.
func DefaultPath() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vibeguard", "config.yaml"), nil
}

func allowedConfigDirs() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs := []string{
		filepath.Join(home, ".config", "vibeguard"),
		"/etc/vibeguard",
	}
	if extra := os.Getenv(ConfigDirEnv); extra != "" {
		abs, err := filepath.Abs(extra)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", ConfigDirEnv, err)
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

// validateConfigPath checks that path resolves inside an allowed directory.
// It runs whether or not the file exists.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so a link cannot escape the allowed directories.
	// Paths that do not exist yet are checked as given.
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolved = absPath
	}

	dirs, err := allowedConfigDirs()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if within(dir, resolved) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/vibeguard/, /etc/vibeguard/ or $%s", ConfigDirEnv)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// validateConfigFileProperties checks permissions and size on an open file.
func validateConfigFileProperties(info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("config path is not a regular file")
	}

	// Windows has a different permission model.
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
