package logging

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/config"
	"go.uber.org/zap/zapcore"
)

// Config is the full logger configuration. Operators only see the flat
// config.LoggingConfig section; FromSettings maps it onto these defaults.
type Config struct {
	Level  zapcore.Level
	Format string // "json" or "console"
	Output OutputConfig
	// Sampling applies per level. Error and above always pass.
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace StacktraceConfig
	// Fields are attached to every entry.
	Fields    map[string]string
	Redaction RedactionConfig
}

// OutputConfig selects sinks. WithWriter redirects the stdout sink.
type OutputConfig struct {
	Stdout bool
	OTEL   bool
}

// SamplingConfig drops repeated messages within each tick.
type SamplingConfig struct {
	Enabled bool
	Tick    config.Duration
	Levels  map[zapcore.Level]LevelSamplingConfig
}

// LevelSamplingConfig lets the first Initial entries with one message
// through per tick, then every Thereafter-th. Zero Thereafter drops the rest.
type LevelSamplingConfig struct {
	Initial    int
	Thereafter int
}

type CallerConfig struct {
	Enabled bool
	Skip    int
}

// StacktraceConfig attaches stacks at Level and above.
type StacktraceConfig struct {
	Level zapcore.Level
}

// RedactionConfig masks values under sensitive keys and substrings that
// match Patterns, in every encoded entry.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

const maxPatternLen = 200

// sensitiveKeys never reach the output in clear text.
var sensitiveKeys = []string{
	"password", "secret", "token", "api_key", "github_token",
	"authorization", "bearer", "credential", "private_key",
}

// credentialPatterns catch tokens that end up inside free-form strings,
// such as an error echoing a request header.
var credentialPatterns = []string{
	`(?i)bearer\s+\S+`,
	`(?i)token\s+[A-Za-z0-9_]{20,}`,
	`\b(?:gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{22,})\b`,
}

// NewDefaultConfig returns JSON on stdout, sampled and redacted, at info.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Stdout: true},
		Sampling: SamplingConfig{
			Enabled: true,
			Tick:    config.Duration(time.Second),
			Levels:  DefaultLevelSamplingConfig(),
		},
		Caller:     CallerConfig{Enabled: true, Skip: 1},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Fields:     map[string]string{"service": "vibeguard"},
		Redaction: RedactionConfig{
			Enabled:  true,
			Fields:   append([]string(nil), sensitiveKeys...),
			Patterns: append([]string(nil), credentialPatterns...),
		},
	}
}

// DefaultLevelSamplingConfig keeps warnings nearly intact and thins out
// per-file debug chatter hardest.
func DefaultLevelSamplingConfig() map[zapcore.Level]LevelSamplingConfig {
	return map[zapcore.Level]LevelSamplingConfig{
		TraceLevel:         {Initial: 1},
		zapcore.DebugLevel: {Initial: 10},
		zapcore.InfoLevel:  {Initial: 100, Thereafter: 10},
		zapcore.WarnLevel:  {Initial: 100, Thereafter: 100},
	}
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("format must be json or console, got %q", c.Format))
	}
	if !c.Output.Stdout && !c.Output.OTEL {
		errs = append(errs, errors.New("at least one output must be enabled (stdout or otel)"))
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			errs = append(errs, errors.New("sampling tick must be positive"))
		}
		for lvl, s := range c.Sampling.Levels {
			if s.Initial < 0 || s.Thereafter < 0 {
				errs = append(errs, fmt.Errorf("sampling for %s: initial and thereafter must be >= 0", levelName(lvl)))
			}
		}
	}
	if c.Caller.Enabled && c.Caller.Skip < 0 {
		errs = append(errs, fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip))
	}
	if c.Redaction.Enabled {
		for _, p := range c.Redaction.Patterns {
			if len(p) > maxPatternLen {
				errs = append(errs, fmt.Errorf("redaction pattern too long (max %d chars)", maxPatternLen))
				continue
			}
			if _, err := regexp.Compile(p); err != nil {
				errs = append(errs, fmt.Errorf("invalid redaction pattern %q: %w", p, err))
			}
		}
	}
	for k, v := range c.Fields {
		switch {
		case k == "":
			errs = append(errs, errors.New("field key cannot be empty"))
		case v == "":
			errs = append(errs, fmt.Errorf("field %q has empty value", k))
		}
	}

	return errors.Join(errs...)
}

// FromSettings applies the operator-facing logging section to the defaults.
func FromSettings(s config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()
	if s.Level != "" {
		lvl, err := LevelFromString(s.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		cfg.Level = lvl
	}
	if s.Format != "" {
		cfg.Format = s.Format
	}
	cfg.Output.OTEL = s.OTEL
	cfg.Sampling.Enabled = s.Sampling
	cfg.Redaction.Enabled = s.Redaction
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
