package scanner

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity ranks how serious a finding is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities so callers can apply thresholds. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q (want low, medium or high)", v)
	}
	return s, nil
}

// Rule defines one pattern-matching policy.
type Rule struct {
	// ID is the unique identifier reported in findings.
	ID string `koanf:"id" json:"id" yaml:"id"`

	// Severity is one of low, medium, high.
	Severity Severity `koanf:"severity" json:"severity" yaml:"severity"`

	// Message is the human readable explanation attached to each finding.
	Message string `koanf:"message" json:"message" yaml:"message"`

	// Pattern is an RE2 expression searched for anywhere in a line.
	Pattern string `koanf:"pattern" json:"pattern" yaml:"pattern"`

	// Extensions limits the rule to files with these extensions
	// (".py", ".js"). Empty means every file.
	Extensions []string `koanf:"extensions" json:"extensions,omitempty" yaml:"extensions,omitempty"`

	// CaseSensitive disables the default case-insensitive matching.
	CaseSensitive bool `koanf:"case_sensitive" json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`

	// Secret marks credential-detection rules kept in degraded mode.
	Secret bool `koanf:"secret" json:"secret,omitempty" yaml:"secret,omitempty"`
}

// Validate checks the descriptor without compiling it.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule ID is required")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
	}
	if r.Message == "" {
		return fmt.Errorf("rule %s: message is required", r.ID)
	}
	if r.Pattern == "" {
		return fmt.Errorf("rule %s: pattern is required", r.ID)
	}
	for _, ext := range r.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("rule %s: extension %q must start with a dot", r.ID, ext)
		}
	}
	return nil
}

// compiledRule is a validated rule ready for matching.
type compiledRule struct {
	Rule
	pattern    *regexp.Regexp
	extensions map[string]struct{}
}

func compileRule(r Rule) (*compiledRule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	expr := r.Pattern
	if !r.CaseSensitive {
		expr = "(?i)" + expr
	}
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
	}

	c := &compiledRule{Rule: r, pattern: pattern}
	if len(r.Extensions) > 0 {
		c.extensions = make(map[string]struct{}, len(r.Extensions))
		for _, ext := range r.Extensions {
			c.extensions[strings.ToLower(ext)] = struct{}{}
		}
	}
	return c, nil
}

// appliesTo reports whether the rule is a candidate for a file with the
// given lower-cased extension.
func (c *compiledRule) appliesTo(ext string) bool {
	if c.extensions == nil {
		return true
	}
	_, ok := c.extensions[ext]
	return ok
}
