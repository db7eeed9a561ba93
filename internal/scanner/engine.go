package scanner

import (
	"path"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxFileChars is the content length above which only secret
	// rules are evaluated.
	DefaultMaxFileChars = 200_000

	// DefaultSnippetLimit is the maximum snippet length before the
	// truncation marker is appended.
	DefaultSnippetLimit = 160

	truncationMarker = "..."
)

// Config tunes the scanning engine.
type Config struct {
	MaxFileChars int `koanf:"max_file_chars"`
	SnippetLimit int `koanf:"snippet_limit"`
	// Workers bounds how many files are scanned concurrently.
	// Zero means GOMAXPROCS.
	Workers int `koanf:"workers"`
}

// DefaultConfig returns the standard engine limits.
func DefaultConfig() Config {
	return Config{
		MaxFileChars: DefaultMaxFileChars,
		SnippetLimit: DefaultSnippetLimit,
	}
}

// Engine evaluates a Catalog against source files. It holds no mutable
// state, so one Engine can serve any number of concurrent scans.
type Engine struct {
	catalog *Catalog
	cfg     Config
}

// NewEngine creates an engine. Non-positive limits fall back to defaults.
func NewEngine(catalog *Catalog, cfg Config) *Engine {
	if catalog == nil {
		catalog = MustNewCatalog(DefaultRules())
	}
	if cfg.MaxFileChars <= 0 {
		cfg.MaxFileChars = DefaultMaxFileChars
	}
	if cfg.SnippetLimit <= 0 {
		cfg.SnippetLimit = DefaultSnippetLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{catalog: catalog, cfg: cfg}
}

// Catalog returns the rules the engine evaluates.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Scan returns the findings for all files. Files are scanned in parallel
// but results are concatenated in input order, so the output is
// deterministic. Scan never fails; an empty input yields an empty slice.
func (e *Engine) Scan(files []ingest.SourceFile) []Finding {
	if len(files) == 0 {
		return []Finding{}
	}

	perFile := make([][]Finding, len(files))
	if len(files) == 1 || e.cfg.Workers == 1 {
		for i, f := range files {
			perFile[i] = e.ScanFile(f)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.cfg.Workers)
		for i, f := range files {
			g.Go(func() error {
				perFile[i] = e.ScanFile(f)
				return nil
			})
		}
		_ = g.Wait() // workers never return errors
	}

	total := 0
	for _, fs := range perFile {
		total += len(fs)
	}
	findings := make([]Finding, 0, total)
	for _, fs := range perFile {
		findings = append(findings, fs...)
	}
	return findings
}

// ScanFile returns the findings for one file in ascending line order.
func (e *Engine) ScanFile(f ingest.SourceFile) []Finding {
	if f.Content == "" {
		return nil
	}

	rules := e.catalog.all
	if e.oversized(f.Content) {
		rules = e.catalog.secrets
	}

	ext := extension(f.Path)
	candidates := make([]*compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.appliesTo(ext) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	var findings []Finding
	lineNo := 0
	rest := f.Content
	for len(rest) > 0 {
		var line string
		line, rest = nextLine(rest)
		lineNo++

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		for _, r := range candidates {
			if r.pattern.MatchString(line) {
				findings = append(findings, Finding{
					RuleID:   r.ID,
					Severity: r.Severity,
					Message:  r.Message,
					Path:     f.Path,
					Line:     lineNo,
					Snippet:  snippet(trimmed, e.cfg.SnippetLimit),
				})
				break
			}
		}
	}
	return findings
}

func (e *Engine) oversized(content string) bool {
	if len(content) <= e.cfg.MaxFileChars {
		return false
	}
	return utf8.RuneCountInString(content) > e.cfg.MaxFileChars
}

// isLineBreak reports the line boundaries: \n, \r, \v, \f, the file,
// group and record separators, NEL, and the Unicode line and paragraph
// separators.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}

// nextLine splits off the first line. \r\n counts as one break.
func nextLine(s string) (line, rest string) {
	i := strings.IndexFunc(s, isLineBreak)
	if i < 0 {
		return s, ""
	}
	if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
		return s[:i], s[i+2:]
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[:i], s[i+size:]
}

// snippet cuts s to limit characters, appending the truncation marker when
// anything was removed.
func snippet(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + truncationMarker
		}
		n++
	}
	return s
}

// extension returns the lower-cased extension of the file name. Leading
// dots do not start an extension, so ".env" has none.
func extension(p string) string {
	base := strings.TrimLeft(path.Base(p), ".")
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(base[i:])
}
