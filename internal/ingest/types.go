package ingest

import (
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/repoid"
)

const (
	// DefaultMaxZipBytes caps the downloaded archive size (20 MiB).
	DefaultMaxZipBytes int64 = 20 << 20

	// DefaultMaxFileBytes caps a single extracted file (1 MiB).
	DefaultMaxFileBytes int64 = 1 << 20

	// DefaultMaxFiles caps how many files one ingestion returns.
	DefaultMaxFiles = 5000

	// DefaultDownloadTimeout bounds one download attempt.
	DefaultDownloadTimeout = 30 * time.Second

	// TruncatedMaxFiles is the truncation reason when MaxFiles was reached.
	TruncatedMaxFiles = "max_files"
)

// SourceFile is one decoded text file from the archive.
type SourceFile struct {
	// Path is repo-relative with forward slashes (subpath prefix removed).
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Stats counts entries at each filtering stage. After every ingestion
// FilesRead <= FilesIncluded <= FilesConsidered.
type Stats struct {
	FilesConsidered int `json:"files_considered" yaml:"files_considered"`
	FilesIncluded   int `json:"files_included" yaml:"files_included"`
	FilesRead       int `json:"files_read" yaml:"files_read"`
}

// FilesPayload is the result of a successful ingestion.
type FilesPayload struct {
	Repo             repoid.Identifier
	Files            []SourceFile
	Stats            Stats
	Truncated        bool
	TruncationReason string
}

// Config holds ingestion limits.
type Config struct {
	MaxZipBytes  int64
	MaxFileBytes int64
	// MaxFiles stops extraction once this many files were included.
	// Zero disables the cap.
	MaxFiles int
	// DownloadTimeout is used when Ingest is called with a zero timeout.
	DownloadTimeout time.Duration
	// FallbackBranches are tried in order when the default ref is missing.
	FallbackBranches []string
	// IgnoredDirs extends the built-in ignored directory set.
	IgnoredDirs []string
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		MaxZipBytes:      DefaultMaxZipBytes,
		MaxFileBytes:     DefaultMaxFileBytes,
		MaxFiles:         DefaultMaxFiles,
		DownloadTimeout:  DefaultDownloadTimeout,
		FallbackBranches: []string{"master", "trunk"},
	}
}

func (c *Config) applyDefaults() {
	if c.MaxZipBytes <= 0 {
		c.MaxZipBytes = DefaultMaxZipBytes
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = DefaultMaxFileBytes
	}
	if c.MaxFiles < 0 {
		c.MaxFiles = 0
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}
	if c.FallbackBranches == nil {
		c.FallbackBranches = DefaultConfig().FallbackBranches
	}
}
