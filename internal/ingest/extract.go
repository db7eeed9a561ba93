package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fyrsmithlabs/vibeguard/internal/repoid"
	"github.com/klauspost/compress/zip"
)

// defaultIgnoredDirs are directories whose contents are never scanned:
// version control metadata, dependency trees, build output, caches and
// editor state.
var defaultIgnoredDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	"node_modules":  true,
	"vendor":        true,
	"dist":          true,
	"build":         true,
	"target":        true,
	"out":           true,
	".venv":         true,
	"venv":          true,
	"__pycache__":   true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".tox":          true,
	".next":         true,
	".nuxt":         true,
	".cache":        true,
	"coverage":      true,
	".idea":         true,
	".vscode":       true,
	".gradle":       true,
}

// IgnoredDirs returns the built-in ignored directory names.
func IgnoredDirs() []string {
	out := make([]string, 0, len(defaultIgnoredDirs))
	for d := range defaultIgnoredDirs {
		out = append(out, d)
	}
	return out
}

// extractor filters archive entries down to readable text files.
type extractor struct {
	maxFileBytes int64
	maxFiles     int
	ignored      map[string]bool
}

func newExtractor(cfg Config) *extractor {
	ignored := make(map[string]bool, len(defaultIgnoredDirs)+len(cfg.IgnoredDirs))
	for d := range defaultIgnoredDirs {
		ignored[d] = true
	}
	for _, d := range cfg.IgnoredDirs {
		if d = strings.Trim(d, "/"); d != "" {
			ignored[d] = true
		}
	}
	return &extractor{
		maxFileBytes: cfg.MaxFileBytes,
		maxFiles:     cfg.MaxFiles,
		ignored:      ignored,
	}
}

// extract reads a zip snapshot. Stats are accumulated per entry and returned
// on the payload; on error nothing is returned.
func (x *extractor) extract(archive []byte, id repoid.Identifier) (*FilesPayload, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading archive: %v", ErrIngest, err)
	}

	payload := &FilesPayload{
		Repo:  id,
		Files: make([]SourceFile, 0, min(len(zr.File), 1024)),
	}
	stats := &payload.Stats

	for _, entry := range zr.File {
		if x.maxFiles > 0 && stats.FilesIncluded >= x.maxFiles {
			payload.Truncated = true
			payload.TruncationReason = TruncatedMaxFiles
			break
		}
		stats.FilesConsidered++

		rel, ok := x.relativePath(entry, id.Subpath)
		if !ok {
			continue
		}
		if entry.UncompressedSize64 > uint64(x.maxFileBytes) {
			continue
		}

		data, err := x.readEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrIngest, entry.Name, err)
		}
		if int64(len(data)) > x.maxFileBytes || IsBinary(data) {
			continue
		}
		stats.FilesIncluded++

		payload.Files = append(payload.Files, SourceFile{
			Path:    rel,
			Content: decodeText(data),
		})
		stats.FilesRead++
	}

	return payload, nil
}

// relativePath applies the path based filters: directories, the archive
// wrapper directory, the subpath and ignored directories. Ignored names are
// matched below the subpath only, so a subpath inside "build/" still scans.
// It returns the path to report for the entry.
func (x *extractor) relativePath(entry *zip.File, subpath string) (string, bool) {
	name := strings.ReplaceAll(entry.Name, `\`, "/")
	if entry.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
		return "", false
	}

	// Snapshot archives wrap everything in "<repo>-<sha>/".
	_, rel, found := strings.Cut(name, "/")
	if !found || rel == "" {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
	}

	switch {
	case subpath == "":
	case rel == subpath:
		// The subpath names a single file.
		return rel[strings.LastIndex(rel, "/")+1:], true
	default:
		var ok bool
		if rel, ok = strings.CutPrefix(rel, subpath+"/"); !ok {
			return "", false
		}
	}

	dirs := strings.Split(rel, "/")
	for _, seg := range dirs[:len(dirs)-1] {
		if x.ignored[seg] {
			return "", false
		}
	}
	return rel, true
}

// readEntry reads at most maxFileBytes+1 bytes so a lying size header is
// still detected.
func (x *extractor) readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, x.maxFileBytes+1))
}
