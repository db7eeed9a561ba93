package ingest

import (
	"errors"
)

// Retrieval failures. Every error returned by Ingest wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrNotFound means the repository or ref does not exist (or is private).
	ErrNotFound = errors.New("repository or ref not found")

	// ErrDownloadTimeout means an attempt exceeded its deadline.
	ErrDownloadTimeout = errors.New("archive download timed out")

	// ErrTooLarge means the archive exceeds the configured byte cap.
	ErrTooLarge = errors.New("archive too large")

	// ErrFetch covers transport failures, rate limiting and unexpected
	// HTTP statuses.
	ErrFetch = errors.New("archive fetch failed")

	// ErrIngest covers everything else, such as a corrupt archive.
	ErrIngest = errors.New("ingestion failed")
)

// Kind returns the sentinel wrapped by err, or nil when err does not come
// from this package.
func Kind(err error) error {
	for _, sentinel := range []error{ErrNotFound, ErrDownloadTimeout, ErrTooLarge, ErrFetch, ErrIngest} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
