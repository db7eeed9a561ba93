package pipeline

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"github.com/fyrsmithlabs/vibeguard/internal/repoid"
)

// Error kinds reported to clients and used as metric outcomes.
const (
	KindInvalidURL   = "invalid_url"
	KindNotFound     = "not_found"
	KindTimeout      = "timeout"
	KindTooLarge     = "too_large"
	KindFetchFailed  = "fetch_failed"
	KindIngestFailed = "ingest_failed"
	KindCanceled     = "canceled"
	KindInternal     = "internal"
)

// Kind classifies an error returned by Service.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repoid.ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, ingest.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ingest.ErrDownloadTimeout):
		return KindTimeout
	case errors.Is(err, ingest.ErrTooLarge):
		return KindTooLarge
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ingest.ErrFetch):
		return KindFetchFailed
	case errors.Is(err, ingest.ErrIngest):
		return KindIngestFailed
	default:
		return KindInternal
	}
}
