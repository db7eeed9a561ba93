package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/repoid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/vibeguard/internal/ingest"

// Ingestor downloads repository snapshots and filters them into text files.
// It keeps no per-request state and is safe for concurrent use.
type Ingestor struct {
	source    Source
	cfg       Config
	extractor *extractor
	logger    *zap.Logger
	tracer    trace.Tracer
}

// New creates an Ingestor. Zero config values fall back to defaults.
func New(source Source, cfg Config, logger *zap.Logger) (*Ingestor, error) {
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()
	if cfg.MaxFileBytes > cfg.MaxZipBytes {
		return nil, fmt.Errorf("max file bytes (%d) cannot exceed max zip bytes (%d)", cfg.MaxFileBytes, cfg.MaxZipBytes)
	}

	return &Ingestor{
		source:    source,
		cfg:       cfg,
		extractor: newExtractor(cfg),
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
	}, nil
}

// Config returns the effective limits.
func (in *Ingestor) Config() Config {
	return in.cfg
}

// Ingest downloads and filters the snapshot for id. Each download attempt
// is bounded by timeout (the configured default when zero). When id uses
// the default ref and it does not exist, the fallback branches are tried
// in order.
//
// Ingest returns either a complete payload or an error wrapping one of
// ErrNotFound, ErrDownloadTimeout, ErrTooLarge, ErrFetch or ErrIngest.
func (in *Ingestor) Ingest(ctx context.Context, id repoid.Identifier, timeout time.Duration) (*FilesPayload, error) {
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIngest, err)
	}
	if timeout <= 0 {
		timeout = in.cfg.DownloadTimeout
	}

	refs := []string{id.Ref}
	if id.IsDefaultRef() {
		refs = append(refs, in.cfg.FallbackBranches...)
	}

	var lastErr error
	for i, ref := range refs {
		if i > 0 {
			in.logger.Debug("default ref not found, trying fallback",
				zap.String("repo", id.FullName()),
				zap.String("ref", ref))
		}

		archive, err := in.download(ctx, id, ref, timeout)
		if err == nil {
			payload, err := in.extractor.extract(archive, id.WithRef(ref))
			if err != nil {
				return nil, err
			}
			return payload, nil
		}

		lastErr = moreSpecific(lastErr, err)
		if !errors.Is(err, ErrNotFound) {
			break
		}
	}

	if errors.Is(lastErr, ErrNotFound) && len(refs) > 1 {
		return nil, fmt.Errorf("%w: %s (refs tried: %s)", ErrNotFound, id.FullName(), strings.Join(refs, ", "))
	}
	return nil, lastErr
}

// download performs one bounded attempt and returns the raw archive bytes.
func (in *Ingestor) download(ctx context.Context, id repoid.Identifier, ref string, timeout time.Duration) (_ []byte, err error) {
	ctx, span := in.tracer.Start(ctx, "ingest.download", trace.WithAttributes(
		attribute.String("repo", id.FullName()),
		attribute.String("ref", ref),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	archive, err := in.source.OpenArchive(attemptCtx, id.Owner, id.Name, ref)
	if err != nil {
		return nil, in.classify(attemptCtx, err, timeout)
	}
	defer archive.Body.Close()

	if archive.Size > in.cfg.MaxZipBytes {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit of %d bytes", ErrTooLarge, archive.Size, in.cfg.MaxZipBytes)
	}

	data, err := io.ReadAll(io.LimitReader(archive.Body, in.cfg.MaxZipBytes+1))
	if err != nil {
		return nil, in.classify(attemptCtx, err, timeout)
	}
	if int64(len(data)) > in.cfg.MaxZipBytes {
		return nil, fmt.Errorf("%w: archive exceeds limit of %d bytes", ErrTooLarge, in.cfg.MaxZipBytes)
	}

	span.SetAttributes(attribute.Int("archive.bytes", len(data)))
	in.logger.Debug("archive downloaded",
		zap.String("repo", id.FullName()),
		zap.String("ref", ref),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	return data, nil
}

// classify turns an attempt failure into a taxonomy error. A deadline on the
// attempt context wins over whatever the transport reported.
func (in *Ingestor) classify(attemptCtx context.Context, err error, timeout time.Duration) error {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrDownloadTimeout, timeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %v", ErrFetch, err)
}

// moreSpecific keeps the most informative of two attempt errors. Not-found
// is the least specific outcome since every fallback miss produces it.
func moreSpecific(prev, next error) error {
	if prev == nil {
		return next
	}
	if errors.Is(next, ErrNotFound) && !errors.Is(prev, ErrNotFound) {
		return prev
	}
	return next
}
