// Package pipeline runs a repository scan end to end: URL parsing,
// archive ingestion and rule scanning.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"github.com/fyrsmithlabs/vibeguard/internal/logging"
	"github.com/fyrsmithlabs/vibeguard/internal/metrics"
	"github.com/fyrsmithlabs/vibeguard/internal/repoid"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/vibeguard/internal/pipeline"

// Ingester fetches and filters a repository snapshot.
type Ingester interface {
	Ingest(ctx context.Context, id repoid.Identifier, timeout time.Duration) (*ingest.FilesPayload, error)
}

// Service wires ingestion to the scanning engine. It is safe for
// concurrent use.
type Service struct {
	ingester Ingester
	engine   *scanner.Engine
	logger   *logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the Prometheus instruments. Nil disables recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracerProvider sets the provider for pipeline spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// New creates a Service.
func New(ingester Ingester, engine *scanner.Engine, opts ...Option) (*Service, error) {
	if ingester == nil {
		return nil, fmt.Errorf("ingester cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}

	s := &Service{
		ingester: ingester,
		engine:   engine,
		logger:   logging.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s, nil
}

// Rules returns the catalog the engine evaluates, in evaluation order.
func (s *Service) Rules() []scanner.Rule {
	return s.engine.Catalog().Rules()
}

// ScanURL parses rawURL and scans the repository it names. Parse errors
// wrap repoid.ErrInvalidURL.
func (s *Service) ScanURL(ctx context.Context, rawURL string, timeout time.Duration) (*Report, error) {
	id, err := repoid.Parse(rawURL)
	if err != nil {
		s.metrics.RecordScan(KindInvalidURL)
		return nil, err
	}
	return s.Scan(ctx, id, timeout)
}

// Scan ingests id and scans the result. A zero timeout uses the
// ingestor's configured download timeout. On error no partial report is
// returned.
func (s *Service) Scan(ctx context.Context, id repoid.Identifier, timeout time.Duration) (*Report, error) {
	start := time.Now()
	scanID := s.newID()
	ctx = logging.WithScanID(ctx, scanID)
	ctx = logging.WithRepo(ctx, id.String())

	s.logger.Debug(ctx, "scan started")

	payload, err := s.ingest(ctx, id, timeout)
	if err != nil {
		kind := Kind(err)
		s.metrics.RecordScan(kind)
		s.logger.Warn(ctx, "ingestion failed",
			zap.String("kind", kind),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	findings := s.scan(ctx, payload)
	summary := scanner.Summarize(findings)
	elapsed := time.Since(start)

	s.metrics.RecordScan(metrics.OutcomeOK)
	s.logger.Info(ctx, "scan completed",
		zap.String("ref", payload.Repo.Ref),
		zap.Int("files_considered", payload.Stats.FilesConsidered),
		zap.Int("files_included", payload.Stats.FilesIncluded),
		zap.Int("files_read", payload.Stats.FilesRead),
		zap.Bool("truncated", payload.Truncated),
		zap.Int("findings", summary.Total),
		zap.Int("high", summary.High),
		zap.Duration("duration", elapsed))

	return &Report{
		ScanID:     scanID,
		Repo:       repoFrom(payload.Repo),
		Findings:   findings,
		Summary:    summary,
		Ingestion:  ingestionFrom(payload),
		DurationMS: elapsed.Milliseconds(),
	}, nil
}

func (s *Service) ingest(ctx context.Context, id repoid.Identifier, timeout time.Duration) (_ *ingest.FilesPayload, err error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.ingest", trace.WithAttributes(
		attribute.String("repo", id.FullName()),
		attribute.String("ref", id.Ref),
		attribute.String("subpath", id.Subpath),
	))
	start := time.Now()
	defer func() {
		s.metrics.ObserveStage(metrics.StageIngest, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, Kind(err))
		}
		span.End()
	}()

	payload, err := s.ingester.Ingest(ctx, id, timeout)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("ref.resolved", payload.Repo.Ref),
		attribute.Int("files.considered", payload.Stats.FilesConsidered),
		attribute.Int("files.included", payload.Stats.FilesIncluded),
		attribute.Int("files.read", payload.Stats.FilesRead),
		attribute.Bool("truncated", payload.Truncated),
	)
	s.metrics.RecordIngestion(payload)
	return payload, nil
}

func (s *Service) scan(ctx context.Context, payload *ingest.FilesPayload) []scanner.Finding {
	_, span := s.tracer.Start(ctx, "pipeline.scan", trace.WithAttributes(
		attribute.Int("files", len(payload.Files)),
		attribute.Int("rules", s.engine.Catalog().Len()),
	))
	start := time.Now()

	findings := s.engine.Scan(payload.Files)

	s.metrics.ObserveStage(metrics.StageScan, time.Since(start))
	s.metrics.RecordFindings(findings)
	span.SetAttributes(attribute.Int("findings", len(findings)))
	span.End()
	return findings
}
