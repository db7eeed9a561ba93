package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Field keys added from context.
const (
	FieldRequestID = "request_id"
	FieldScanID    = "scan_id"
	FieldRepo      = "repo"
)

const maxIDLen = 128

// idPattern covers UUIDs and the ids echo's RequestID middleware generates.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type requestCtxKey struct{}
type scanCtxKey struct{}
type repoCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields returns the correlation fields carried by ctx: trace and
// span ids from OpenTelemetry, then request, scan and repository.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String(FieldRequestID, id))
	}
	if id := ScanIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String(FieldScanID, id))
	}
	if repo := RepoFromContext(ctx); repo != "" {
		fields = append(fields, zap.String(FieldRepo, repo))
	}
	return fields
}

func validID(id string) bool {
	return id != "" && len(id) <= maxIDLen && idPattern.MatchString(id)
}

// WithRequestID attaches a request id. Request ids come from clients, so
// malformed values are dropped rather than logged.
func WithRequestID(ctx context.Context, id string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithScanID attaches the id of the scan being processed.
func WithScanID(ctx context.Context, id string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, scanCtxKey{}, id)
}

// ScanIDFromContext returns the scan id or "".
func ScanIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(scanCtxKey{}).(string)
	return id
}

// WithRepo attaches the repository being scanned, as owner/name@ref.
func WithRepo(ctx context.Context, repo string) context.Context {
	if repo == "" || len(repo) > 512 {
		return ctx
	}
	return context.WithValue(ctx, repoCtxKey{}, repo)
}

// RepoFromContext returns the repository or "".
func RepoFromContext(ctx context.Context) string {
	repo, _ := ctx.Value(repoCtxKey{}).(string)
	return repo
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
