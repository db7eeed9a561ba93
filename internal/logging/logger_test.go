package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/vibeguard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newBufferLogger returns an unsampled JSON logger writing to a buffer.
func newBufferLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Level = TraceLevel
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	var buf bytes.Buffer
	logger, err := NewLogger(cfg, nil, WithWriter(&buf))
	require.NoError(t, err)
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	return out
}

func TestNewLogger_WritesJSON(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithScanID(ctx, "5f0c6d8e-0a4b-4f33-9d4a-1f1e2d3c4b5a")
	ctx = WithRepo(ctx, "octo/widgets@main")

	logger.Trace(ctx, "trace entry")
	logger.Info(ctx, "scan complete", zap.Int("findings", 3))
	require.NoError(t, logger.Sync())

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "trace", lines[0]["level"])
	info := lines[1]
	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "scan complete", info["msg"])
	assert.Equal(t, "vibeguard", info["service"])
	assert.Equal(t, "req-1", info[FieldRequestID])
	assert.Equal(t, "5f0c6d8e-0a4b-4f33-9d4a-1f1e2d3c4b5a", info[FieldScanID])
	assert.Equal(t, "octo/widgets@main", info[FieldRepo])
	assert.EqualValues(t, 3, info["findings"])
	assert.Contains(t, info["caller"], "logger_test.go")
}

func TestNewLogger_LevelFilters(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Level = zapcore.WarnLevel })

	ctx := context.Background()
	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped")
	logger.Warn(ctx, "kept")
	logger.Error(ctx, "kept")

	assert.Len(t, decodeLines(t, buf), 2)
	assert.False(t, logger.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Enabled(zapcore.ErrorLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger_OTELOutput(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = true

	t.Run("with provider", func(t *testing.T) {
		logger, err := NewLogger(cfg, noop.NewLoggerProvider())
		require.NoError(t, err)
		logger.Info(context.Background(), "exported")
	})

	t.Run("without provider no sink remains", func(t *testing.T) {
		_, err := NewLogger(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one output")
	})
}

func TestLogger_ChildLoggers(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	child := logger.Named("ingest").With(zap.String("component", "zipball"))
	child.Info(context.Background(), "downloaded")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ingest", lines[0]["logger"])
	assert.Equal(t, "zipball", lines[0]["component"])
}

func TestNewLogger_RedactsPerCallFields(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)
	token := "ghp_" + "abcdefghijklmnopqrstuvwxyz0123456789AB"

	logger.Info(context.Background(), "auth configured for "+token,
		zap.String("github_token", "plain"),
		zap.String("header", "Bearer "+token),
		zap.Error(errors.New("request with token "+token+" failed")),
		Secret("configured", config.Secret("hunter2")),
	)
	logger.With(zap.String("password", "p4ss")).Info(context.Background(), "child")

	out := buf.String()
	assert.NotContains(t, out, token)
	assert.NotContains(t, out, "plain")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "p4ss")

	lines := decodeLines(t, bytes.NewBufferString(out))
	require.Len(t, lines, 2)
	assert.Equal(t, redactedValue, lines[0]["github_token"])
	assert.Equal(t, redactedPattern, lines[0]["header"])
	assert.Equal(t, "[REDACTED:7]", lines[0]["configured"])
	assert.Contains(t, lines[0]["msg"], redactedPattern)
	assert.Equal(t, redactedValue, lines[1]["password"])
}

func TestNewLogger_RedactionDisabled(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Redaction.Enabled = false })

	logger.Info(context.Background(), "raw", zap.String("token", "visible"))
	assert.Contains(t, buf.String(), "visible")
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "via context")
	tl.AssertLogged(t, zapcore.InfoLevel, "via context")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error(context.Background(), "discarded")
	assert.NoError(t, l.Sync())
}
