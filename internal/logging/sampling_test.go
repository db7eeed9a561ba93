package logging

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampledLogger(levels map[zapcore.Level]LevelSamplingConfig) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  levels,
	})
	return &Logger{zap: zap.New(sampled), config: NewDefaultConfig()}, observed
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_PerLevelBudgets(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.DebugLevel: {Initial: 2, Thereafter: 0},
		zapcore.InfoLevel:  {Initial: 5, Thereafter: 0},
		zapcore.WarnLevel:  {Initial: 1, Thereafter: 3},
	})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		logger.Debug(ctx, "debug message")
		logger.Info(ctx, "info message")
		logger.Warn(ctx, "warn message")
	}

	assert.Equal(t, 2, observed.FilterMessage("debug message").Len())
	assert.Equal(t, 5, observed.FilterMessage("info message").Len())
	// 1 initial, then every 3rd of the remaining 19.
	assert.Equal(t, 7, observed.FilterMessage("warn message").Len())
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.ErrorLevel: {Initial: 1, Thereafter: 0},
	})

	for i := 0; i < 50; i++ {
		logger.Error(context.Background(), "error message")
	}
	assert.Equal(t, 50, observed.FilterMessage("error message").Len())
}

func TestNewSampledCore_UnlistedLevelsPass(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
	})

	for i := 0; i < 10; i++ {
		logger.Debug(context.Background(), "debug message")
	}
	assert.Equal(t, 10, observed.FilterMessage("debug message").Len())
}

func TestNewSampledCore_DistinctMessagesSampledSeparately(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
	})

	logger.Info(context.Background(), "first")
	logger.Info(context.Background(), "first")
	logger.Info(context.Background(), "second")

	assert.Equal(t, 2, observed.Len())
}

func TestFilteredCore_WithKeepsFilter(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	onlyWarn := &filteredCore{Core: core, allow: zapcore.WarnLevel}

	z := zap.New(onlyWarn).With(zap.String("k", "v"))
	z.Info("dropped")
	z.Warn("kept")

	assert.Equal(t, 1, observed.Len())
	assert.Equal(t, "v", observed.All()[0].ContextMap()["k"])
}
