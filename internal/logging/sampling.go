package logging

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newSampledCore gives every level listed in cfg.Levels its own sampler.
// Unlisted levels and Error and above pass through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			levels = append(levels, lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	sampled := make(map[zapcore.Level]bool, len(levels))
	cores := make([]zapcore.Core, 0, len(levels)+1)
	for _, lvl := range levels {
		budget := cfg.Levels[lvl]
		sampled[lvl] = true
		only := &filteredCore{
			Core:  core,
			allow: zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == lvl }),
		}
		cores = append(cores, zapcore.NewSamplerWithOptions(only, cfg.Tick.Duration(), budget.Initial, budget.Thereafter))
	}

	cores = append(cores, &filteredCore{
		Core:  core,
		allow: zap.LevelEnablerFunc(func(l zapcore.Level) bool { return !sampled[l] }),
	})
	return zapcore.NewTee(cores...)
}

// filteredCore restricts an underlying core to the levels allow enables.
type filteredCore struct {
	zapcore.Core
	allow zapcore.LevelEnabler
}

func (c *filteredCore) Enabled(lvl zapcore.Level) bool {
	return c.allow.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *filteredCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.allow.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *filteredCore) With(fields []zapcore.Field) zapcore.Core {
	return &filteredCore{Core: c.Core.With(fields), allow: c.allow}
}
