package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapOTELCore returns a zap core that forwards entries at or above level to the
// OpenTelemetry log pipeline. It is a no-op core when logs are not enabled.
func NewZapOTELCore(p *Providers, name string, level zapcore.Level) zapcore.Core {
	if p == nil || p.loggerProvider == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(name, otelzap.WithLoggerProvider(p.loggerProvider))
	return &levelFilterCore{Core: core, minLevel: level}
}

// levelFilterCore drops entries below minLevel before they reach the bridge
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:     c.Core.With(fields),
		minLevel: c.minLevel,
	}
}

// BridgeLogger tees base into the OpenTelemetry log pipeline.
// base is returned unchanged when logs are not enabled.
func BridgeLogger(base *zap.Logger, p *Providers, level zapcore.Level) *zap.Logger {
	if p == nil || p.loggerProvider == nil {
		return base
	}
	otelCore := NewZapOTELCore(p, p.config.ServiceName, level)
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, otelCore)
	}))
}
