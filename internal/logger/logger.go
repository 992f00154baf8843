package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"triage/internal/config"
	"triage/pkg/logging"
)

// Logger is the structured logger used across the triage services. The *Ctx
// variants prepend the correlation fields carried by the context.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	DebugwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	InfowCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorwCtx(ctx context.Context, msg string, keysAndValues ...interface{})

	With(keysAndValues ...interface{}) Logger
	Sync() error
}

type zapLogger struct {
	sugar   *zap.SugaredLogger
	service string
}

// New builds a JSON (or console, for format "console") zap logger tagged with
// the owning service.
func New(cfg config.LoggingConfig, service string) (Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "json"
	if strings.EqualFold(cfg.Format, "console") {
		zcfg.Encoding = "console"
	}
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.MessageKey = "message"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	base, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &zapLogger{sugar: base.Sugar(), service: service}, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

func NopLogger() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, l.withService(nil, kv)...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.sugar.Infow(msg, l.withService(nil, kv)...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.sugar.Warnw(msg, l.withService(nil, kv)...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, l.withService(nil, kv)...) }

func (l *zapLogger) DebugwCtx(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Debugw(msg, l.withService(ctx, kv)...)
}

func (l *zapLogger) InfowCtx(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Infow(msg, l.withService(ctx, kv)...)
}

func (l *zapLogger) WarnwCtx(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Warnw(msg, l.withService(ctx, kv)...)
}

func (l *zapLogger) ErrorwCtx(ctx context.Context, msg string, kv ...interface{}) {
	l.sugar.Errorw(msg, l.withService(ctx, kv)...)
}

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(kv...), service: l.service}
}

func (l *zapLogger) Sync() error {
	return l.sugar.Sync()
}

// withService prepends context fields and the service name unless the
// context already names a service.
func (l *zapLogger) withService(ctx context.Context, kv []interface{}) []interface{} {
	fields := logging.Fields(ctx)
	if l.service != "" && logging.ServiceName(ctx) == "" {
		fields = append(fields, string(logging.ServiceNameKey), l.service)
	}
	if len(fields) == 0 {
		return kv
	}
	return append(fields, kv...)
}
