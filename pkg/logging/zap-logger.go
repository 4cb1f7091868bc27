package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey int

const (
	fieldsKey contextKey = iota
)

type ZapLogger struct {
	logger *zap.Logger
}

func NewZapLogger(level zapcore.Level) (*ZapLogger, error) {
	s := defaultSettings(zap.NewAtomicLevelAt(level))
	logger, err := s.config.Build(s.opts...)
	if err != nil {
		return nil, err
	}
	return &ZapLogger{
		logger: logger,
	}, nil
}

// WithContextFields attaches fields to the context so that every log call
// made with that context carries them.
func WithContextFields(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, fieldsKey, append(contextFields(ctx), fields...))
}

func contextFields(ctx context.Context) []zap.Field {
	fields, ok := ctx.Value(fieldsKey).([]zap.Field)
	if !ok {
		return nil
	}
	return fields
}

func (l *ZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Debug(msg, append(contextFields(ctx), fields...)...)
}

func (l *ZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Info(msg, append(contextFields(ctx), fields...)...)
}

func (l *ZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Warn(msg, append(contextFields(ctx), fields...)...)
}

func (l *ZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.logger.Error(msg, append(contextFields(ctx), fields...)...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
