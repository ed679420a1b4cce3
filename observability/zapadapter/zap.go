// Package zapadapter implements observability.Logger on top of zap.
package zapadapter

import (
	"go.uber.org/zap"

	"github.com/lexfrei/go-hue/observability"
)

// Logger adapts a *zap.Logger.
type Logger struct {
	logger *zap.Logger
}

var _ observability.Logger = (*Logger)(nil)

// New wraps logger. A nil logger is replaced by zap.NewNop().
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Debug(msg string, fields ...observability.Field) {
	l.logger.Debug(msg, toZap(fields)...)
}

func (l *Logger) Info(msg string, fields ...observability.Field) {
	l.logger.Info(msg, toZap(fields)...)
}

func (l *Logger) Warn(msg string, fields ...observability.Field) {
	l.logger.Warn(msg, toZap(fields)...)
}

func (l *Logger) Error(msg string, fields ...observability.Field) {
	l.logger.Error(msg, toZap(fields)...)
}

//nolint:ireturn // Method must return interface to satisfy Logger interface
func (l *Logger) With(fields ...observability.Field) observability.Logger {
	return &Logger{logger: l.logger.With(toZap(fields)...)}
}

func toZap(fields []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
