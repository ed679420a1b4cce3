// Package zerologadapter implements observability.Logger on top of zerolog.
package zerologadapter

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lexfrei/go-hue/observability"
)

// Logger adapts a zerolog.Logger.
type Logger struct {
	logger zerolog.Logger
}

var _ observability.Logger = (*Logger)(nil)

// New wraps logger.
func New(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Debug(msg string, fields ...observability.Field) {
	withFields(l.logger.Debug(), fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields ...observability.Field) {
	withFields(l.logger.Info(), fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...observability.Field) {
	withFields(l.logger.Warn(), fields).Msg(msg)
}

func (l *Logger) Error(msg string, fields ...observability.Field) {
	withFields(l.logger.Error(), fields).Msg(msg)
}

//nolint:ireturn // Method must return interface to satisfy Logger interface
func (l *Logger) With(fields ...observability.Field) observability.Logger {
	ctx := l.logger.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &Logger{logger: ctx.Logger()}
}

func withFields(event *zerolog.Event, fields []observability.Field) *zerolog.Event {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			event = event.Str(f.Key, v)
		case int:
			event = event.Int(f.Key, v)
		case bool:
			event = event.Bool(f.Key, v)
		case time.Duration:
			event = event.Dur(f.Key, v)
		case error:
			event = event.AnErr(f.Key, v)
		default:
			event = event.Interface(f.Key, v)
		}
	}
	return event
}
