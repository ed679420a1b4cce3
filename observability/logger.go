package observability

// Field is one key/value pair attached to a log line, such as the bridge
// id or the attempt number.
type Field struct {
	Key   string
	Value any
}

// Logger receives the client's structured log lines. The client never logs
// application keys; request paths arrive normalized (/api/:key/...).
// Adapters for zerolog and zap live in the subpackages.
type Logger interface {
	// Debug is used for per-entry detail: mDNS answers, link button polls.
	Debug(msg string, fields ...Field)

	// Info is used for state changes: bridge discovered, pairing state changed.
	Info(msg string, fields ...Field)

	// Warn is used for recoverable trouble: retries, failed batch items.
	Warn(msg string, fields ...Field)

	// Error is used when an operation gives up.
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every line.
	With(fields ...Field) Logger
}

type noopLogger struct{}

// NoopLogger returns a logger that discards everything. Components use it
// when no logger is configured.
//
//nolint:ireturn // the concrete type is unexported
func NoopLogger() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(string, ...Field) {}
func (l *noopLogger) Info(string, ...Field)  {}
func (l *noopLogger) Warn(string, ...Field)  {}
func (l *noopLogger) Error(string, ...Field) {}

//nolint:ireturn // satisfies Logger
func (l *noopLogger) With(...Field) Logger { return l }

// OrNoop returns logger, or the no-op logger when logger is nil.
//
//nolint:ireturn // the concrete type is unexported
func OrNoop(logger Logger) Logger {
	if logger == nil {
		return NoopLogger()
	}
	return logger
}
