package observability

import "time"

// Pairing outcomes passed to MetricsRecorder.RecordPairing.
const (
	PairingSucceeded      = "succeeded"
	PairingLinkButtonWait = "link_button_not_pressed"
	PairingAlreadyPaired  = "already_paired"
	PairingTimedOut       = "timed_out"
	PairingCanceled       = "canceled"
	PairingFailed         = "failed"
)

// MetricsRecorder is an interface for recording metrics.
// Implementations can use any metrics library (OpenTelemetry, Prometheus, etc.).
type MetricsRecorder interface {
	// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)

	// RecordRetry records a retry attempt for an endpoint.
	RecordRetry(attempt int, endpoint string)

	// RecordRateLimit records a rate limit wait event.
	RecordRateLimit(endpoint string, wait time.Duration)

	// RecordError records an error occurrence.
	RecordError(operation, errorType string)

	// RecordDiscovery records one discovery scan of a source.
	RecordDiscovery(source string, bridges int, duration time.Duration)

	// RecordPairing records a pairing attempt outcome.
	RecordPairing(outcome string)
}

// noopMetricsRecorder is a no-operation metrics recorder that does nothing.
type noopMetricsRecorder struct{}

// NoopMetricsRecorder returns a metrics recorder that does nothing.
// This is the default recorder used when none is provided.
//
//nolint:ireturn // the concrete type is unexported
func NoopMetricsRecorder() MetricsRecorder {
	return &noopMetricsRecorder{}
}

func (m *noopMetricsRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *noopMetricsRecorder) RecordRetry(int, string)                              {}
func (m *noopMetricsRecorder) RecordRateLimit(string, time.Duration)                {}
func (m *noopMetricsRecorder) RecordError(string, string)                           {}
func (m *noopMetricsRecorder) RecordDiscovery(string, int, time.Duration)           {}
func (m *noopMetricsRecorder) RecordPairing(string)                                 {}

// MetricsOrNoop returns metrics, or the no-op recorder when metrics is nil.
//
//nolint:ireturn // the concrete type is unexported
func MetricsOrNoop(metrics MetricsRecorder) MetricsRecorder {
	if metrics == nil {
		return NoopMetricsRecorder()
	}
	return metrics
}
