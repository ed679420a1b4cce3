// Package observability provides interfaces for logging and metrics collection
// in the go-hue library.
//
// The library core never binds a concrete logger or metrics backend. Callers
// plug in their own implementations, or one of the adapters shipped in the
// subpackages:
//
//   - zerologadapter: Logger backed by github.com/rs/zerolog
//   - zapadapter: Logger backed by go.uber.org/zap
//   - otelmetrics: MetricsRecorder backed by OpenTelemetry metric instruments
//
// # Logger Interface
//
// The Logger interface supports structured logging with key-value pairs:
//
//	client, err := hue.NewWithConfig(&hue.ClientConfig{
//		AppName: "my-app",
//		Logger:  zerologadapter.New(log.Logger),
//	})
//
// Events logged by the library include bridge discovery (found, address
// changed, lost), pairing state changes, retries, failed requests and failed
// batch items. Application keys are never logged.
//
// # MetricsRecorder Interface
//
// Tracked metrics include:
//   - HTTP request count, status codes, and duration
//   - Retry attempts for failed requests
//   - Rate limiting events and wait times
//   - Error occurrences by type
//   - Discovery scans per source and pairing outcomes
//
// # Default Behavior
//
// If no logger or metrics recorder is provided, the client uses no-op
// implementations that discard all events.
package observability
