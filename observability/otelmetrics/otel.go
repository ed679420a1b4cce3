// Package otelmetrics implements observability.MetricsRecorder with
// OpenTelemetry metric instruments.
package otelmetrics

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lexfrei/go-hue/observability"
)

// MeterName is the instrumentation scope used by NewFromProvider.
const MeterName = "github.com/lexfrei/go-hue"

const (
	metricRequests          = "hue_http_requests_total"
	metricRequestDuration   = "hue_http_request_duration_seconds"
	metricRetries           = "hue_http_retries_total"
	metricRateLimitWait     = "hue_rate_limit_wait_seconds"
	metricErrors            = "hue_errors_total"
	metricDiscoveryScans    = "hue_discovery_scans_total"
	metricDiscoveredBridges = "hue_discovery_bridges"
	metricDiscoveryDuration = "hue_discovery_duration_seconds"
	metricPairing           = "hue_pairing_attempts_total"
)

// Recorder records go-hue metrics through a metric.Meter.
type Recorder struct {
	requests          metric.Int64Counter
	requestDuration   metric.Float64Histogram
	retries           metric.Int64Counter
	rateLimitWait     metric.Float64Histogram
	errors            metric.Int64Counter
	discoveryScans    metric.Int64Counter
	discoveredBridges metric.Int64Histogram
	discoveryDuration metric.Float64Histogram
	pairing           metric.Int64Counter
}

var _ observability.MetricsRecorder = (*Recorder)(nil)

// NewFromProvider creates a recorder using a meter named MeterName.
func NewFromProvider(provider metric.MeterProvider) (*Recorder, error) {
	return New(provider.Meter(MeterName))
}

// New creates every instrument on meter.
func New(meter metric.Meter) (*Recorder, error) {
	var (
		r    Recorder
		errs []error
	)

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		errs = append(errs, err)
		return c
	}
	seconds := func(name, description string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit("s"))
		errs = append(errs, err)
		return h
	}

	r.requests = counter(metricRequests, "Total bridge HTTP requests")
	r.requestDuration = seconds(metricRequestDuration, "Duration of bridge HTTP requests")
	r.retries = counter(metricRetries, "Total retried bridge HTTP requests")
	r.rateLimitWait = seconds(metricRateLimitWait, "Time spent waiting for the bridge rate limiter")
	r.errors = counter(metricErrors, "Total errors by operation and type")
	r.discoveryScans = counter(metricDiscoveryScans, "Total discovery scans by source")
	r.discoveryDuration = seconds(metricDiscoveryDuration, "Duration of discovery scans")
	r.pairing = counter(metricPairing, "Total pairing attempts by outcome")

	bridges, err := meter.Int64Histogram(metricDiscoveredBridges,
		metric.WithDescription("Bridges found per discovery scan"))
	errs = append(errs, err)
	r.discoveredBridges = bridges

	if err := errors.Join(errs...); err != nil {
		return nil, errors.Wrap(err, "failed to create metric instruments")
	}

	return &r, nil
}

func (r *Recorder) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", strconv.Itoa(statusCode)),
	)
	r.requests.Add(context.Background(), 1, attrs)
	r.requestDuration.Record(context.Background(), duration.Seconds(), attrs)
}

func (r *Recorder) RecordRetry(attempt int, endpoint string) {
	r.retries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("path", endpoint),
		attribute.Int("attempt", attempt),
	))
}

func (r *Recorder) RecordRateLimit(endpoint string, wait time.Duration) {
	r.rateLimitWait.Record(context.Background(), wait.Seconds(),
		metric.WithAttributes(attribute.String("path", endpoint)))
}

func (r *Recorder) RecordError(operation, errorType string) {
	r.errors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("type", errorType),
	))
}

func (r *Recorder) RecordDiscovery(source string, bridges int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("source", source))
	r.discoveryScans.Add(context.Background(), 1, attrs)
	r.discoveredBridges.Record(context.Background(), int64(bridges), attrs)
	r.discoveryDuration.Record(context.Background(), duration.Seconds(), attrs)
}

func (r *Recorder) RecordPairing(outcome string) {
	r.pairing.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
