package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/lexfrei/go-hue/internal/retry"
	"github.com/lexfrei/go-hue/observability"
)

// Observability returns a middleware that logs and records metrics for HTTP requests.
// Only normalized paths are logged, so application keys never reach the logs.
func Observability(logger observability.Logger, metrics observability.MetricsRecorder) func(http.RoundTripper) http.RoundTripper {
	logger = observability.OrNoop(logger)
	metrics = observability.MetricsOrNoop(metrics)

	return func(next http.RoundTripper) http.RoundTripper {
		return &observabilityTransport{
			next:    next,
			logger:  logger,
			metrics: metrics,
		}
	}
}

type observabilityTransport struct {
	next    http.RoundTripper
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

func (t *observabilityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	path := normalizePath(req.URL.Path)

	t.logger.Debug("http request started",
		observability.Field{Key: "method", Value: req.Method},
		observability.Field{Key: "host", Value: req.URL.Host},
		observability.Field{Key: "path", Value: path},
	)

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		t.logger.Error("http request failed",
			observability.Field{Key: "method", Value: req.Method},
			observability.Field{Key: "host", Value: req.URL.Host},
			observability.Field{Key: "path", Value: path},
			observability.Field{Key: "duration", Value: duration},
			observability.Field{Key: "error", Value: err.Error()},
		)

		kind, _ := retry.Classify(err)
		t.metrics.RecordError("http_request", kind.String())

		//nolint:wrapcheck // Observability middleware logs error but passes it through unchanged
		return nil, err
	}

	fields := []observability.Field{
		{Key: "method", Value: req.Method},
		{Key: "host", Value: req.URL.Host},
		{Key: "path", Value: path},
		{Key: "status", Value: resp.StatusCode},
		{Key: "duration", Value: duration},
	}

	if resp.StatusCode >= http.StatusBadRequest {
		t.logger.Warn("http request completed with error", fields...)
	} else {
		t.logger.Debug("http request completed", fields...)
	}

	t.metrics.RecordHTTPRequest(req.Method, path, resp.StatusCode, duration)

	return resp, nil
}

var (
	// apiKeyPattern matches the application key segment of /api/<key>/...
	apiKeyPattern = regexp.MustCompile(`^/api/([^/]+)`)
	// resourceIDPattern matches the id following a v1 resource collection.
	resourceIDPattern = regexp.MustCompile(`/(lights|groups|scenes|sensors|schedules|rules|resourcelinks)/[^/]+`)
	// uuidPattern matches v2 resource ids.
	uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
)

// NormalizePath exposes path normalization to other packages.
func NormalizePath(path string) string {
	return normalizePath(path)
}

// normalizePath replaces the application key and resource ids with
// placeholders, both to keep metric cardinality bounded and to keep keys out
// of logs. Nothing is cached: raw paths carry application keys.
//
// Examples:
//   - /api/1028d66426293e821ecfd9ef1a0731df/lights/3/state → /api/:key/lights/:id/state
//   - /api/1028d66426293e821ecfd9ef1a0731df/scenes/AB34EF5 → /api/:key/scenes/:id
//   - /api/config → /api/config
func normalizePath(path string) string {
	normalized := apiKeyPattern.ReplaceAllStringFunc(path, func(match string) string {
		if match == "/api/config" {
			return match
		}
		return "/api/:key"
	})
	normalized = resourceIDPattern.ReplaceAllString(normalized, "/$1/:id")
	normalized = uuidPattern.ReplaceAllString(normalized, ":id")

	return normalized
}
