// Package middleware provides reusable HTTP middleware components.
package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/internal/retry"
	"github.com/lexfrei/go-hue/observability"
)

// RetryConfig configures the retry middleware.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Logger      observability.Logger
	Metrics     observability.MetricsRecorder
}

// Retry returns a middleware that retries transient transport failures with
// exponential backoff. It retries on:
// - Connection failures (refused, reset, unreachable).
// - Per-attempt timeouts.
//
// Requests that are not safe to replay (pairing POSTs, relative updates such
// as bri_inc) are retried only when the failure shows the bridge never got
// them, for example a refused dial.
//
// It does NOT retry on:
// - Any HTTP response. The bridge reports errors in well-formed replies and
// those are returned to the caller as-is.
// - Caller cancellation.
// - TLS failures and unknown hosts.
//
// When attempts are exhausted, or the failure is not retryable, the error is
// an *api.TransportError carrying the number of attempts made.
func Retry(cfg RetryConfig) func(http.RoundTripper) http.RoundTripper {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	cfg.Logger = observability.OrNoop(cfg.Logger)
	cfg.Metrics = observability.MetricsOrNoop(cfg.Metrics)

	return func(next http.RoundTripper) http.RoundTripper {
		return &retryTransport{
			next:        next,
			maxAttempts: cfg.MaxAttempts,
			initialWait: cfg.InitialWait,
			maxWait:     cfg.MaxWait,
			logger:      cfg.Logger,
			metrics:     cfg.Metrics,
		}
	}
}

type retryTransport struct {
	next        http.RoundTripper
	maxAttempts int
	initialWait time.Duration
	maxWait     time.Duration
	logger      observability.Logger
	metrics     observability.MetricsRecorder
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	path := normalizePath(req.URL.Path)

	// Read and buffer request body for retries
	var bodyBytes []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read request body")
		}
	}

	replayable := retry.Replayable(req.Method, bodyBytes)

	var (
		lastErr error
		kind    api.TransportErrorKind
		attempt int
	)

	for attempt = 1; attempt <= t.maxAttempts; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.next.RoundTrip(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, t.contextError(req, path, attempt, err)
		}

		var retryable bool
		kind, retryable = retry.Classify(err)
		if retryable && !replayable && !retry.Unsent(err) {
			retryable = false
		}
		if !retryable || attempt == t.maxAttempts {
			break
		}

		wait := retry.Backoff(t.initialWait, t.maxWait, attempt-1)

		t.logger.Warn("retrying request",
			observability.Field{Key: "attempt", Value: attempt},
			observability.Field{Key: "max_attempts", Value: t.maxAttempts},
			observability.Field{Key: "method", Value: req.Method},
			observability.Field{Key: "host", Value: req.URL.Host},
			observability.Field{Key: "path", Value: path},
			observability.Field{Key: "wait", Value: wait},
			observability.Field{Key: "error", Value: err.Error()},
		)

		t.metrics.RecordRetry(attempt, path)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, t.contextError(req, path, attempt, ctx.Err())
		}
	}

	return nil, &api.TransportError{
		Kind:     kind,
		Op:       req.Method + " " + path,
		Address:  req.URL.Host,
		Attempts: attempt,
		Err:      lastErr,
	}
}

// contextError reports a caller deadline as a transport timeout and passes
// caller cancellation through unchanged.
func (t *retryTransport) contextError(req *http.Request, path string, attempts int, err error) error {
	if errors.Is(req.Context().Err(), context.DeadlineExceeded) {
		return &api.TransportError{
			Kind:     api.TransportTimeout,
			Op:       req.Method + " " + path,
			Address:  req.URL.Host,
			Attempts: attempts,
			Err:      err,
		}
	}

	return errors.Wrap(req.Context().Err(), "request canceled")
}
