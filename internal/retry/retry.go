// Package retry classifies transport failures and computes backoff delays.
package retry

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
)

// ErrAttemptTimeout marks an attempt that exceeded its per-attempt deadline.
var ErrAttemptTimeout = errors.New("attempt deadline exceeded")

// Classify maps a round-trip error to a transport error kind and reports
// whether another attempt may succeed.
//
// Retryable:
//   - per-attempt timeouts and network timeouts
//   - connection refused, reset, aborted
//   - host or network unreachable
//   - connections closed before a reply
//
// Not retryable:
//   - caller cancellation
//   - TLS and certificate failures
//   - unknown host names
func Classify(err error) (api.TransportErrorKind, bool) {
	if err == nil {
		return 0, false
	}

	if errors.Is(err, context.Canceled) {
		return api.TransportConnectionFailed, false
	}

	if errors.Is(err, ErrAttemptTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return api.TransportTimeout, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return api.TransportTimeout, true
	}

	if isTLSFailure(err) {
		return api.TransportConnectionFailed, false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return api.TransportConnectionFailed, !dnsErr.IsNotFound
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return api.TransportConnectionFailed, true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return api.TransportConnectionFailed, true
	}

	return api.TransportConnectionFailed, false
}

// Unsent reports whether err shows that the request never reached the
// bridge: the host name did not resolve or the connection was never made.
func Unsent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// relativeAttribute matches bri_inc, ct_inc and the other *_inc keys of a
// state update.
var relativeAttribute = []byte(`_inc"`)

// Replayable reports whether the bridge ends up in the same state when it
// receives a request twice. Pairing POSTs issue a new key each time and
// relative updates such as bri_inc add up, so neither is.
func Replayable(method string, body []byte) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	case http.MethodPut:
		return !bytes.Contains(body, relativeAttribute)
	default:
		return false
	}
}

func isTLSFailure(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)

	return errors.As(err, &recordErr) ||
		errors.As(err, &certErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert)
}

// Backoff returns the wait before retry number attempt (0-based):
// initial * 2^attempt, capped at limit when limit is positive.
func Backoff(initial, limit time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		return 0
	}

	wait := initial
	for range attempt {
		wait *= 2
		if limit > 0 && wait >= limit {
			return limit
		}
	}

	if limit > 0 && wait > limit {
		return limit
	}

	return wait
}
