package middleware

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/internal/retry"
)

// Deadline returns a middleware that bounds every attempt by timeout.
// Place it inside Retry so each retry gets a fresh deadline. An attempt that
// runs out of time fails with an error matching retry.ErrAttemptTimeout; the
// deadline keeps applying while the response body is read and is released
// when the body is closed.
func Deadline(timeout time.Duration) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		if timeout <= 0 {
			return next
		}
		return &deadlineTransport{next: next, timeout: timeout}
	}
}

type deadlineTransport struct {
	next    http.RoundTripper
	timeout time.Duration
}

func (t *deadlineTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parent := req.Context()
	ctx, cancel := context.WithTimeout(parent, t.timeout)

	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(retry.ErrAttemptTimeout, "no reply within %s: %v", t.timeout, err)
		}
		//nolint:wrapcheck // Middleware passes through errors from next handler in chain
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

// cancelOnClose releases the attempt context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	//nolint:wrapcheck // Body close errors are returned unchanged
	return err
}
