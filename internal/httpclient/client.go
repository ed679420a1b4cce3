// Package httpclient provides an HTTP client with middleware support.
package httpclient

import (
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
)

// Client is an HTTP client that supports middleware chaining.
type Client struct {
	base       *http.Client
	middleware []Middleware
}

// Middleware wraps an http.RoundTripper to add behavior.
// Middleware is applied in order: first middleware is outermost.
type Middleware func(http.RoundTripper) http.RoundTripper

// New creates a new HTTP client with the given options.
//
// The default client has no overall timeout, since attempts are bounded by
// the Deadline middleware, and does not follow redirects: a bridge never
// redirects API calls.
func New(opts ...Option) *Client {
	c := &Client{
		base: &http.Client{
			CheckRedirect: noRedirects,
		},
		middleware: []Middleware{},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Build middleware chain
	if len(c.middleware) > 0 {
		transport := c.base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}

		// Apply middleware in reverse order so first middleware is outermost
		for i := len(c.middleware) - 1; i >= 0; i-- {
			transport = c.middleware[i](transport)
		}

		c.base.Transport = transport
	}

	return c
}

// Do executes an HTTP request using the configured middleware chain.
//
// Errors are returned without the *url.Error wrapper net/http adds, because
// its message repeats the full URL and with it the application key.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.base.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, urlErr.Err
		}
		//nolint:wrapcheck // Errors from the middleware chain are already typed
		return nil, err
	}

	return resp, nil
}

// HTTPClient returns the underlying http.Client.
// This is useful when the client needs to be passed to code that expects *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.base
}

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}
