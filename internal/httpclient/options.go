package httpclient

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient starts from a copy of client, so a caller-supplied client
// (with its own trust store or proxy) keeps working after the bridge
// middleware is installed on the copy. A nil client is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			clone := *client
			c.base = &clone
		}
	}
}

// WithTimeout bounds a whole exchange, retries included. Bridge calls leave
// it unset and rely on the per-attempt Deadline middleware instead; the
// public discovery endpoint uses it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.base.Timeout = timeout
	}
}

// WithTransport replaces the innermost round tripper, for example with a
// fake bridge in tests. Middleware wraps it.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.base.Transport = transport
	}
}

// WithMiddleware appends middleware. The first one listed sees the request
// first and the reply last:
//
//	WithMiddleware(Observability, Retry, Deadline)
//	request: Observability -> Retry -> Deadline -> transport -> bridge
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}
