package api

import (
	"net/http"
	"slices"
)

// Request is an immutable description of one bridge API call.
// Path is relative to /api (unauthenticated) or /api/<key> (authenticated).
type Request struct {
	method        string
	path          string
	body          []byte
	authenticated bool
}

// NewRequest creates a request. The body is copied.
func NewRequest(method, path string, body []byte, authenticated bool) Request {
	return Request{
		method:        method,
		path:          path,
		body:          slices.Clone(body),
		authenticated: authenticated,
	}
}

// Method returns the HTTP method.
func (r Request) Method() string {
	if r.method == "" {
		return http.MethodGet
	}
	return r.method
}

// Path returns the resource path, without the /api[/<key>] prefix.
func (r Request) Path() string { return r.path }

// Body returns a copy of the encoded body (nil when there is none).
func (r Request) Body() []byte { return slices.Clone(r.body) }

// HasBody reports whether the request carries a body.
func (r Request) HasBody() bool { return len(r.body) > 0 }

// Authenticated reports whether the request requires an application key.
func (r Request) Authenticated() bool { return r.authenticated }

// Response is the raw reply of a bridge.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the status code is 2xx.
func (r *Response) Success() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
