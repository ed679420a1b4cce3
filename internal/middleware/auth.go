package middleware

import (
	"context"
	"maps"
	"net/http"
)

// ApplicationKeyHeader is the header carrying the bridge application key.
const ApplicationKeyHeader = "hue-application-key"

type applicationKeyContextKey struct{}

// WithApplicationKey returns a context that makes ApplicationKey attach key
// to requests sent with it.
func WithApplicationKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, applicationKeyContextKey{}, key)
}

// ApplicationKeyFrom returns the key stored by WithApplicationKey.
func ApplicationKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(applicationKeyContextKey{}).(string)
	return key, ok && key != ""
}

// ApplicationKey returns a middleware that sets the hue-application-key header
// from the request context. Requests without a key pass through unchanged.
func ApplicationKey() func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &applicationKeyTransport{next: next}
	}
}

type applicationKeyTransport struct {
	next http.RoundTripper
}

func (t *applicationKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key, ok := ApplicationKeyFrom(req.Context())
	if !ok {
		//nolint:wrapcheck // Middleware passes through errors from next handler in chain
		return t.next.RoundTrip(req)
	}

	req = cloneRequest(req)
	req.Header.Set(ApplicationKeyHeader, key)

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

// Header returns a middleware that sets a fixed header on all requests,
// such as Accept or User-Agent.
func Header(headerName, headerValue string) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return &headerTransport{
			next:        next,
			headerName:  headerName,
			headerValue: headerValue,
		}
	}
}

type headerTransport struct {
	next        http.RoundTripper
	headerName  string
	headerValue string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = cloneRequest(req)
	req.Header.Set(t.headerName, t.headerValue)

	//nolint:wrapcheck // Middleware passes through errors from next handler in chain
	return t.next.RoundTrip(req)
}

// cloneRequest creates a shallow copy of the request with a cloned header map.
func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = make(http.Header, len(req.Header))
	maps.Copy(r.Header, req.Header)
	return r
}
