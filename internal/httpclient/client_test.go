package httpclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-hue/internal/httpclient"
)

func TestNew(t *testing.T) {
	t.Parallel()

	client := httpclient.New()
	require.NotNil(t, client)

	httpClient := client.HTTPClient()
	require.NotNil(t, httpClient)
	assert.Zero(t, httpClient.Timeout)
	assert.NotNil(t, httpClient.CheckRedirect)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	client := httpclient.New(httpclient.WithTimeout(10 * time.Second))

	assert.Equal(t, 10*time.Second, client.HTTPClient().Timeout)
}

func TestWithHTTPClientIsCopied(t *testing.T) {
	t.Parallel()

	base := &http.Transport{}
	customClient := &http.Client{Timeout: 5 * time.Second, Transport: base}

	noop := func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(next.RoundTrip)
	}

	client := httpclient.New(httpclient.WithHTTPClient(customClient), httpclient.WithMiddleware(noop))

	assert.NotSame(t, customClient, client.HTTPClient())
	assert.Equal(t, 5*time.Second, client.HTTPClient().Timeout)
	assert.Same(t, base, customClient.Transport, "caller's client must not be modified")
}

func TestWithTransport(t *testing.T) {
	t.Parallel()

	customTransport := &http.Transport{}
	client := httpclient.New(httpclient.WithTransport(customTransport))

	assert.Same(t, customTransport, client.HTTPClient().Transport)
}

func TestMiddlewareChaining(t *testing.T) {
	t.Parallel()

	var order []string

	record := func(name string) httpclient.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name+"-before")
				resp, err := next.RoundTrip(req)
				order = append(order, name+"-after")
				return resp, err
			})
		}
	}

	bridge := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		order = append(order, "bridge")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("[]")), Request: req}, nil
	})

	client := httpclient.New(
		httpclient.WithTransport(bridge),
		httpclient.WithMiddleware(record("outer"), record("inner")),
	)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://192.0.2.1/api/config", http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{
		"outer-before",
		"inner-before",
		"bridge",
		"inner-after",
		"outer-after",
	}, order)
}

func TestDoStripsURLFromErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	client := httpclient.New(httpclient.WithTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, cause
	})))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		"https://192.0.2.1/api/supersecretkey/lights", http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)

	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "supersecretkey")

	var urlErr *url.Error
	assert.False(t, errors.As(err, &urlErr))
}

func TestDoDoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	client := httpclient.New()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

// roundTripperFunc is an adapter to use functions as http.RoundTripper
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
