package middleware_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-hue/internal/middleware"
	"github.com/lexfrei/go-hue/observability"
)

func TestHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go-hue/test", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.Header("User-Agent", "go-hue/test")(http.DefaultTransport)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHeaderDoesNotModifyOriginalRequest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.Header("Accept", "application/json")(http.DefaultTransport)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	originalHeaders := len(req.Header)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Len(t, req.Header, originalHeaders)
}

func TestApplicationKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{name: "key in context", ctx: middleware.WithApplicationKey(context.Background(), "k3y"), want: "k3y"},
		{name: "no key", ctx: context.Background(), want: ""},
		{name: "empty key", ctx: middleware.WithApplicationKey(context.Background(), ""), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Seen-Key", r.Header.Get(middleware.ApplicationKeyHeader))
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			transport := middleware.ApplicationKey()(http.DefaultTransport)

			req, err := http.NewRequestWithContext(tt.ctx, http.MethodGet, server.URL, http.NoBody)
			require.NoError(t, err)

			resp, err := transport.RoundTrip(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.want, resp.Header.Get("X-Seen-Key"))
			assert.Empty(t, req.Header.Get(middleware.ApplicationKeyHeader))
		})
	}
}

func TestTLSConfig(t *testing.T) {
	t.Parallel()

	config := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	transport := middleware.TLSConfig(config)(http.DefaultTransport)

	httpTransport, ok := transport.(*http.Transport)
	require.True(t, ok, "transport is not *http.Transport")
	require.NotNil(t, httpTransport.TLSClientConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), httpTransport.TLSClientConfig.MinVersion)
	assert.NotSame(t, http.DefaultTransport, transport)
}

func TestInsecureSkipVerify(t *testing.T) {
	t.Parallel()

	config := middleware.InsecureSkipVerify()

	require.NotNil(t, config)
	assert.True(t, config.InsecureSkipVerify)
	assert.Equal(t, uint16(tls.VersionTLS12), config.MinVersion)
}

func TestBridgeTrust(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	t.Run("trusted root", func(t *testing.T) {
		t.Parallel()

		roots := x509.NewCertPool()
		roots.AddCert(server.Certificate())

		transport := middleware.TLSConfig(middleware.BridgeTrust(roots))(http.DefaultTransport)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		require.NoError(t, err)

		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()
	})

	t.Run("unknown root", func(t *testing.T) {
		t.Parallel()

		transport := middleware.TLSConfig(middleware.BridgeTrust(x509.NewCertPool()))(http.DefaultTransport)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		require.NoError(t, err)

		resp, err := transport.RoundTrip(req)
		if resp != nil {
			resp.Body.Close()
		}
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bridge certificate not trusted")
	})
}

func TestObservability(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := &recordingLogger{}
	metrics := &recordingMetrics{}

	transport := middleware.Observability(logger, metrics)(http.DefaultTransport)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		server.URL+"/api/secretkey123/lights/7", http.NoBody)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"/api/:key/lights/:id"}, metrics.paths())
	assert.NotContains(t, logger.dump(), "secretkey123")
}

func TestObservabilityWithNilParams(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := middleware.Observability(nil, nil)(http.DefaultTransport)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestObservabilityRecordsFailure(t *testing.T) {
	t.Parallel()

	metrics := &recordingMetrics{}
	transport := middleware.Observability(observability.NoopLogger(), metrics)(&scriptedTransport{
		errs: []error{refused()},
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://192.0.2.1/api/config", http.NoBody)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Equal(t, []string{"http_request/connection failed"}, metrics.errorKinds())
}
