// Package testutil provides common testing utilities and helpers.
package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-hue/api"
)

// NewMockServer creates a TLS test server with a predefined response.
// It validates the request path, then returns the specified response.
func NewMockServer(t *testing.T, expectedPath, responseBody string, statusCode int) *httptest.Server {
	t.Helper()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, expectedPath, r.URL.Path, "Request path should match expected")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, err := w.Write([]byte(responseBody))
		assert.NoError(t, err, "Failed to write response body")
	}))
	t.Cleanup(server.Close)

	return server
}

// NewMockServerSequence creates a TLS test server that returns responses in sequence.
// Each call to the server returns the next response in the slice.
func NewMockServerSequence(t *testing.T, responses []struct {
	Body       string
	StatusCode int
},
) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(calls.Add(1))
		if n > len(responses) {
			t.Errorf("More requests than configured responses (got %d requests, have %d responses)",
				n, len(responses))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		resp := responses[n-1]

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, err := w.Write([]byte(resp.Body))
		assert.NoError(t, err, "Failed to write response body")
	}))
	t.Cleanup(server.Close)

	return server, &calls
}

// BridgeFor returns an api.Bridge addressing server.
func BridgeFor(t *testing.T, server *httptest.Server, id string) api.Bridge {
	t.Helper()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	host, portText, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	port, err := strconv.Atoi(portText)
	require.NoError(t, err)

	return api.Bridge{ID: api.NormalizeBridgeID(id), Address: host, Port: port, Source: "test"}
}

// ClosedBridge returns a bridge address on which nothing listens.
func ClosedBridge(t *testing.T) api.Bridge {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	require.NoError(t, listener.Close())

	return api.Bridge{ID: "closed", Address: addr.IP.String(), Port: addr.Port, Source: "test"}
}
