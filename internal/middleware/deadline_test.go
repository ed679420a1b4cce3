package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-hue/internal/middleware"
	"github.com/lexfrei/go-hue/internal/retry"
)

func TestDeadline(t *testing.T) {
	t.Parallel()

	t.Run("fast reply passes", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		transport := middleware.Deadline(time.Second)(http.DefaultTransport)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		require.NoError(t, err)

		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, "[]", string(body))
	})

	t.Run("slow reply times out the attempt", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		transport := middleware.Deadline(20 * time.Millisecond)(http.DefaultTransport)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
		require.NoError(t, err)

		resp, err := transport.RoundTrip(req)
		if resp != nil {
			resp.Body.Close()
		}
		require.Error(t, err)
		assert.ErrorIs(t, err, retry.ErrAttemptTimeout)
	})

	t.Run("parent cancellation is passed through", func(t *testing.T) {
		t.Parallel()

		next := roundTripFunc(func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})
		transport := middleware.Deadline(time.Second)(next)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://192.0.2.10/api/config", http.NoBody)
		require.NoError(t, err)

		resp, err := transport.RoundTrip(req)
		if resp != nil {
			resp.Body.Close()
		}
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, retry.ErrAttemptTimeout))
	})

	t.Run("zero timeout disables the middleware", func(t *testing.T) {
		t.Parallel()

		next := &scriptedTransport{}
		transport := middleware.Deadline(0)(next)

		assert.Same(t, next, transport)
	})
}
