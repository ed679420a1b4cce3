package discovery

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/codec"
	"github.com/lexfrei/go-hue/internal/httpclient"
	"github.com/lexfrei/go-hue/internal/middleware"
	"github.com/lexfrei/go-hue/internal/retry"
	"github.com/lexfrei/go-hue/observability"
)

const (
	// DefaultRemoteURL is the public bridge discovery endpoint.
	DefaultRemoteURL = "https://discovery.meethue.com/"

	// SourceRemote is the Bridge.Source of bridges found through the
	// discovery endpoint.
	SourceRemote = "remote"

	// DefaultRemoteTimeout bounds one request to the discovery endpoint.
	DefaultRemoteTimeout = 10 * time.Second

	maxRemoteBody = 1 << 20
)

// RemoteConfig configures a Remote discoverer.
type RemoteConfig struct {
	// URL of the discovery endpoint. Default: DefaultRemoteURL.
	URL string

	// HTTPClient is used for the request. Its transport is wrapped, never
	// modified. Default: a client with the system trust store.
	HTTPClient *http.Client

	// UserAgent is sent with the request.
	UserAgent string

	// Timeout bounds the request. Default: DefaultRemoteTimeout.
	Timeout time.Duration

	Logger  observability.Logger
	Metrics observability.MetricsRecorder
}

// Remote asks the public discovery endpoint which bridges share the
// caller's public address. The endpoint throttles heavily; use it as a
// fallback next to MDNS.
type Remote struct {
	url     string
	client  *httpclient.Client
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

// NewRemote creates a discovery endpoint client.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.URL == "" {
		cfg.URL = DefaultRemoteURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "go-hue"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}

	logger := observability.OrNoop(cfg.Logger)
	metrics := observability.MetricsOrNoop(cfg.Metrics)

	client := httpclient.New(
		httpclient.WithHTTPClient(cfg.HTTPClient),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithMiddleware(
			middleware.Observability(logger, metrics),
			middleware.Header("Accept", "application/json"),
			middleware.Header("User-Agent", cfg.UserAgent),
		),
	)

	return &Remote{
		url:     cfg.URL,
		client:  client,
		logger:  logger,
		metrics: metrics,
	}
}

// Discover fetches the endpoint once.
func (r *Remote) Discover(ctx context.Context) ([]api.Bridge, error) {
	const op = "remote discovery"

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build discovery request")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, op)
		}
		kind, _ := retry.Classify(err)
		return nil, &api.TransportError{
			Kind:     kind,
			Op:       op,
			Address:  req.URL.Host,
			Attempts: 1,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read discovery reply")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &api.ProtocolError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		}
	}

	found, err := codec.DecodeDiscovery(body)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	collector := NewCollector()
	for _, b := range found {
		b.Source = SourceRemote
		logChange(r.logger, collector.Add(b), b)
	}

	bridges := collector.Bridges()
	r.metrics.RecordDiscovery(SourceRemote, len(bridges), time.Since(start))

	return bridges, nil
}
