package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/internal/httpclient"
	"github.com/lexfrei/go-hue/internal/middleware"
	"github.com/lexfrei/go-hue/internal/ratelimit"
	"github.com/lexfrei/go-hue/observability"
)

const (
	// DefaultTimeout bounds each attempt.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxAttempts is the total number of attempts per request.
	DefaultMaxAttempts = 3
	// DefaultInitialBackoff is the wait before the first retry.
	DefaultInitialBackoff = 250 * time.Millisecond
	// DefaultMaxBackoff caps the wait between retries.
	DefaultMaxBackoff = 2 * time.Second

	// DefaultRequestsPerSecond is the per-bridge rate for light and other commands.
	DefaultRequestsPerSecond = 10
	// DefaultGroupRequestsPerSecond is the per-bridge rate for group actions.
	DefaultGroupRequestsPerSecond = 1

	// MaxBodySize is the largest reply body accepted from a bridge.
	MaxBodySize = 8 << 20

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "go-hue"
)

// groupActionPattern matches PUT paths that address a group action.
var groupActionPattern = regexp.MustCompile(`/groups/[^/]+/action$`)

// Config holds the transport settings. The zero value is usable; zero fields
// take the defaults above.
type Config struct {
	// Timeout bounds each attempt (defaults to 5s)
	Timeout time.Duration

	// MaxAttempts is the total number of attempts for transient failures (defaults to 3)
	MaxAttempts int

	// InitialBackoff is the wait before the first retry (defaults to 250ms)
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries (defaults to 2s)
	MaxBackoff time.Duration

	// RequestsPerSecond limits commands per bridge (defaults to 10)
	RequestsPerSecond float64

	// GroupRequestsPerSecond limits group actions per bridge (defaults to 1)
	GroupRequestsPerSecond float64

	// RootCAs, when set, verifies the bridge certificate chain against these
	// roots instead of skipping verification. Host names are not checked.
	RootCAs *x509.CertPool

	// TLSConfig overrides the TLS settings entirely (optional)
	TLSConfig *tls.Config

	// HTTPClient is the HTTP client to use (optional). Its transport is used
	// as-is; TLS settings above are ignored.
	HTTPClient *http.Client

	// UserAgent is sent with every request (defaults to "go-hue")
	UserAgent string

	// Logger for observability (optional, uses noop logger if nil)
	Logger observability.Logger

	// Metrics recorder for observability (optional, uses noop recorder if nil)
	Metrics observability.MetricsRecorder
}

// Transport sends api.Requests to bridges over HTTPS.
// It is safe for concurrent use.
type Transport struct {
	client *httpclient.Client
}

// New creates a transport. A nil cfg uses the defaults.
func New(cfg *Config) (*Transport, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg

	if c.Timeout < 0 || c.MaxAttempts < 0 || c.InitialBackoff < 0 || c.MaxBackoff < 0 {
		return nil, errors.New("transport durations and attempts must not be negative")
	}
	if c.RequestsPerSecond < 0 || c.GroupRequestsPerSecond < 0 {
		return nil, errors.New("transport rate limits must not be negative")
	}

	// Set defaults
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.GroupRequestsPerSecond == 0 {
		c.GroupRequestsPerSecond = DefaultGroupRequestsPerSecond
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	commands := ratelimit.NewRegistry(c.RequestsPerSecond, int(c.RequestsPerSecond))
	groups := ratelimit.NewRegistry(c.GroupRequestsPerSecond, 1)

	// Group actions fan out to every light of the group on the bridge side,
	// so they get a separate, slower bucket per bridge.
	rateLimiterSelector := func(req *http.Request) (*rate.Limiter, string) {
		if req.Method == http.MethodPut && groupActionPattern.MatchString(req.URL.Path) {
			return groups.For(req.URL.Host), "group_action"
		}
		return commands.For(req.URL.Host), "command"
	}

	// Order from outside to inside:
	// Observability -> RateLimit -> Retry -> Deadline -> ApplicationKey -> Header -> TLS
	chain := []httpclient.Middleware{
		middleware.Observability(c.Logger, c.Metrics),
		middleware.RateLimit(middleware.RateLimitConfig{
			Selector: rateLimiterSelector,
			Logger:   c.Logger,
			Metrics:  c.Metrics,
		}),
		middleware.Retry(middleware.RetryConfig{
			MaxAttempts: c.MaxAttempts,
			InitialWait: c.InitialBackoff,
			MaxWait:     c.MaxBackoff,
			Logger:      c.Logger,
			Metrics:     c.Metrics,
		}),
		middleware.Deadline(c.Timeout),
		middleware.ApplicationKey(),
		middleware.Header("Accept", "application/json"),
		middleware.Header("User-Agent", c.UserAgent),
	}

	opts := []httpclient.Option{}
	if c.HTTPClient != nil {
		opts = append(opts, httpclient.WithHTTPClient(c.HTTPClient))
	} else {
		chain = append(chain, middleware.TLSConfig(tlsConfig(&c)))
	}
	opts = append(opts, httpclient.WithMiddleware(chain...))

	return &Transport{client: httpclient.New(opts...)}, nil
}

func tlsConfig(cfg *Config) *tls.Config {
	switch {
	case cfg.TLSConfig != nil:
		return cfg.TLSConfig
	case cfg.RootCAs != nil:
		return middleware.BridgeTrust(cfg.RootCAs)
	default:
		return middleware.InsecureSkipVerify()
	}
}

// Send performs req against bridge. Authenticated requests are sent under
// /api/<key>; key must then be non-empty.
//
// Any HTTP reply is returned as *api.Response, whatever its status. Failures
// to obtain a reply are *api.TransportError, except caller cancellation,
// which wraps context.Canceled.
func (t *Transport) Send(ctx context.Context, bridge api.Bridge, key string, req api.Request) (*api.Response, error) {
	if bridge.Address == "" {
		return nil, errors.Wrap(api.ErrInvalidRequest, "bridge address is empty")
	}
	if req.Authenticated() && key == "" {
		return nil, &api.AuthError{Kind: api.AuthUnpaired, BridgeID: bridge.ID}
	}

	target := requestURL(bridge, key, req)
	op := req.Method() + " " + middleware.NormalizePath(target.Path)

	if req.Authenticated() {
		ctx = middleware.WithApplicationKey(ctx, key)
	}

	var body io.Reader = http.NoBody
	if req.HasBody() {
		body = bytes.NewReader(req.Body())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), target.String(), body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to build request", op)
	}
	if req.HasBody() {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, sendError(op, target.Host, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, sendError(op, target.Host, err)
	}
	if len(data) > MaxBodySize {
		return nil, &api.ProtocolError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Reason:     "reply body exceeds 8 MiB",
		}
	}

	return &api.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

// CloseIdleConnections closes keep-alive connections to all bridges.
func (t *Transport) CloseIdleConnections() {
	t.client.HTTPClient().CloseIdleConnections()
}

func requestURL(bridge api.Bridge, key string, req api.Request) *url.URL {
	rawPath := "/api"
	if req.Authenticated() {
		rawPath += "/" + url.PathEscape(key)
	}
	if req.Path() != "" {
		rawPath += "/" + req.Path()
	}

	path, err := url.PathUnescape(rawPath)
	if err != nil {
		path = rawPath
	}

	return &url.URL{
		Scheme:  "https",
		Host:    bridge.HostPort(),
		Path:    path,
		RawPath: rawPath,
	}
}

// sendError maps failures that escaped the retry middleware, such as a
// caller deadline while waiting for the rate limiter or a body read error.
func sendError(op, host string, err error) error {
	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return transportErr
	}

	if errors.Is(err, context.Canceled) {
		return errors.Wrap(err, op)
	}

	kind := api.TransportConnectionFailed
	if errors.Is(err, context.DeadlineExceeded) {
		kind = api.TransportTimeout
	}

	return &api.TransportError{
		Kind:     kind,
		Op:       op,
		Address:  host,
		Attempts: 1,
		Err:      err,
	}
}
