package hue

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/codec"
	"github.com/lexfrei/go-hue/discovery"
	"github.com/lexfrei/go-hue/internal/response"
	"github.com/lexfrei/go-hue/observability"
	"github.com/lexfrei/go-hue/session"
	"github.com/lexfrei/go-hue/transport"
)

const (
	// DefaultDiscoveryTimeout bounds one Discover call.
	DefaultDiscoveryTimeout = 5 * time.Second

	// SourceManual is the Bridge.Source of bridges returned by Identify.
	SourceManual = "manual"
)

// Client talks to Hue bridges on the local network.
// It holds no bridge list; every call names its bridge. All methods are
// safe for concurrent use.
type Client struct {
	transport        *transport.Transport
	sessions         *session.Manager
	discoverer       discovery.Discoverer
	discoveryTimeout time.Duration
	logger           observability.Logger
	metrics          observability.MetricsRecorder
}

// ClientConfig holds configuration for the Hue client.
type ClientConfig struct {
	// AppName identifies the application on the bridge (required)
	AppName string

	// InstanceName identifies this installation (defaults to the host name)
	InstanceName string

	// GenerateClientKey requests an entertainment client key when pairing
	GenerateClientKey bool

	// PollInterval is the wait between pairing attempts (defaults to 1s)
	PollInterval time.Duration

	// PairingTimeout bounds a pairing run (defaults to 30s)
	PairingTimeout time.Duration

	// Timeout bounds each request attempt (defaults to 5s)
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

	// RootCAs verifies bridge certificates against these roots instead of
	// skipping verification (optional)
	RootCAs *x509.CertPool

	// TLSConfig overrides the TLS settings entirely (optional)
	TLSConfig *tls.Config

	// HTTPClient is the HTTP client to use for bridge requests (optional)
	HTTPClient *http.Client

	// UserAgent is sent with every request (defaults to "go-hue")
	UserAgent string

	// DiscoveryTimeout bounds Discover (defaults to 5s)
	DiscoveryTimeout time.Duration

	// RemoteDiscovery also asks the public discovery endpoint
	RemoteDiscovery bool

	// RemoteDiscoveryURL overrides the public discovery endpoint (optional)
	RemoteDiscoveryURL string

	// Discoverer replaces the built-in discovery sources (optional)
	Discoverer discovery.Discoverer

	// Logger for observability (optional, uses noop logger if nil)
	Logger observability.Logger

	// Metrics recorder for observability (optional, uses noop recorder if nil)
	Metrics observability.MetricsRecorder
}

// New creates a client with default settings.
//
// Default settings:
//   - Per-attempt timeout: 5 seconds, 3 attempts with backoff
//   - 10 commands and 1 group action per second per bridge
//   - Bridge certificates are not verified (they are self-signed)
//   - mDNS discovery, 5 seconds
//   - Pairing: poll every second for up to 30 seconds
//
// For custom configuration, use NewWithConfig.
//
// Example:
//
//	client, err := hue.New("my-app")
func New(appName string) (*Client, error) {
	return NewWithConfig(&ClientConfig{
		AppName: appName,
	})
}

// NewWithConfig creates a client with custom configuration.
//
// Example:
//
//	client, err := hue.NewWithConfig(&hue.ClientConfig{
//	    AppName:         "my-app",
//	    InstanceName:    "kitchen-panel",
//	    RemoteDiscovery: true,
//	    Logger:          myLogger,
//	    Metrics:         myMetrics,
//	})
func NewWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.AppName == "" {
		return nil, errors.New("application name is required")
	}

	// Set defaults
	if cfg.DiscoveryTimeout == 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}

	logger := observability.OrNoop(cfg.Logger)
	metrics := observability.MetricsOrNoop(cfg.Metrics)

	tr, err := transport.New(&transport.Config{
		Timeout:                cfg.Timeout,
		MaxAttempts:            cfg.MaxAttempts,
		InitialBackoff:         cfg.InitialBackoff,
		MaxBackoff:             cfg.MaxBackoff,
		RequestsPerSecond:      cfg.RequestsPerSecond,
		GroupRequestsPerSecond: cfg.GroupRequestsPerSecond,
		RootCAs:                cfg.RootCAs,
		TLSConfig:              cfg.TLSConfig,
		HTTPClient:             cfg.HTTPClient,
		UserAgent:              cfg.UserAgent,
		Logger:                 logger,
		Metrics:                metrics,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transport")
	}

	sessions, err := session.NewManager(&registrar{transport: tr}, &session.Config{
		AppName:           cfg.AppName,
		InstanceName:      cfg.InstanceName,
		PollInterval:      cfg.PollInterval,
		PairingTimeout:    cfg.PairingTimeout,
		GenerateClientKey: cfg.GenerateClientKey,
		Logger:            logger,
		Metrics:           metrics,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session manager")
	}

	return &Client{
		transport:        tr,
		sessions:         sessions,
		discoverer:       newDiscoverer(cfg, logger, metrics),
		discoveryTimeout: cfg.DiscoveryTimeout,
		logger:           logger,
		metrics:          metrics,
	}, nil
}

//nolint:ireturn // returns whichever discoverer the configuration selects
func newDiscoverer(cfg *ClientConfig, logger observability.Logger, metrics observability.MetricsRecorder) discovery.Discoverer {
	if cfg.Discoverer != nil {
		return cfg.Discoverer
	}

	mdns := discovery.NewMDNS(discovery.MDNSConfig{
		Timeout: cfg.DiscoveryTimeout,
		Logger:  logger,
		Metrics: metrics,
	})
	if !cfg.RemoteDiscovery {
		return mdns
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = transport.DefaultUserAgent
	}

	remote := discovery.NewRemote(discovery.RemoteConfig{
		URL:       cfg.RemoteDiscoveryURL,
		UserAgent: userAgent,
		Logger:    logger,
		Metrics:   metrics,
	})

	return discovery.NewComposite(logger, mdns, remote)
}

// SessionManager returns the manager holding the bridge credentials.
func (c *Client) SessionManager() *session.Manager {
	return c.sessions
}

// Close releases idle connections to every bridge.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// Discover scans the network for bridges, bounded by the discovery timeout
// and ctx. Bridges are not cached; every call scans again.
func (c *Client) Discover(ctx context.Context) ([]api.Bridge, error) {
	//nolint:wrapcheck // Collect wraps errors internally
	return discovery.Collect(ctx, c.discoverer, c.discoveryTimeout)
}

// Identify reads the unauthenticated configuration of the bridge at address
// ("host" or "host:port") and returns it as a bridge.
func (c *Client) Identify(ctx context.Context, address string) (api.Bridge, error) {
	bridge, err := parseAddress(address)
	if err != nil {
		return api.Bridge{}, err
	}

	return c.identify(ctx, bridge)
}

func (c *Client) identify(ctx context.Context, bridge api.Bridge) (api.Bridge, error) {
	resp, err := c.transport.Send(ctx, bridge, "", codec.ConfigRequest())
	cfg, err := response.Handle(resp, err, "identify bridge "+bridge.HostPort(), codec.DecodeConfig)
	if err != nil {
		//nolint:wrapcheck // response.Handle wraps errors internally
		return api.Bridge{}, err
	}
	if cfg.BridgeID == "" {
		return api.Bridge{}, &api.ProtocolError{Op: "identify bridge " + bridge.HostPort(), Reason: "reply has no bridge id"}
	}

	bridge.ID = cfg.BridgeID
	bridge.Name = cfg.Name
	if bridge.Source == "" {
		bridge.Source = SourceManual
	}

	return bridge, nil
}

func parseAddress(address string) (api.Bridge, error) {
	if address == "" {
		return api.Bridge{}, errors.Wrap(api.ErrInvalidRequest, "bridge address is required")
	}

	host, portText, err := net.SplitHostPort(address)
	if err != nil {
		// A bare host or IPv6 literal without a port.
		return api.Bridge{Address: address}, nil //nolint:nilerr // no port is a valid address
	}

	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return api.Bridge{}, errors.Wrapf(api.ErrInvalidRequest, "invalid port in bridge address %q", address)
	}

	return api.Bridge{Address: host, Port: port}, nil
}

// Pair obtains an application key from bridge, polling until its link
// button is pressed or the pairing timeout passes. A bridge without an id
// is identified first. Pairing a bridge that is already paired returns the
// current credential.
func (c *Client) Pair(ctx context.Context, bridge api.Bridge) (api.Credential, error) {
	if bridge.ID == "" {
		identified, err := c.identify(ctx, bridge)
		if err != nil {
			return api.Credential{}, errors.Wrap(err, "failed to identify bridge before pairing")
		}
		bridge = identified
	}

	//nolint:wrapcheck // session errors are typed and already carry context
	return c.sessions.Pair(ctx, bridge)
}

// Restore installs a credential obtained earlier, for example one read
// from a file.
func (c *Client) Restore(cred api.Credential) error {
	//nolint:wrapcheck // session errors already carry context
	return c.sessions.Restore(cred)
}

// Forget drops the credential of a bridge.
func (c *Client) Forget(bridgeID string) {
	c.sessions.Forget(bridgeID)
}

// Sessions lists the pairing state of every known bridge.
func (c *Client) Sessions() []session.Entry {
	return c.sessions.Snapshot()
}

// Config retrieves the full bridge configuration.
func (c *Client) Config(ctx context.Context, bridge api.Bridge) (*api.BridgeConfig, error) {
	return fetch(ctx, c, bridge, codec.FullConfigRequest(), "get config", codec.DecodeConfig)
}

// Lights lists every light of the bridge, ordered by id.
func (c *Client) Lights(ctx context.Context, bridge api.Bridge) ([]api.Light, error) {
	return fetch(ctx, c, bridge, codec.LightsRequest(), "get lights", codec.DecodeLights)
}

// Light retrieves one light, including its state and capabilities.
func (c *Client) Light(ctx context.Context, bridge api.Bridge, lightID string) (*api.Light, error) {
	req, err := codec.LightRequest(lightID)
	if err != nil {
		return nil, errors.Wrap(err, "get light")
	}

	return fetch(ctx, c, bridge, req, "get light "+lightID, func(body []byte) (*api.Light, error) {
		return codec.DecodeLight(lightID, body)
	})
}

// Groups lists every group of the bridge, ordered by id.
func (c *Client) Groups(ctx context.Context, bridge api.Bridge) ([]api.Group, error) {
	return fetch(ctx, c, bridge, codec.GroupsRequest(), "get groups", codec.DecodeGroups)
}

// Group retrieves one group.
func (c *Client) Group(ctx context.Context, bridge api.Bridge, groupID string) (*api.Group, error) {
	req, err := codec.GroupRequest(groupID)
	if err != nil {
		return nil, errors.Wrap(err, "get group")
	}

	return fetch(ctx, c, bridge, req, "get group "+groupID, func(body []byte) (*api.Group, error) {
		return codec.DecodeGroup(groupID, body)
	})
}

// Scenes lists every scene of the bridge, ordered by id.
func (c *Client) Scenes(ctx context.Context, bridge api.Bridge) ([]api.Scene, error) {
	return fetch(ctx, c, bridge, codec.ScenesRequest(), "get scenes", codec.DecodeScenes)
}

// SetState changes the state of one light. Invalid values are rejected
// before any request is sent. Items the bridge refused are reported in the
// result, not as an error.
func (c *Client) SetState(ctx context.Context, bridge api.Bridge, lightID string, state api.LightState) (*api.BatchResult, error) {
	req, err := codec.LightStateRequest(lightID, state)
	if err != nil {
		return nil, errors.Wrap(err, "set light state")
	}

	return c.write(ctx, bridge, req, "set light "+lightID+" state")
}

// SetGroupAction changes the state of every light in a group.
func (c *Client) SetGroupAction(ctx context.Context, bridge api.Bridge, groupID string, action api.GroupAction) (*api.BatchResult, error) {
	req, err := codec.GroupActionRequest(groupID, action)
	if err != nil {
		return nil, errors.Wrap(err, "set group action")
	}

	return c.write(ctx, bridge, req, "set group "+groupID+" action")
}

// ActivateScene recalls a scene on a group.
func (c *Client) ActivateScene(ctx context.Context, bridge api.Bridge, groupID, sceneID string) (*api.BatchResult, error) {
	req, err := codec.ActivateSceneRequest(groupID, sceneID)
	if err != nil {
		return nil, errors.Wrap(err, "activate scene")
	}

	return c.write(ctx, bridge, req, "activate scene "+sceneID)
}

// RenameLight changes the name of a light.
func (c *Client) RenameLight(ctx context.Context, bridge api.Bridge, lightID, name string) (*api.BatchResult, error) {
	req, err := codec.RenameLightRequest(lightID, name)
	if err != nil {
		return nil, errors.Wrap(err, "rename light")
	}

	return c.write(ctx, bridge, req, "rename light "+lightID)
}

// send performs an authenticated request with the current credential of
// bridge. An HTTP-level rejection invalidates that credential.
func (c *Client) send(ctx context.Context, bridge api.Bridge, req api.Request, op string) (*api.Response, api.Credential, error) {
	cred, err := c.sessions.Credential(bridge.ID)
	if err != nil {
		return nil, cred, errors.Wrap(err, op)
	}

	resp, err := c.transport.Send(ctx, bridge, cred.Key, req)
	if err != nil {
		return nil, cred, errors.Wrap(err, op)
	}

	if response.Unauthorized(resp) {
		return nil, cred, c.invalidate(cred, op, &api.ProtocolError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		})
	}

	return resp, cred, nil
}

func fetch[T any](ctx context.Context, c *Client, bridge api.Bridge, req api.Request, op string, decode response.Decoder[T]) (T, error) {
	var zero T

	resp, cred, err := c.send(ctx, bridge, req, op)
	if err != nil {
		return zero, err
	}

	value, err := response.Handle(resp, nil, op, decode)
	if err != nil {
		if api.IsUnauthorized(err) {
			return zero, c.invalidate(cred, op, err)
		}
		//nolint:wrapcheck // response.Handle wraps errors internally
		return zero, err
	}

	return value, nil
}

func (c *Client) write(ctx context.Context, bridge api.Bridge, req api.Request, op string) (*api.BatchResult, error) {
	resp, cred, err := c.send(ctx, bridge, req, op)
	if err != nil {
		return nil, err
	}

	result, err := response.HandleBatch(resp, nil, op)
	if err != nil {
		//nolint:wrapcheck // response.HandleBatch wraps errors internally
		return nil, err
	}

	if result.Unauthorized() {
		return nil, c.invalidate(cred, op, result.Failed()[0].Error)
	}

	for _, item := range result.Failed() {
		c.logger.Warn("batch item failed",
			observability.Field{Key: "op", Value: op},
			observability.Field{Key: "bridge_id", Value: bridge.ID},
			observability.Field{Key: "index", Value: item.Index},
			observability.Field{Key: "type", Value: item.Error.Type},
			observability.Field{Key: "address", Value: item.Error.Address},
			observability.Field{Key: "description", Value: item.Error.Description},
		)
		c.metrics.RecordError("batch_write", "item_failed")
	}

	return result, nil
}

// invalidate drops cred after the bridge rejected it. Only cred itself is
// dropped; a newer key obtained meanwhile stays valid.
func (c *Client) invalidate(cred api.Credential, op string, cause error) error {
	c.sessions.Invalidate(cred)
	c.metrics.RecordError("credential", "invalidated")

	return &api.AuthError{Kind: api.AuthInvalidated, BridgeID: cred.BridgeID, Err: cause}
}
