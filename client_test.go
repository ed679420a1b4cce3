package hue_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hue "github.com/lexfrei/go-hue"
	"github.com/lexfrei/go-hue/api"
	"github.com/lexfrei/go-hue/codec"
	"github.com/lexfrei/go-hue/internal/testutil"
	"github.com/lexfrei/go-hue/observability"
	"github.com/lexfrei/go-hue/session"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, fields []observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	values := make(map[string]any, len(fields))
	for _, f := range fields {
		values[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: values})
}

func (l *recordingLogger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields) }

//nolint:ireturn // satisfies observability.Logger
func (l *recordingLogger) With(...observability.Field) observability.Logger { return l }

func (l *recordingLogger) find(msg string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []logEntry
	for _, e := range l.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func newClient(t *testing.T, mutate ...func(*hue.ClientConfig)) *hue.Client {
	t.Helper()

	cfg := &hue.ClientConfig{
		AppName:        "test-app",
		InstanceName:   "test",
		PollInterval:   10 * time.Millisecond,
		PairingTimeout: 2 * time.Second,
		Timeout:        time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
	for _, m := range mutate {
		m(cfg)
	}

	client, err := hue.NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func pairedBridge(t *testing.T, client *hue.Client) (*testutil.FakeBridge, api.Bridge) {
	t.Helper()

	fake := testutil.NewFakeBridge(t, "001788FFFE23BFC2")
	fake.AddKey("restored-key")
	bridge := fake.Bridge(t)

	require.NoError(t, client.Restore(api.Credential{BridgeID: bridge.ID, Key: "restored-key"}))

	return fake, bridge
}

func TestNewWithConfig(t *testing.T) {
	t.Parallel()

	_, err := hue.NewWithConfig(nil)
	require.Error(t, err)

	_, err = hue.New("")
	require.Error(t, err)

	_, err = hue.NewWithConfig(&hue.ClientConfig{AppName: "app", MaxAttempts: -1})
	require.Error(t, err)

	client, err := hue.New("app")
	require.NoError(t, err)
	client.Close()
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeBridge(t, "001788FFFE23BFC2")
	client := newClient(t)

	bridge, err := client.Identify(context.Background(), fake.Server.Listener.Addr().String())
	require.NoError(t, err)

	assert.Equal(t, "001788fffe23bfc2", bridge.ID)
	assert.Equal(t, "Fake Hue", bridge.Name)
	assert.Equal(t, hue.SourceManual, bridge.Source)
	assert.NotZero(t, bridge.Port)
}

func TestIdentifyInvalidAddress(t *testing.T) {
	t.Parallel()

	client := newClient(t)

	for _, address := range []string{"", "192.168.1.20:http", "192.168.1.20:70000"} {
		_, err := client.Identify(context.Background(), address)
		require.ErrorIs(t, err, hue.ErrInvalidRequest, address)
	}
}

func TestPairIdentifiesAndControlsLight(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeBridge(t, "001788FFFE23BFC2")
	fake.AddLight("1", api.Light{Name: "Desk", Type: "Extended color light", State: api.LightState{On: api.Bool(false)}})
	fake.PressLinkButton()

	client := newClient(t)

	bridge := fake.Bridge(t)
	bridge.ID = ""

	cred, err := client.Pair(context.Background(), bridge)
	require.NoError(t, err)
	assert.Equal(t, "001788fffe23bfc2", cred.BridgeID)
	assert.Equal(t, "key-1-test-app-test", cred.Key)

	bridge.ID = cred.BridgeID
	state := api.LightState{On: api.Bool(true), Bri: api.Int(200), CT: api.Int(366)}

	result, err := client.SetState(context.Background(), bridge, "1", state)
	require.NoError(t, err)
	require.True(t, result.OK())

	applied, err := codec.AppliedState(result)
	require.NoError(t, err)
	assert.Equal(t, state, applied)

	light, err := client.Light(context.Background(), bridge, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", light.ID)
	assert.Equal(t, 200, *light.State.Bri)

	sessions := client.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, session.StatePaired, sessions[0].State)
}

func TestPairingTimeout(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeBridge(t, "001788FFFE23BFC2")
	client := newClient(t, func(cfg *hue.ClientConfig) { cfg.PairingTimeout = 100 * time.Millisecond })

	start := time.Now()
	_, err := client.Pair(context.Background(), fake.Bridge(t))
	require.ErrorIs(t, err, hue.ErrPairingTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = client.Lights(context.Background(), fake.Bridge(t))
	require.ErrorIs(t, err, hue.ErrUnpaired)
}

func TestUnpairedBridgeNeverHitsNetwork(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeBridge(t, "001788FFFE23BFC2")
	client := newClient(t)

	_, err := client.Lights(context.Background(), fake.Bridge(t))
	require.ErrorIs(t, err, hue.ErrUnpaired)
	require.ErrorIs(t, err, hue.ErrAuthRequired)

	_, err = client.SetState(context.Background(), fake.Bridge(t), "1", api.LightState{On: api.Bool(true)})
	require.ErrorIs(t, err, hue.ErrUnpaired)

	assert.Zero(t, fake.Hits())
}

func TestInvalidatedCredentialStopsFurtherCalls(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	fake, bridge := pairedBridge(t, client)
	fake.AddLight("1", api.Light{Name: "Desk", State: api.LightState{On: api.Bool(true)}})

	_, err := client.Lights(context.Background(), bridge)
	require.NoError(t, err)

	fake.RevokeKey("restored-key")

	_, err = client.Lights(context.Background(), bridge)
	var authErr *api.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, api.AuthInvalidated, authErr.Kind)
	assert.True(t, api.IsUnauthorized(err))

	hits := fake.Hits()

	_, err = client.Lights(context.Background(), bridge)
	require.ErrorIs(t, err, hue.ErrInvalidated)

	_, err = client.SetState(context.Background(), bridge, "1", api.LightState{On: api.Bool(false)})
	require.ErrorIs(t, err, hue.ErrInvalidated)

	assert.Equal(t, hits, fake.Hits())
}

func TestUnauthorizedWriteInvalidates(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	fake, bridge := pairedBridge(t, client)
	fake.AddLight("1", api.Light{Name: "Desk", State: api.LightState{}})
	fake.RevokeKey("restored-key")

	_, err := client.SetState(context.Background(), bridge, "1", api.LightState{On: api.Bool(true)})
	require.ErrorIs(t, err, hue.ErrInvalidated)
	assert.Equal(t, session.StateInvalidated, client.Sessions()[0].State)
}

func TestHTTPStatusUnauthorizedInvalidates(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			client := newClient(t)
			fake, bridge := pairedBridge(t, client)
			fake.ForceStatus(status)

			_, err := client.Groups(context.Background(), bridge)
			require.ErrorIs(t, err, hue.ErrInvalidated)
		})
	}
}

func TestUnexpectedStatusIsProtocolError(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	fake, bridge := pairedBridge(t, client)
	fake.ForceStatus(http.StatusServiceUnavailable)

	_, err := client.Scenes(context.Background(), bridge)
	require.ErrorIs(t, err, hue.ErrMalformedResponse)

	var protoErr *api.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, http.StatusServiceUnavailable, protoErr.StatusCode)

	_, err = client.Scenes(context.Background(), bridge)
	require.NoError(t, err, "credential survives a non-auth failure")
}

func TestPartialBatchFailure(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServer(t, "/api/restored-key/lights/1/state",
		`[{"success":{"/lights/1/state/on":true}}, {"error":{"type":201,"address":"/lights/1/state/bri","description":"device unreachable"}}]`,
		http.StatusOK)

	logger := &recordingLogger{}
	client := newClient(t, func(cfg *hue.ClientConfig) { cfg.Logger = logger })

	bridge := testutil.BridgeFor(t, server, "001788fffe23bfc2")
	require.NoError(t, client.Restore(api.Credential{BridgeID: bridge.ID, Key: "restored-key"}))

	result, err := client.SetState(context.Background(), bridge, "1", api.LightState{On: api.Bool(true), Bri: api.Int(100)})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)

	assert.True(t, result.Outcomes[0].OK())
	require.False(t, result.Outcomes[1].OK())
	assert.Equal(t, "device unreachable", result.Outcomes[1].Error.Description)

	var partial *api.PartialFailure
	require.ErrorAs(t, result.Err(), &partial)

	failures := logger.find("batch item failed")
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].fields["index"])
	assert.Equal(t, "device unreachable", failures[0].fields["description"])
}

func TestReads(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	fake, bridge := pairedBridge(t, client)

	fake.AddLight("2", api.Light{Name: "Hall", State: api.LightState{On: api.Bool(false)}})
	fake.AddLight("10", api.Light{Name: "Porch", State: api.LightState{On: api.Bool(true)}})
	fake.AddGroup("1", api.Group{Name: "Living room", Type: "Room", Lights: []string{"2", "10"}})
	fake.AddScene("abc", api.Scene{Name: "Relax", Group: "1", Lights: []string{"2"}})

	ctx := context.Background()

	cfg, err := client.Config(ctx, bridge)
	require.NoError(t, err)
	assert.Equal(t, "001788fffe23bfc2", cfg.BridgeID)

	lights, err := client.Lights(ctx, bridge)
	require.NoError(t, err)
	require.Len(t, lights, 2)
	assert.Equal(t, "2", lights[0].ID)
	assert.Equal(t, "10", lights[1].ID)

	groups, err := client.Groups(ctx, bridge)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"2", "10"}, groups[0].Lights)

	group, err := client.Group(ctx, bridge, "1")
	require.NoError(t, err)
	assert.Equal(t, "Living room", group.Name)

	scenes, err := client.Scenes(ctx, bridge)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, "abc", scenes[0].ID)

	_, err = client.Light(ctx, bridge, "99")
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrorTypeResourceNotAvailable, apiErr.Type)
}

func TestWrites(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	fake, bridge := pairedBridge(t, client)
	fake.AddLight("1", api.Light{Name: "Desk", State: api.LightState{}})
	fake.AddGroup("1", api.Group{Name: "Office", Lights: []string{"1"}})

	ctx := context.Background()

	result, err := client.RenameLight(ctx, bridge, "1", "Desk lamp")
	require.NoError(t, err)
	require.True(t, result.OK())

	result, err = client.SetGroupAction(ctx, bridge, "1", api.GroupAction{LightState: api.LightState{On: api.Bool(true)}})
	require.NoError(t, err)
	require.True(t, result.OK())

	result, err = client.ActivateScene(ctx, bridge, "1", "abc")
	require.NoError(t, err)
	require.True(t, result.OK())

	writes := fake.Writes()
	require.Len(t, writes, 3)
	assert.JSONEq(t, `{"name":"Desk lamp"}`, writes[0])
	assert.JSONEq(t, `{"on":true}`, writes[1])
	assert.JSONEq(t, `{"scene":"abc"}`, writes[2])

	light, err := client.Light(ctx, bridge, "1")
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp", light.Name)
}

func TestInvalidValuesNeverHitNetwork(t *testing.T) {
	t.Parallel()

	client := newClient(t)
	fake, bridge := pairedBridge(t, client)

	ctx := context.Background()

	_, err := client.SetState(ctx, bridge, "1", api.LightState{Bri: api.Int(300)})
	require.ErrorIs(t, err, hue.ErrInvalidRequest)

	_, err = client.SetState(ctx, bridge, "1", api.LightState{})
	require.ErrorIs(t, err, hue.ErrInvalidRequest)

	_, err = client.ActivateScene(ctx, bridge, "1", "")
	require.ErrorIs(t, err, hue.ErrInvalidRequest)

	_, err = client.RenameLight(ctx, bridge, "1", "")
	require.ErrorIs(t, err, hue.ErrInvalidRequest)

	assert.Zero(t, fake.Hits())
}

func TestConnectionFailure(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(cfg *hue.ClientConfig) { cfg.MaxAttempts = 2 })
	bridge := testutil.ClosedBridge(t)
	require.NoError(t, client.Restore(api.Credential{BridgeID: bridge.ID, Key: "k"}))

	_, err := client.Lights(context.Background(), bridge)
	require.ErrorIs(t, err, hue.ErrConnectionFailed)

	var transportErr *api.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 2, transportErr.Attempts)

	_, err = client.Lights(context.Background(), bridge)
	require.ErrorIs(t, err, hue.ErrConnectionFailed, "transport failures leave the credential alone")
}

type staticDiscoverer []api.Bridge

func (s staticDiscoverer) Discover(context.Context) ([]api.Bridge, error) { return s, nil }

type failingDiscoverer struct{}

func (failingDiscoverer) Discover(context.Context) ([]api.Bridge, error) {
	return nil, errors.Mark(errors.New("no multicast"), api.ErrNetworkUnavailable)
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	found := staticDiscoverer{{ID: "001788fffe23bfc2", Address: "192.168.1.20", Source: "mdns"}}
	client := newClient(t, func(cfg *hue.ClientConfig) { cfg.Discoverer = found })

	bridges, err := client.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []api.Bridge(found), bridges)

	client = newClient(t, func(cfg *hue.ClientConfig) { cfg.Discoverer = failingDiscoverer{} })
	_, err = client.Discover(context.Background())
	require.ErrorIs(t, err, hue.ErrNetworkUnavailable)
}

func TestConcurrentCallsShareCredential(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(cfg *hue.ClientConfig) { cfg.RequestsPerSecond = 1000 })
	fake, bridge := pairedBridge(t, client)
	for i := range 5 {
		fake.AddLight(fmt.Sprint(i+1), api.Light{Name: "Light", State: api.LightState{}})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SetState(context.Background(), bridge, fmt.Sprint(i%5+1), api.LightState{On: api.Bool(i%2 == 0)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, fake.Writes(), 20)
	assert.True(t, strings.HasPrefix(fake.Writes()[0], `{"on":`))
}
